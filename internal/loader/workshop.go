package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wsget/workshop-downloader/internal/cache"
	"github.com/wsget/workshop-downloader/internal/format"
	"github.com/wsget/workshop-downloader/internal/model"
)

// WorkshopEvent is one emission from a listing task. On a cache miss each
// enriched item arrives individually in Item (for progressive rendering)
// before the complete list arrives in Items. On a cache hit only the final
// list is emitted. Err is set instead when the fetch fails.
type WorkshopEvent struct {
	Item  *model.WorkshopItem
	Items []model.WorkshopItem
	Err   error
}

// WorkshopTask loads one page of a game's workshop listing, enriching every
// item with display annotations before it is cached or delivered.
type WorkshopTask struct {
	task
	cache   *cache.Cache
	catalog Catalog
	log     *slog.Logger
	events  chan WorkshopEvent

	appID   int
	page    int
	perPage int
}

func NewWorkshopTask(c *cache.Cache, catalog Catalog, appID, page, perPage int, log *slog.Logger) *WorkshopTask {
	if log == nil {
		log = slog.Default()
	}
	buffer := perPage + 2
	if buffer < 2 {
		buffer = 2
	}
	return &WorkshopTask{
		cache:   c,
		catalog: catalog,
		log:     log,
		events:  make(chan WorkshopEvent, buffer),
		appID:   appID,
		page:    page,
		perPage: perPage,
	}
}

// Events returns the task's result stream. It is closed when the task ends.
func (t *WorkshopTask) Events() <-chan WorkshopEvent {
	return t.events
}

// Start runs the task on its own goroutine.
func (t *WorkshopTask) Start() {
	go t.Run()
}

func (t *WorkshopTask) Run() {
	defer close(t.events)

	if t.isCancelled() {
		return
	}

	key := workshopKey(t.appID, t.page, t.perPage)
	if raw, ok := t.cache.Get(key); ok {
		var items []model.WorkshopItem
		if err := json.Unmarshal(raw, &items); err == nil {
			t.events <- WorkshopEvent{Items: items}
			return
		}
		t.log.Warn("dropping undecodable cache entry", "key", key)
		t.cache.Delete(key)
	}

	items, err := t.catalog.WorkshopItems(t.appID, t.page, t.perPage)
	if t.isCancelled() {
		return
	}
	if err != nil {
		t.events <- WorkshopEvent{Err: fmt.Errorf("fetching workshop items for app %d: %w", t.appID, err)}
		return
	}

	enriched := make([]model.WorkshopItem, 0, len(items))
	for _, item := range items {
		if t.isCancelled() {
			return
		}
		e := Enrich(item)
		enriched = append(enriched, e)
		t.events <- WorkshopEvent{Item: &e}
	}

	if raw, err := json.Marshal(enriched); err == nil {
		t.cache.Set(key, raw, workshopTTL)
	}

	if t.isCancelled() {
		return
	}
	t.events <- WorkshopEvent{Items: enriched}
}

// Enrich fills in the human-readable display fields on a copy of item.
func Enrich(item model.WorkshopItem) model.WorkshopItem {
	item.FileSizeDisplay = format.FileSize(item.FileSize)
	item.CreatedDate = format.Date(item.TimeCreated)
	item.CreatedTime = format.Time(item.TimeCreated)
	item.SubscriptionsDisplay = format.Count(item.Subscriptions)
	return item
}
