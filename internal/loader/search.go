package loader

import (
	"encoding/json"
	"log/slog"

	"github.com/wsget/workshop-downloader/internal/cache"
	"github.com/wsget/workshop-downloader/internal/model"
)

// SearchEvent carries the result of one search task run.
type SearchEvent struct {
	Query string
	Games []model.Game
}

// SearchTask matches the catalog against a query. Queries shorter than two
// characters short-circuit to an empty result without touching the catalog.
// The cache key is the lower-cased query, so differently-cased repeats of the
// same search share one entry.
type SearchTask struct {
	task
	cache   *cache.Cache
	catalog Catalog
	log     *slog.Logger
	events  chan SearchEvent

	query string
}

func NewSearchTask(c *cache.Cache, catalog Catalog, query string, log *slog.Logger) *SearchTask {
	if log == nil {
		log = slog.Default()
	}
	return &SearchTask{
		cache:   c,
		catalog: catalog,
		log:     log,
		events:  make(chan SearchEvent, 1),
		query:   query,
	}
}

// Events returns the task's result stream. It is closed when the task ends.
func (t *SearchTask) Events() <-chan SearchEvent {
	return t.events
}

// Start runs the task on its own goroutine.
func (t *SearchTask) Start() {
	go t.Run()
}

func (t *SearchTask) Run() {
	defer close(t.events)

	if t.isCancelled() {
		return
	}

	if len(t.query) < minQueryLength {
		t.events <- SearchEvent{Query: t.query, Games: []model.Game{}}
		return
	}

	key := searchKey(t.query)
	if raw, ok := t.cache.Get(key); ok {
		var games []model.Game
		if err := json.Unmarshal(raw, &games); err == nil {
			t.events <- SearchEvent{Query: t.query, Games: games}
			return
		}
		t.log.Warn("dropping undecodable cache entry", "key", key)
		t.cache.Delete(key)
	}

	games := t.catalog.SearchGames(t.query, searchLimit)
	if t.isCancelled() {
		return
	}

	if raw, err := json.Marshal(games); err == nil {
		t.cache.Set(key, raw, searchTTL)
	}
	t.events <- SearchEvent{Query: t.query, Games: games}
}
