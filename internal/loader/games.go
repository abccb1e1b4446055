package loader

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/wsget/workshop-downloader/internal/cache"
	"github.com/wsget/workshop-downloader/internal/model"
)

// GamesEvent carries one game-list emission. The task emits up to twice: a
// bounded popular list first, then a larger catalog that supersedes it.
type GamesEvent struct {
	Games []model.Game
}

// GamesTask loads the game catalog. The short popular list is served fast
// (cache TTL one hour); the extended list is fetched afterwards in the same
// run and cached for two hours.
type GamesTask struct {
	task
	cache   *cache.Cache
	catalog Catalog
	log     *slog.Logger
	events  chan GamesEvent
}

func NewGamesTask(c *cache.Cache, catalog Catalog, log *slog.Logger) *GamesTask {
	if log == nil {
		log = slog.Default()
	}
	return &GamesTask{
		cache:   c,
		catalog: catalog,
		log:     log,
		events:  make(chan GamesEvent, 2),
	}
}

// Events returns the task's result stream. It is closed when the task ends.
func (t *GamesTask) Events() <-chan GamesEvent {
	return t.events
}

// Start runs the task on its own goroutine.
func (t *GamesTask) Start() {
	go t.Run()
}

// Run executes the task in the calling goroutine. Consumers must accept the
// loaded event twice; the second, larger list supersedes the first.
func (t *GamesTask) Run() {
	defer close(t.events)

	if t.isCancelled() {
		return
	}
	t.events <- GamesEvent{Games: t.load(keyPopularGames, popularGamesLimit, popularGamesTTL)}

	if t.isCancelled() {
		return
	}
	t.events <- GamesEvent{Games: t.load(keyAllGames, allGamesLimit, allGamesTTL)}
}

func (t *GamesTask) load(key string, limit int, ttl time.Duration) []model.Game {
	if raw, ok := t.cache.Get(key); ok {
		var games []model.Game
		if err := json.Unmarshal(raw, &games); err == nil {
			return games
		}
		t.log.Warn("dropping undecodable cache entry", "key", key)
		t.cache.Delete(key)
	}

	games := t.catalog.PopularGames(limit)
	if raw, err := json.Marshal(games); err == nil {
		t.cache.Set(key, raw, ttl)
	}
	return games
}
