// Package loader implements the background tasks that populate listing views:
// game lists, per-game workshop listings, and catalog search. Every task
// follows the same shape: check the cache, fetch on miss, populate the cache,
// and deliver results on a channel that is closed when the task is done.
//
// Tasks run on their own goroutine (via Start) and are cancelled
// cooperatively: Cancel is polled between discrete work units, never
// mid-fetch. A cancelled task emits no further events, but results already
// delivered are not retracted.
package loader

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wsget/workshop-downloader/internal/model"
)

const (
	keyPopularGames = "popular_games_list"
	keyAllGames     = "all_games_list"

	popularGamesTTL = time.Hour
	allGamesTTL     = 2 * time.Hour
	workshopTTL     = 30 * time.Minute
	searchTTL       = 15 * time.Minute

	popularGamesLimit = 20
	allGamesLimit     = 100
	searchLimit       = 20

	minQueryLength = 2
)

// Catalog is the data source tasks fetch from on cache misses. The steam
// client satisfies it.
type Catalog interface {
	PopularGames(limit int) []model.Game
	SearchGames(query string, limit int) []model.Game
	WorkshopItems(appID, page, perPage int) ([]model.WorkshopItem, error)
}

// task carries the cooperative cancellation flag shared by every loader.
type task struct {
	cancelled atomic.Bool
}

// Cancel marks the task cancelled. The flag is polled between work units;
// after it is observed no further events are emitted.
func (t *task) Cancel() {
	t.cancelled.Store(true)
}

func (t *task) isCancelled() bool {
	return t.cancelled.Load()
}

func workshopKey(appID, page, perPage int) string {
	return fmt.Sprintf("workshop_items_%d_%d_%d", appID, page, perPage)
}

func searchKey(query string) string {
	return "search_games_" + strings.ToLower(query)
}
