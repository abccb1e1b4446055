// Package cache implements a TTL key-value cache with disk persistence. Reads
// observe the most recent completed write; expired entries are treated as
// absent and evicted lazily on read in addition to a periodic background
// sweep. Values are opaque byte slices; callers serialize at the boundary.
package cache

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = time.Hour

	// DefaultSweepInterval is how often the background sweeper removes
	// expired entries.
	DefaultSweepInterval = 5 * time.Minute
)

// entry is one live in-memory cache entry.
type entry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

// live is the single liveness predicate: an entry is live iff its age does
// not exceed its TTL.
func (e entry) live(now time.Time) bool {
	return now.Sub(e.createdAt) <= e.ttl
}

// Stats is a point-in-time summary of cache contents.
type Stats struct {
	TotalItems   int
	ActiveItems  int
	ExpiredItems int
	DefaultTTL   time.Duration
}

// SizeInfo reports memory item count and backing storage footprint.
type SizeInfo struct {
	MemoryItems   int
	DiskSizeBytes int64
}

// flight tracks one in-progress producer invocation for GetOrSet.
type flight struct {
	wg    sync.WaitGroup
	value []byte
	err   error
}

// Cache is a TTL cache backed by a Store. All in-memory map access is
// serialized by one mutex; store I/O happens outside the critical section,
// which keeps the read-after-write contract (the map is updated first) while
// not stalling readers on disk.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	log        *slog.Logger

	mu      sync.Mutex
	entries map[string]entry

	flightMu sync.Mutex
	flights  map[string]*flight

	now func() time.Time // swapped in tests to simulate time

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// Options tunes cache construction. Zero values fall back to defaults.
type Options struct {
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// New loads all still-live persisted entries from store into memory, deletes
// the ones already expired, and starts the background sweeper. Close must be
// called to stop the sweeper and release the store.
func New(store Store, opts Options) (*Cache, error) {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Cache{
		store:      store,
		defaultTTL: opts.DefaultTTL,
		log:        opts.Logger,
		entries:    make(map[string]entry),
		flights:    make(map[string]*flight),
		now:        time.Now,
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}

	records, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading persisted cache: %w", err)
	}
	now := c.now()
	for key, rec := range records {
		e := entry{value: rec.Value, createdAt: rec.CreatedAt, ttl: rec.TTL}
		if e.live(now) {
			c.entries[key] = e
		} else if err := store.Delete(key); err != nil {
			c.log.Warn("dropping expired cache record", "key", key, "error", err)
		}
	}

	go c.sweepLoop(opts.SweepInterval)
	return c, nil
}

// Get returns the value for key, or ok=false if the key is absent or expired.
// An expired entry found by the read is evicted as a side effect.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	if !e.live(c.now()) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.removeRecord(key)
		return nil, false
	}
	c.mu.Unlock()
	return e.value, true
}

// Has reports whether key holds a live entry.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set upserts value under key with the given TTL (the default TTL when
// ttl <= 0) and persists the record. Persistence failures are logged and
// swallowed; the in-memory entry stays authoritative for the process.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	e := entry{value: value, createdAt: c.now(), ttl: ttl}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	rec := Record{Value: value, CreatedAt: e.createdAt, TTL: ttl}
	if err := c.store.Put(key, rec); err != nil {
		c.log.Warn("persisting cache entry failed", "key", key, "error", err)
	}
}

// Delete removes key from memory and backing storage, reporting whether an
// entry existed.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	c.removeRecord(key)
	return ok
}

// Clear empties memory and all backing records.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.log.Warn("clearing cache store failed", "error", err)
	}
}

// CleanupExpired removes every entry whose age exceeds its TTL at call time
// and returns the count removed.
func (c *Cache) CleanupExpired() int {
	now := c.now()

	c.mu.Lock()
	var expired []string
	for key, e := range c.entries {
		if !e.live(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	for _, key := range expired {
		c.removeRecord(key)
	}
	return len(expired)
}

// GetOrSet returns the cached value for key, invoking producer on a miss and
// storing its result under ttl. Concurrent misses for the same key are
// single-flight: the producer runs once and all callers share its result.
// Producer errors are returned and nothing is cached.
func (c *Cache) GetOrSet(key string, ttl time.Duration, producer func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.flightMu.Lock()
	if f, ok := c.flights[key]; ok {
		c.flightMu.Unlock()
		f.wg.Wait()
		return f.value, f.err
	}
	f := &flight{}
	f.wg.Add(1)
	c.flights[key] = f
	c.flightMu.Unlock()

	defer func() {
		c.flightMu.Lock()
		delete(c.flights, key)
		c.flightMu.Unlock()
		f.wg.Done()
	}()

	// A Set may have landed between the miss and the flight registration.
	if v, ok := c.Get(key); ok {
		f.value = v
		return v, nil
	}

	value, err := producer()
	if err != nil {
		f.err = fmt.Errorf("producing value for %q: %w", key, err)
		return nil, f.err
	}
	c.Set(key, value, ttl)
	f.value = value
	return value, nil
}

// Refresh unconditionally re-produces the value for key and stores it.
func (c *Cache) Refresh(key string, ttl time.Duration, producer func() ([]byte, error)) ([]byte, error) {
	value, err := producer()
	if err != nil {
		return nil, fmt.Errorf("refreshing value for %q: %w", key, err)
	}
	c.Set(key, value, ttl)
	return value, nil
}

// InvalidatePattern deletes every key containing substr as a literal
// substring and returns the count deleted.
func (c *Cache) InvalidatePattern(substr string) int {
	c.mu.Lock()
	var matched []string
	for key := range c.entries {
		if strings.Contains(key, substr) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	for _, key := range matched {
		c.removeRecord(key)
	}
	return len(matched)
}

// GetStats summarizes current contents. Expired-but-unswept entries are
// counted separately; they are invisible to Get.
func (c *Cache) GetStats() Stats {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{TotalItems: len(c.entries), DefaultTTL: c.defaultTTL}
	for _, e := range c.entries {
		if !e.live(now) {
			s.ExpiredItems++
		}
	}
	s.ActiveItems = s.TotalItems - s.ExpiredItems
	return s
}

// GetSize reports the in-memory item count and disk footprint.
func (c *Cache) GetSize() SizeInfo {
	c.mu.Lock()
	items := len(c.entries)
	c.mu.Unlock()

	return SizeInfo{MemoryItems: items, DiskSizeBytes: c.store.SizeBytes()}
}

// Close stops the background sweeper and closes the backing store.
func (c *Cache) Close() error {
	close(c.stopSweep)
	<-c.sweepDone
	return c.store.Close()
}

func (c *Cache) sweepLoop(interval time.Duration) {
	defer close(c.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.CleanupExpired(); n > 0 {
				c.log.Debug("swept expired cache entries", "count", n)
			}
		case <-c.stopSweep:
			return
		}
	}
}

func (c *Cache) removeRecord(key string) {
	if err := c.store.Delete(key); err != nil {
		c.log.Warn("removing cache record failed", "key", key, "error", err)
	}
}
