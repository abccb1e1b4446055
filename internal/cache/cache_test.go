package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance cache time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, defaultTTL time.Duration) (*Cache, *fakeClock) {
	t.Helper()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	c, err := New(store, Options{DefaultTTL: defaultTTL, SweepInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	clk := newFakeClock()
	c.now = clk.Now
	return c, clk
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache(t, 10*time.Second)

	c.Set("k", []byte(`{"a":1}`), 5*time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"a":1}`), v)
}

func TestGetAfterExpiry(t *testing.T) {
	c, clk := newTestCache(t, 10*time.Second)

	c.Set("k", []byte(`{"a":1}`), 5*time.Second)
	clk.Advance(6 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Lazy deletion already swept the entry, so nothing is left behind.
	stats := c.GetStats()
	assert.Equal(t, 0, stats.ExpiredItems)
	assert.Equal(t, 0, stats.TotalItems)
}

func TestDefaultTTLApplies(t *testing.T) {
	c, clk := newTestCache(t, 10*time.Second)

	c.Set("k", []byte("v"), 0)

	clk.Advance(9 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("k", []byte("v"), 0)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestClearIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)

	c.Clear()
	c.Clear()

	assert.Equal(t, 0, c.GetStats().TotalItems)
}

func TestCleanupExpired(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)

	c.Set("short1", []byte("v"), 5*time.Second)
	c.Set("short2", []byte("v"), 5*time.Second)
	c.Set("long", []byte("v"), time.Hour)

	clk.Advance(10 * time.Second)

	removed := c.CleanupExpired()
	assert.Equal(t, 2, removed)

	_, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 1, c.GetStats().TotalItems)

	// A second cleanup finds nothing.
	assert.Equal(t, 0, c.CleanupExpired())
}

func TestGetOrSet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	calls := 0
	producer := func() ([]byte, error) {
		calls++
		return []byte("produced"), nil
	}

	v, err := c.GetOrSet("k", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, []byte("produced"), v)
	assert.Equal(t, 1, calls)

	// Hit: producer must not run again.
	v, err = c.GetOrSet("k", 0, producer)
	require.NoError(t, err)
	assert.Equal(t, []byte("produced"), v)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetProducerError(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	wantErr := errors.New("backend down")
	_, err := c.GetOrSet("k", 0, func() ([]byte, error) {
		return nil, wantErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)

	// Nothing was cached, a later call retries the producer.
	v, err := c.GetOrSet("k", 0, func() ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), v)
}

func TestGetOrSetSingleFlight(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})

	producer := func() ([]byte, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return []byte("v"), nil
	}

	const goroutines = 8
	var wg sync.WaitGroup
	results := make([][]byte, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet("k", 0, producer)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let the racers pile up behind the first flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, calls, "producer must run exactly once under concurrent misses")
	mu.Unlock()
	for _, v := range results {
		assert.Equal(t, []byte("v"), v)
	}
}

func TestInvalidatePattern(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("workshop_items_730_1_50", []byte("a"), 0)
	c.Set("workshop_items_730_2_50", []byte("b"), 0)
	c.Set("workshop_items_570_1_50", []byte("c"), 0)
	c.Set("popular_games_list", []byte("d"), 0)

	removed := c.InvalidatePattern("workshop_items_730")
	assert.Equal(t, 2, removed)

	assert.False(t, c.Has("workshop_items_730_1_50"))
	assert.False(t, c.Has("workshop_items_730_2_50"))
	assert.True(t, c.Has("workshop_items_570_1_50"))
	assert.True(t, c.Has("popular_games_list"))
}

func TestRefresh(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("k", []byte("old"), 0)

	v, err := c.Refresh("k", 0, func() ([]byte, error) {
		return []byte("new"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestStats(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)

	c.Set("live", []byte("v"), time.Hour)
	c.Set("dying", []byte("v"), time.Second)
	clk.Advance(2 * time.Second)

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.ActiveItems)
	assert.Equal(t, 1, stats.ExpiredItems)
	assert.Equal(t, time.Minute, stats.DefaultTTL)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	c, err := New(store, Options{SweepInterval: time.Hour})
	require.NoError(t, err)

	c.Set("games/popular", []byte("catalog"), time.Hour)
	c.Set("fleeting", []byte("gone soon"), time.Nanosecond)
	require.NoError(t, c.Close())

	// Give the nanosecond entry time to expire on the wall clock.
	time.Sleep(10 * time.Millisecond)

	store2, err := NewFileStore(dir)
	require.NoError(t, err)
	c2, err := New(store2, Options{SweepInterval: time.Hour})
	require.NoError(t, err)
	defer func() { _ = c2.Close() }()

	v, ok := c2.Get("games/popular")
	require.True(t, ok)
	assert.Equal(t, []byte("catalog"), v)

	// The expired record was dropped during load.
	_, ok = c2.Get("fleeting")
	assert.False(t, ok)
	assert.Equal(t, 1, c2.GetStats().TotalItems)
}

func TestGetSize(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("k", []byte("some value"), 0)

	size := c.GetSize()
	assert.Equal(t, 1, size.MemoryItems)
	assert.Greater(t, size.DiskSizeBytes, int64(0))
}
