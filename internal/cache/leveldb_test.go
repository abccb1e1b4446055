package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLevelDBStore(t *testing.T) *LevelDBStore {
	t.Helper()
	store, err := NewLevelDBStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLevelDBStoreRoundTrip(t *testing.T) {
	store := newTestLevelDBStore(t)

	rec := Record{Value: []byte("payload"), CreatedAt: time.Now().Truncate(time.Second), TTL: 30 * time.Minute}
	require.NoError(t, store.Put("workshop_items_730_1_50", rec))

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records["workshop_items_730_1_50"]
	assert.Equal(t, rec.Value, got.Value)
	assert.Equal(t, rec.TTL, got.TTL)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestLevelDBStoreDelete(t *testing.T) {
	store := newTestLevelDBStore(t)

	rec := Record{Value: []byte("v"), CreatedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, store.Put("a", rec))
	require.NoError(t, store.Delete("a"))

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLevelDBStoreClear(t *testing.T) {
	store := newTestLevelDBStore(t)

	rec := Record{Value: []byte("v"), CreatedAt: time.Now(), TTL: time.Minute}
	require.NoError(t, store.Put("a", rec))
	require.NoError(t, store.Put("b", rec))

	require.NoError(t, store.Clear())

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), store.SizeBytes())
}

func TestCacheOnLevelDBStore(t *testing.T) {
	store := newTestLevelDBStore(t)

	c, err := New(store, Options{SweepInterval: time.Hour})
	require.NoError(t, err)

	c.Set("k", []byte("v"), time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}
