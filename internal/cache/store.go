package cache

import "time"

// Record is the persisted form of one cache entry: the serialized value, its
// creation timestamp, and its time to live.
type Record struct {
	Value     []byte
	CreatedAt time.Time
	TTL       time.Duration
}

// Store is the backing storage behind the in-memory cache. One physical
// record exists per key. Implementations must drop and physically remove
// records they cannot decode during Load; expiry filtering is the cache's
// job, not the store's.
type Store interface {
	// Put upserts the record for key.
	Put(key string, rec Record) error

	// Delete removes the record for key. Deleting an absent key is not an
	// error.
	Delete(key string) error

	// Load reads every decodable record from storage.
	Load() (map[string]Record, error)

	// Clear removes all records.
	Clear() error

	// SizeBytes reports the total storage footprint of all records.
	SizeBytes() int64

	// Close releases the underlying storage.
	Close() error
}
