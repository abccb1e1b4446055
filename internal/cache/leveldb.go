package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// record keys share a prefix so the database can host other namespaces later.
var recordPrefix = []byte("r:")

// LevelDBStore persists cache records in a LevelDB database, one record per
// key. It is the backing store of choice when the cache holds many small
// entries and a file per key would be wasteful.
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens (or creates) the database at path.
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb at %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// Put upserts the gob-encoded record for key.
func (s *LevelDBStore) Put(key string, rec Record) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encoding record for %q: %w", key, err)
	}
	if err := s.db.Put(append(recordPrefix, key...), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("writing record for %q: %w", key, err)
	}
	return nil
}

// Delete removes the record for key.
func (s *LevelDBStore) Delete(key string) error {
	if err := s.db.Delete(append(recordPrefix, key...), nil); err != nil {
		return fmt.Errorf("removing record for %q: %w", key, err)
	}
	return nil
}

// Load iterates all records, dropping any it cannot decode.
func (s *LevelDBStore) Load() (map[string]Record, error) {
	records := make(map[string]Record)

	it := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer it.Release()

	var corrupt [][]byte
	for it.Next() {
		key := string(bytes.TrimPrefix(it.Key(), recordPrefix))
		var rec Record
		if err := gob.NewDecoder(bytes.NewReader(it.Value())).Decode(&rec); err != nil {
			corrupt = append(corrupt, append([]byte(nil), it.Key()...))
			continue
		}
		records[key] = rec
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	if len(corrupt) > 0 {
		batch := new(leveldb.Batch)
		for _, k := range corrupt {
			batch.Delete(k)
		}
		if err := s.db.Write(batch, nil); err != nil {
			return nil, fmt.Errorf("dropping corrupt records: %w", err)
		}
	}
	return records, nil
}

// Clear removes all records in one batch.
func (s *LevelDBStore) Clear() error {
	it := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterating records: %w", err)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	return nil
}

// SizeBytes sums the encoded size of all records.
func (s *LevelDBStore) SizeBytes() int64 {
	it := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer it.Release()

	var total int64
	for it.Next() {
		total += int64(len(it.Value()))
	}
	return total
}

// Close closes the database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
