package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileExt      = ".cache"
	dirPerm      = 0o755
	filePerm     = 0o644
	maxEncodedKL = 200 // filesystem name length guard
)

// FileStore persists one cache record per file under a directory. Filenames
// are derived from keys with a reversible, collision-free encoding, so a
// directory listing can be mapped back to the original keys.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put writes the gob-encoded record for key to its file.
func (s *FileStore) Put(key string, rec Record) error {
	name, err := filenameForKey(key)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encoding record for %q: %w", key, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("writing record for %q: %w", key, err)
	}
	return nil
}

// Delete removes the record file for key if it exists.
func (s *FileStore) Delete(key string) error {
	name, err := filenameForKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing record for %q: %w", key, err)
	}
	return nil
}

// Load reads every record file in the directory. Files that cannot be decoded
// or whose name does not map back to a key are deleted and skipped.
func (s *FileStore) Load() (map[string]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing cache dir %s: %w", s.dir, err)
	}

	records := make(map[string]Record)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())

		key, err := keyForFilename(e.Name())
		if err != nil {
			_ = os.Remove(path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec Record
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
			// Corrupt record, drop it for good.
			_ = os.Remove(path)
			continue
		}
		records[key] = rec
	}
	return records, nil
}

// Clear removes every record file.
func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("listing cache dir %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// SizeBytes sums the size of all record files.
func (s *FileStore) SizeBytes() int64 {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

// Close is a no-op; files are written synchronously.
func (s *FileStore) Close() error {
	return nil
}

// filenameForKey maps a key to its record filename. Query escaping keeps the
// mapping reversible and collision-free: every byte outside [A-Za-z0-9._~-]
// is percent-encoded.
func filenameForKey(key string) (string, error) {
	encoded := url.QueryEscape(key)
	if len(encoded) > maxEncodedKL {
		return "", fmt.Errorf("cache key too long: %d encoded bytes", len(encoded))
	}
	return encoded + fileExt, nil
}

// keyForFilename reverses filenameForKey.
func keyForFilename(name string) (string, error) {
	return url.QueryUnescape(strings.TrimSuffix(name, fileExt))
}
