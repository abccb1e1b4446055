// Package thumb loads listing thumbnails: a fresh on-disk copy is served
// synchronously, anything else is fetched asynchronously with in-flight
// deduplication per (URL, target) pair. Decoded results and fetch errors are
// delivered on a channel; rendering placeholders for errors is the caller's
// concern.
package thumb

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

const (
	// freshness is how long a cached file is served without refetching.
	freshness = 24 * time.Hour

	// retention is how long files survive before the sweeper deletes them.
	retention    = 7 * 24 * time.Hour
	sweepEvery   = time.Hour
	fetchTimeout = 15 * time.Second

	resultBufferSize = 64
	defaultExtension = ".jpg"
	userAgent        = "Workshop Downloader/1.0"
)

// Result is one asynchronous thumbnail delivery.
type Result struct {
	URL    string
	Target string
	Img    image.Image
	Err    error
}

// Stats summarizes the on-disk thumbnail cache.
type Stats struct {
	Files     int
	SizeBytes int64
}

// Loader fetches and caches thumbnails. Safe for concurrent use.
type Loader struct {
	dir        string
	httpClient *http.Client
	log        *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{} // keyed by URL + target

	results   chan Result
	stopSweep chan struct{}
	sweepDone chan struct{}
	wg        sync.WaitGroup
}

// NewLoader builds a loader caching into dir (created if missing) and starts
// the hourly retention sweep.
func NewLoader(dir string, log *slog.Logger) (*Loader, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating thumbnail cache dir: %w", err)
	}

	l := &Loader{
		dir:        dir,
		httpClient: &http.Client{Timeout: fetchTimeout},
		log:        log,
		inflight:   make(map[string]struct{}),
		results:    make(chan Result, resultBufferSize),
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	go l.sweepLoop()
	return l, nil
}

// Results returns the asynchronous delivery stream. Consumers must drain it;
// delivery blocks once the buffer fills.
func (l *Loader) Results() <-chan Result {
	return l.results
}

// Load returns the cached image when a fresh on-disk copy exists. Otherwise
// it schedules an asynchronous fetch (deduplicated per URL and target) and
// returns (nil, false); the outcome arrives on Results.
func (l *Loader) Load(imageURL, target string) (image.Image, bool) {
	if imageURL == "" {
		return nil, false
	}

	p := l.cachePath(imageURL)
	if img, ok := l.loadFresh(p); ok {
		return img, true
	}

	key := imageURL + "\x00" + target
	l.mu.Lock()
	if _, busy := l.inflight[key]; busy {
		l.mu.Unlock()
		return nil, false
	}
	l.inflight[key] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go l.fetch(imageURL, target, key, p)
	return nil, false
}

// Preload warms the cache for a set of URLs without a display target.
func (l *Loader) Preload(urls []string) {
	for _, u := range urls {
		l.Load(u, "preload")
	}
}

// CacheStats reports the number and total size of cached thumbnail files.
func (l *Loader) CacheStats() Stats {
	var s Stats
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return s
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		s.Files++
		s.SizeBytes += info.Size()
	}
	return s
}

// ClearCache deletes every cached thumbnail file.
func (l *Loader) ClearCache() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading thumbnail cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, e.Name())); err != nil {
			return fmt.Errorf("removing cached thumbnail: %w", err)
		}
	}
	return nil
}

// Close stops the sweeper, waits for in-flight fetches, and closes the
// results channel.
func (l *Loader) Close() {
	close(l.stopSweep)
	<-l.sweepDone
	l.wg.Wait()
	close(l.results)
}

// cachePath maps a URL to its cache file: md5 of the URL plus the URL path's
// image extension (default .jpg).
func (l *Loader) cachePath(imageURL string) string {
	sum := md5.Sum([]byte(imageURL))

	ext := defaultExtension
	if u, err := url.Parse(imageURL); err == nil {
		switch e := strings.ToLower(path.Ext(u.Path)); e {
		case ".jpg", ".jpeg", ".png", ".gif":
			ext = e
		}
	}
	return filepath.Join(l.dir, fmt.Sprintf("%x%s", sum, ext))
}

func (l *Loader) loadFresh(p string) (image.Image, bool) {
	info, err := os.Stat(p)
	if err != nil || time.Since(info.ModTime()) >= freshness {
		return nil, false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Undecodable leftovers are dropped so the next Load refetches.
		_ = os.Remove(p)
		return nil, false
	}
	return img, true
}

func (l *Loader) fetch(imageURL, target, key, p string) {
	defer l.wg.Done()

	img, err := l.download(imageURL, p)

	l.mu.Lock()
	delete(l.inflight, key)
	l.mu.Unlock()

	if err != nil {
		l.results <- Result{URL: imageURL, Target: target, Err: err}
		return
	}
	l.results <- Result{URL: imageURL, Target: target, Img: img}
}

func (l *Loader) download(imageURL, p string) (image.Image, error) {
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching thumbnail: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading thumbnail body: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding thumbnail: %w", err)
	}

	if err := os.WriteFile(p, data, 0o644); err != nil {
		l.log.Warn("writing thumbnail cache file failed", "path", p, "error", err)
	}
	return img, nil
}

func (l *Loader) sweepLoop() {
	defer close(l.sweepDone)

	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.sweepOnce(time.Now().Add(-retention))
			if removed > 0 {
				l.log.Debug("thumbnail cache swept", "removed", removed)
			}
		case <-l.stopSweep:
			return
		}
	}
}

// sweepOnce deletes cached files whose modification time is before cutoff and
// returns how many were removed.
func (l *Loader) sweepOnce(cutoff time.Time) int {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(l.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}
