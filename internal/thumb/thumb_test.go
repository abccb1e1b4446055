package thumb

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func waitResult(t *testing.T, l *Loader) Result {
	t.Helper()
	select {
	case r := <-l.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no thumbnail result in time")
		return Result{}
	}
}

func TestLoadFetchesAndCaches(t *testing.T) {
	body := pngBytes(t)
	var mu sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(t)
	url := srv.URL + "/preview.png"

	img, hit := l.Load(url, "row-1")
	assert.False(t, hit)
	assert.Nil(t, img)

	res := waitResult(t, l)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Img)
	assert.Equal(t, url, res.URL)
	assert.Equal(t, "row-1", res.Target)

	stats := l.CacheStats()
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, int64(len(body)), stats.SizeBytes)

	// A fresh on-disk copy is served synchronously without another fetch.
	img, hit = l.Load(url, "row-2")
	assert.True(t, hit)
	require.NotNil(t, img)

	mu.Lock()
	assert.Equal(t, 1, requests)
	mu.Unlock()
}

func TestLoadDeduplicatesInflight(t *testing.T) {
	body := pngBytes(t)
	release := make(chan struct{})
	var mu sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		<-release
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(t)
	url := srv.URL + "/preview.png"

	_, hit := l.Load(url, "row-1")
	assert.False(t, hit)
	_, hit = l.Load(url, "row-1")
	assert.False(t, hit)

	close(release)
	res := waitResult(t, l)
	require.NoError(t, res.Err)

	mu.Lock()
	assert.Equal(t, 1, requests, "second request for the same URL and target must be coalesced")
	mu.Unlock()
}

func TestLoadDeliversFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	l := newTestLoader(t)

	_, hit := l.Load(srv.URL+"/missing.png", "row-1")
	assert.False(t, hit)

	res := waitResult(t, l)
	require.Error(t, res.Err)
	assert.Nil(t, res.Img)
	assert.Equal(t, 0, l.CacheStats().Files)
}

func TestStaleFileIsRefetched(t *testing.T) {
	body := pngBytes(t)
	var mu sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	l := newTestLoader(t)
	url := srv.URL + "/preview.png"

	l.Load(url, "row-1")
	require.NoError(t, waitResult(t, l).Err)

	// Age the cached copy past the freshness window.
	old := time.Now().Add(-25 * time.Hour)
	require.NoError(t, os.Chtimes(l.cachePath(url), old, old))

	_, hit := l.Load(url, "row-1")
	assert.False(t, hit)
	require.NoError(t, waitResult(t, l).Err)

	mu.Lock()
	assert.Equal(t, 2, requests)
	mu.Unlock()
}

func TestSweepOnceRemovesOldFiles(t *testing.T) {
	l := newTestLoader(t)

	fresh := filepath.Join(l.dir, "fresh.jpg")
	stale := filepath.Join(l.dir, "stale.jpg")
	require.NoError(t, os.WriteFile(fresh, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(stale, []byte("b"), 0o644))

	old := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed := l.sweepOnce(time.Now().Add(-retention))
	assert.Equal(t, 1, removed)

	_, err := os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestClearCache(t *testing.T) {
	l := newTestLoader(t)

	require.NoError(t, os.WriteFile(filepath.Join(l.dir, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(l.dir, "b.png"), []byte("bb"), 0o644))
	require.Equal(t, 2, l.CacheStats().Files)

	require.NoError(t, l.ClearCache())
	assert.Equal(t, 0, l.CacheStats().Files)
}

func TestCachePathExtensions(t *testing.T) {
	l := newTestLoader(t)

	tests := []struct {
		url string
		ext string
	}{
		{"https://cdn.example.com/a.png", ".png"},
		{"https://cdn.example.com/a.JPEG", ".jpeg"},
		{"https://cdn.example.com/a.gif?size=large", ".gif"},
		{"https://cdn.example.com/a", ".jpg"},
		{"https://cdn.example.com/a.webp", ".jpg"},
	}

	for _, tt := range tests {
		p := l.cachePath(tt.url)
		if !strings.HasSuffix(p, tt.ext) {
			t.Errorf("cachePath(%q) = %q, expected extension %q", tt.url, p, tt.ext)
		}
	}

	// Distinct URLs map to distinct files.
	assert.NotEqual(t, l.cachePath("https://a/x.png"), l.cachePath("https://b/x.png"))
}
