package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DownloadTask represents a single file transfer managed by the download
// coordinator. One task exists per destination path for its whole lifetime;
// the coordinator removes it from the active set on a terminal status.
type DownloadTask struct {
	ID              string
	URL             string
	DestinationPath string
	Item            WorkshopItem
	Status          TaskStatus
	Downloaded      int64     // bytes written so far
	Total           int64     // bytes expected, 0 if the server did not say
	Percent         int       // 0 to 100, 0 when Total is unknown
	Speed           float64   // bytes per second, smoothed over ~1s windows
	LastError       string    // last error message if any
	StartedAt       time.Time // when the transfer started
	FinishedAt      time.Time // when the transfer reached a terminal state
}

// GetDisplayTitle returns the item title, the destination filename, or the
// URL in order of preference.
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Item.Title != "" {
		return dt.Item.Title
	}
	if dt.DestinationPath != "" {
		name := filepath.Base(dt.DestinationPath)
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		return name
	}
	return dt.URL
}

// ProgressFraction returns download progress as 0.0 to 1.0, or 0 when the
// total size is unknown.
func (dt *DownloadTask) ProgressFraction() float64 {
	if dt.Total <= 0 {
		return 0
	}
	f := float64(dt.Downloaded) / float64(dt.Total)
	if f > 1 {
		f = 1
	}
	return f
}
