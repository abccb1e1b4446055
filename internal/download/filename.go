package download

import (
	"strings"

	"github.com/wsget/workshop-downloader/internal/model"
)

const (
	maxTitleLength   = 50
	defaultTitle     = "workshop_item"
	defaultFileID    = "unknown"
	defaultExtension = ".zip"
)

// GenerateFilename computes the destination filename for an item: the
// sanitized title, the published file id, and the extension taken from the
// item's filename field (default .zip).
//
//	"Maps for Dota 2 #1" / id 5701000000 / "maps_1.zip"
//	  -> "Maps_for_Dota_2_1_5701000000.zip"
func GenerateFilename(item model.WorkshopItem) string {
	title := item.Title
	if title == "" {
		title = defaultTitle
	}
	safe := SanitizeTitle(title, maxTitleLength)
	if safe == "" {
		safe = defaultTitle
	}

	fileID := item.PublishedFileID
	if fileID == "" {
		fileID = defaultFileID
	}

	ext := defaultExtension
	if idx := strings.LastIndex(item.Filename, "."); idx >= 0 {
		ext = item.Filename[idx:]
	}

	return safe + "_" + fileID + ext
}

// SanitizeTitle makes a title safe for use in a filename: every character
// outside [alphanumeric, space, dash, underscore] becomes a space, runs of
// spaces collapse to single underscores, and the result is capped at
// maxLen bytes.
func SanitizeTitle(title string, maxLen int) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return ' '
		}
	}, title)

	safe := strings.Join(strings.Fields(mapped), "_")
	if len(safe) > maxLen {
		safe = safe[:maxLen]
		safe = strings.TrimRight(safe, "_")
	}
	return safe
}
