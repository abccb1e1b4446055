// Package steam serves game catalog and workshop listing data. Catalog and
// workshop records are produced locally from an embedded table; only the
// optional API key check talks to the network. A real integration would
// replace the fetch methods behind the same signatures.
package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wsget/workshop-downloader/internal/model"
)

const (
	baseURL   = "https://api.steampowered.com"
	userAgent = "Workshop Downloader/1.0"

	// fallbackDownloadHost resolves a download URL from a published file id
	// when the item carries no direct file URL.
	fallbackDownloadHost = "https://steamworkshopdownloader.io/download/"

	requestTimeout  = 30 * time.Second
	validateTimeout = 10 * time.Second
)

// ErrNoDownloadURL is returned when neither a direct file URL nor a published
// file id is available for an item.
var ErrNoDownloadURL = errors.New("no download URL could be resolved")

// Client answers catalog, search, and workshop listing requests.
type Client struct {
	httpClient *http.Client
	apiKey     string
}

// NewClient builds a client. The API key is optional and only used by
// ValidateAPIKey.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
	}
}

// SetAPIKey replaces the configured API key.
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// PopularGames returns up to limit games from the embedded catalog.
func (c *Client) PopularGames(limit int) []model.Game {
	if limit <= 0 || limit > len(popularGames) {
		limit = len(popularGames)
	}
	games := make([]model.Game, limit)
	copy(games, popularGames[:limit])
	return games
}

// SearchGames returns up to limit games whose name contains query,
// case-insensitively.
func (c *Client) SearchGames(query string, limit int) []model.Game {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)

	var results []model.Game
	for _, g := range popularGames {
		if strings.Contains(strings.ToLower(g.Name), q) {
			results = append(results, g)
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

// AppInfo returns the catalog record for appID, or a placeholder record when
// the id is not in the catalog.
func (c *Client) AppInfo(appID int) model.Game {
	for _, g := range popularGames {
		if g.AppID == appID {
			return g
		}
	}
	return model.Game{AppID: appID, Name: fmt.Sprintf("Game %d", appID)}
}

// WorkshopItems returns the workshop listing page for a game. Items are
// generated deterministically per (appID, page, perPage), standing in for a
// GetPublishedFileDetails call.
func (c *Client) WorkshopItems(appID, page, perPage int) ([]model.WorkshopItem, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	return c.generateItems(appID, page, perPage), nil
}

func (c *Client) generateItems(appID, page, perPage int) []model.WorkshopItem {
	game := c.AppInfo(appID)

	types, ok := modTypes[appID]
	if !ok {
		types = genericModTypes
	}

	now := time.Now().Unix()
	offset := (page - 1) * perPage

	items := make([]model.WorkshopItem, 0, perPage)
	for i := offset; i < offset+perPage; i++ {
		modType := types[i%len(types)]
		fileID := fmt.Sprintf("%d%d", appID, 1000000+i)

		items = append(items, model.WorkshopItem{
			PublishedFileID: fileID,
			Title:           fmt.Sprintf("%s for %s #%d", modType, game.Name, i+1),
			Description: fmt.Sprintf("A great %s for %s. Adds new content and improves "+
				"the gameplay. Compatible with the latest game version.",
				strings.ToLower(modType), game.Name),
			Creator:       fmt.Sprintf("Modder_%d", i+1),
			TimeCreated:   now - int64(i)*86400,
			TimeUpdated:   now - int64(i)*3600,
			Subscriptions: 1000 + i*100,
			Favorited:     50 + i*10,
			Views:         5000 + i*500,
			Tags:          []string{strings.ToLower(modType), "popular", "new"},
			PreviewURL:    fmt.Sprintf("https://steamuserimages-a.akamaihd.net/ugc/demo_%d_%d.jpg", appID, i),
			FileURL:       fallbackDownloadHost + fileID,
			FileSize:      1024 * 1024 * int64(1+i%50),
			Filename:      fmt.Sprintf("%s_%d.zip", strings.ToLower(strings.ReplaceAll(modType, " ", "_")), i+1),
		})
	}
	return items
}

// ResolveDownloadURL picks the transfer URL for an item: the direct file URL
// when present, otherwise a URL synthesized from the published file id.
func (c *Client) ResolveDownloadURL(item model.WorkshopItem) (string, error) {
	if item.FileURL != "" {
		return item.FileURL, nil
	}
	if item.PublishedFileID != "" {
		return fallbackDownloadHost + item.PublishedFileID, nil
	}
	return "", ErrNoDownloadURL
}

// ValidateAPIKey performs a lightweight authenticated call to check the
// configured key. Any transport or decode failure reports the key as invalid.
func (c *Client) ValidateAPIKey(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	endpoint := baseURL + "/ISteamUser/GetPlayerSummaries/v0002/?" + url.Values{
		"key":      {c.apiKey},
		"steamids": {"76561197960435530"},
		"format":   {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
