package model

// WorkshopItem represents a single workshop listing entry for a game. Items
// are generated synthetically and are immutable once produced; the display
// fields at the bottom are filled in by the listing loader's enrichment pass
// on a copy, never in place.
type WorkshopItem struct {
	PublishedFileID string   `json:"publishedfileid"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Creator         string   `json:"creator"`
	TimeCreated     int64    `json:"time_created"`
	TimeUpdated     int64    `json:"time_updated"`
	Subscriptions   int      `json:"subscriptions"`
	Favorited       int      `json:"favorited"`
	Views           int      `json:"views"`
	Tags            []string `json:"tags"`
	PreviewURL      string   `json:"preview_url"`
	FileURL         string   `json:"file_url"`
	FileSize        int64    `json:"file_size"`
	Filename        string   `json:"filename"`

	// Display annotations, set by the enrichment pass.
	FileSizeDisplay      string `json:"file_size_formatted,omitempty"`
	CreatedDate          string `json:"created_date,omitempty"`
	CreatedTime          string `json:"created_time,omitempty"`
	SubscriptionsDisplay string `json:"subscriptions_formatted,omitempty"`
}
