package model

// Game is a single record from the static game catalog.
type Game struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}
