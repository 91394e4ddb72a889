package model

// Playlist はSpotifyのプレイリストを表す。
type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks int    `json:"tracks"`
}

// Track はプレイリスト内の楽曲を表す。
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	DurationMs int    `json:"durationMs"`
}
