package model

import "encoding/json"

// APIResponse is the common envelope for every JSON response.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SongListResponse carries a page of songs plus the total count.
type SongListResponse struct {
	Songs []Song `json:"songs"`
	Total int    `json:"total"`
}

// ExistsResponse is the dedup probe result.
type ExistsResponse struct {
	Exists bool  `json:"exists"`
	Song   *Song `json:"song,omitempty"`
}

// StreamResponse carries the resolved streaming URL for a song.
type StreamResponse struct {
	StreamURL string `json:"streamUrl"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// UploadResponse is returned by the upload endpoint. Existing is true
// when the content was already in the catalog and no new object was stored.
type UploadResponse struct {
	SongID   string `json:"songId"`
	Existing bool   `json:"existing"`
	Song     *Song  `json:"song"`
}
