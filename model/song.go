package model

import "time"

// Song is a catalog entry: one row per distinct audio content hash.
// ObjectURL is empty until the object-store upload has completed; rows
// are only ever inserted after a successful upload, so an empty URL on a
// read means the entry is not streamable.
type Song struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Title      string    `json:"title" gorm:"size:255;index"`
	Artist     string    `json:"artist" gorm:"size:255;index"`
	Album      string    `json:"album" gorm:"size:255;index"`
	Hash       string    `json:"hash" gorm:"size:64;uniqueIndex:idx_song_hash"`
	ObjectURL  string    `json:"objectUrl,omitempty" gorm:"size:512"`
	Duration   int64     `json:"duration"` // milliseconds
	FileSize   int64     `json:"fileSize"` // bytes
	Format     string    `json:"format" gorm:"size:10"`
	Bitrate    *int      `json:"bitrate,omitempty"`
	Year       *int      `json:"year,omitempty"`
	Genre      *string   `json:"genre,omitempty" gorm:"size:100;index"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// TableName keeps the table name stable regardless of GORM pluralization.
func (Song) TableName() string {
	return "songs"
}

// SongMetadata is the caller-supplied metadata part of an upload request.
// All fields are optional; values present override what the extractor
// reads from the audio payload.
type SongMetadata struct {
	Title   string  `json:"title"`
	Artist  string  `json:"artist"`
	Album   string  `json:"album"`
	Genre   *string `json:"genre,omitempty"`
	Year    *int    `json:"year,omitempty"`
	Bitrate *int    `json:"bitrate,omitempty"`
}

// ArtistCount is a grouped artist/count pair.
type ArtistCount struct {
	Artist    string `json:"artist"`
	SongCount int    `json:"songCount"`
}

// GenreCount is a grouped genre/count pair.
type GenreCount struct {
	Genre     string `json:"genre"`
	SongCount int    `json:"songCount"`
}
