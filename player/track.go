// Package player implements the client-side playback stack: the local
// library, the play queue, stream resolution and the playback
// orchestrator driving the audio engine.
package player

import (
	"melody/model"
)

// SourceKind tells where a track's audio comes from.
type SourceKind int

const (
	// SourceLocal is a file in the local library.
	SourceLocal SourceKind = iota
	// SourceRemote is a catalog entry streamed over HTTP.
	SourceRemote
)

// Track is one playable entry in the queue. Exactly one of LocalPath and
// StreamURL is meaningful, per Kind; StreamURL may stay empty until the
// resolver fills it in.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration int64 // milliseconds
	Size     int64 // bytes

	Kind      SourceKind
	LocalPath string
	StreamURL string
}

// NewLocalTrack builds a track for a file in the local library.
func NewLocalTrack(id, path, title, artist, album string, durationMs, size int64) Track {
	return Track{
		ID:        id,
		Title:     orUnknown(title, "Unknown Title"),
		Artist:    orUnknown(artist, "Unknown Artist"),
		Album:     orUnknown(album, "Unknown Album"),
		Duration:  durationMs,
		Size:      size,
		Kind:      SourceLocal,
		LocalPath: path,
	}
}

// TrackFromSong builds a remote track from a catalog entry. The stream
// URL is left for the resolver; the catalog may know a fresher one than
// the listing carried.
func TrackFromSong(song model.Song) Track {
	return Track{
		ID:       song.ID,
		Title:    orUnknown(song.Title, "Unknown Title"),
		Artist:   orUnknown(song.Artist, "Unknown Artist"),
		Album:    orUnknown(song.Album, "Unknown Album"),
		Duration: song.Duration,
		Size:     song.FileSize,
		Kind:     SourceRemote,
	}
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
