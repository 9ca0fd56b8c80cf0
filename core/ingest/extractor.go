package ingest

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"melody/logger"
)

// Metadata is the result of tag and header extraction for one payload.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Genre    *string
	Year     *int
	Duration int64 // milliseconds, 0 when the header could not be parsed
	Bitrate  *int  // kbps, nil when unknown
	Format   string
	FileSize int64
}

var supportedFormats = map[string]struct{}{
	"mp3": {}, "flac": {}, "aac": {}, "ogg": {}, "wav": {}, "m4a": {},
}

// SupportedFormat reports whether the file name carries a known audio extension.
func SupportedFormat(fileName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	_, ok := supportedFormats[ext]
	return ok
}

// MimeType maps an audio format to its MIME type, defaulting to audio/mpeg.
func MimeType(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "aac":
		return "audio/aac"
	case "ogg":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	case "m4a":
		return "audio/mp4"
	default:
		return "audio/mpeg"
	}
}

// Extract parses embedded tags and, for mp3 payloads, the frame headers.
// It never fails: any parse error degrades into a fallback record with the
// title derived from originalFileName (extension stripped) or
// "Unknown Title", zero duration, nil bitrate, and the format inferred
// from the file extension, defaulting to "mp3".
func Extract(data []byte, originalFileName string) Metadata {
	m := Metadata{
		Title:    fallbackTitle(originalFileName),
		Artist:   "Unknown Artist",
		Album:    "Unknown Album",
		Format:   formatFromFileName(originalFileName),
		FileSize: int64(len(data)),
	}

	readTags(data, &m)

	if m.Format == "mp3" {
		if durationMs := mp3DurationMs(data); durationMs > 0 {
			m.Duration = durationMs

			kbps := int(math.Round(float64(m.FileSize) * 8 / (float64(durationMs) / 1000) / 1000))
			if kbps > 0 {
				m.Bitrate = &kbps
			}
		}
	}

	return m
}

// readTags fills m from the payload's embedded tags. Parser panics on
// malformed input are absorbed; extraction must not fail past this point.
func readTags(data []byte, m *Metadata) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tag parser panicked, using fallback metadata")
		}
	}()

	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return
	}

	if title := strings.TrimSpace(meta.Title()); title != "" {
		m.Title = title
	}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		m.Artist = artist
	}
	if album := strings.TrimSpace(meta.Album()); album != "" {
		m.Album = album
	}
	if genre := strings.TrimSpace(meta.Genre()); genre != "" {
		m.Genre = &genre
	}
	if year := meta.Year(); year > 0 {
		m.Year = &year
	}
	if ft := meta.FileType(); ft != tag.UnknownFileType {
		m.Format = strings.ToLower(string(ft))
	}
}

// mp3DurationMs sums the duration of every decodable mp3 frame. A decode
// error ends the walk; whatever was accumulated up to that point counts,
// so a truncated file still reports a usable duration.
func mp3DurationMs(data []byte) int64 {
	defer func() {
		recover()
	}()

	decoder := mp3.NewDecoder(bytes.NewReader(data))
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration().Seconds()
	}

	return int64(total * 1000)
}

func fallbackTitle(originalFileName string) string {
	if originalFileName == "" {
		return "Unknown Title"
	}
	base := filepath.Base(originalFileName)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return "Unknown Title"
	}
	return title
}

func formatFromFileName(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return "mp3"
	}
	return ext
}
