package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFallbackOnGarbage(t *testing.T) {
	data := []byte("definitely not valid audio")

	meta := Extract(data, "song.mp3")

	assert.Equal(t, "song", meta.Title)
	assert.Equal(t, "Unknown Artist", meta.Artist)
	assert.Equal(t, "Unknown Album", meta.Album)
	assert.Equal(t, "mp3", meta.Format)
	assert.Equal(t, int64(0), meta.Duration)
	assert.Nil(t, meta.Bitrate)
	assert.Nil(t, meta.Genre)
	assert.Equal(t, int64(len(data)), meta.FileSize)
}

func TestExtractWithoutFileName(t *testing.T) {
	meta := Extract([]byte("garbage"), "")

	assert.Equal(t, "Unknown Title", meta.Title)
	assert.Equal(t, "mp3", meta.Format)
}

func TestExtractFormatFromExtension(t *testing.T) {
	meta := Extract([]byte("garbage"), "Track.FLAC")

	assert.Equal(t, "Track", meta.Title)
	assert.Equal(t, "flac", meta.Format)
}

func TestExtractNestedPathTitle(t *testing.T) {
	meta := Extract([]byte("garbage"), "albums/best of/hit single.mp3")

	assert.Equal(t, "hit single", meta.Title)
}

func TestSupportedFormat(t *testing.T) {
	assert.True(t, SupportedFormat("a.mp3"))
	assert.True(t, SupportedFormat("A.FLAC"))
	assert.True(t, SupportedFormat("song.m4a"))
	assert.False(t, SupportedFormat("cover.jpg"))
	assert.False(t, SupportedFormat("noextension"))
	assert.False(t, SupportedFormat(""))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeType("mp3"))
	assert.Equal(t, "audio/flac", MimeType("flac"))
	assert.Equal(t, "audio/mp4", MimeType("m4a"))
	assert.Equal(t, "audio/mpeg", MimeType("somethingelse"))
}
