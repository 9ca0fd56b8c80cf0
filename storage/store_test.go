package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	hash := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	name := ObjectName("Daft Punk", "One More Time", hash, "mp3")
	assert.Equal(t, "tracks/Daft_Punk/One_More_Time_01234567.mp3", name)
}

func TestObjectNameSanitizesSpecialChars(t *testing.T) {
	name := ObjectName("AC/DC", "T.N.T.", "abcdef1234567890", "mp3")
	assert.Equal(t, "tracks/AC_DC/T_N_T__abcdef12.mp3", name)
}

func TestObjectNameEmptySegments(t *testing.T) {
	name := ObjectName("", "  ", "abcdef1234567890", "flac")
	assert.Equal(t, "tracks/unknown/unknown_abcdef12.flac", name)
}

func TestObjectNameShortHash(t *testing.T) {
	name := ObjectName("A", "B", "abc", "mp3")
	assert.Equal(t, "tracks/A/B_abc.mp3", name)
}

func TestObjectNameCapsLongSegments(t *testing.T) {
	long := strings.Repeat("x", 300)

	name := ObjectName(long, long, "abcdef1234567890", "mp3")
	assert.Equal(t, "tracks/"+strings.Repeat("x", 100)+"/"+strings.Repeat("x", 100)+"_abcdef12.mp3", name)
}
