// Package storage provides object-store backends for uploaded audio blobs.
package storage

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUpstream marks authentication, network or API failures against the
// object store. Callers treat these as request-level failures; nothing is
// written to the catalog when an upload fails.
var ErrUpstream = errors.New("object storage failure")

// Store uploads binary blobs and resolves their public URLs.
type Store interface {
	// Upload stores data under objectName and returns its public URL.
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	// PublicURL builds the public URL for an object without any network call.
	PublicURL(objectName string) string
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ObjectName derives a deterministic, human-inspectable object key from
// song metadata and the content hash prefix:
//
//	tracks/<artist>/<title>_<hash[:8]>.<format>
//
// Artist and title are sanitized to a safe character class so they can be
// embedded in a key path; the hash prefix keeps distinct content from
// colliding on identical tags.
func ObjectName(artist, title, hash, format string) string {
	cleanArtist := sanitizeKeySegment(artist)
	cleanTitle := sanitizeKeySegment(title)

	prefix := hash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}

	return "tracks/" + cleanArtist + "/" + cleanTitle + "_" + prefix + "." + format
}

func sanitizeKeySegment(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		s = "unknown"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
