package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content hash of an audio payload: the
// lowercase hex SHA-256 of the raw bytes. It is deterministic, depends
// only on content (never on filename or tags), and is defined for empty
// input as well.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
