package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	data := []byte("the same bytes every time")

	assert.Equal(t, Fingerprint(data), Fingerprint(data))
	assert.Len(t, Fingerprint(data), 64)
}

func TestFingerprintContentOnly(t *testing.T) {
	a := Fingerprint([]byte("payload a"))
	b := Fingerprint([]byte("payload b"))

	assert.NotEqual(t, a, b)
}

func TestFingerprintEmptyInput(t *testing.T) {
	// The empty payload is valid input with a well-defined hash.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Fingerprint(nil))
	assert.Equal(t, Fingerprint(nil), Fingerprint([]byte{}))
}
