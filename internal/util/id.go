package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier with an optional type prefix, e.g.
// "q_1f9d...". IDs are generated client-side so a document has a stable
// identity before its first remote write.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewToken returns a longer random value for refresh tokens.
func NewToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
