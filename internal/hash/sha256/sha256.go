// Package sha256 provides the content fingerprint used for deduplication.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes SHA-256 hex digests.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint computes the normalized content hash for dedup lookups. The
// source is mixed in so identical syndicated text across sources never
// collides; dedup is a per-source concern.
func Fingerprint(source string, cleanedText string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(cleanedText))
	return hex.EncodeToString(h.Sum(nil))
}
