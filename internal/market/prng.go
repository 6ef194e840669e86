// Package market produces per-round trade outcomes and price movements.
package market

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
)

// NewSeededRand derives a deterministic generator from a seed string.
// The same seed always yields the same sequence.
func NewSeededRand(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt)) // #nosec G404 -- game outcomes must be reproducible, not secret
}

// DeriveSeed builds the seed for the n-th session of a batch.
func DeriveSeed(base string, n int) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	mixed := sha256.Sum256(append([]byte(base), buf[:]...))
	return base + "-" + hex.EncodeToString(mixed[:6])
}
