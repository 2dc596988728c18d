package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex encoded SHA-256 of s.
func Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
