package view

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Digest returns the hex BLAKE3-256 hash of a version payload.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
