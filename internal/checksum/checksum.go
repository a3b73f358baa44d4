// Package checksum provides the SHA-256 digests used by the IATF format.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the length of a truncated Git-style digest.
const ShortLen = 7

// Sum returns the full hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the ShortLen-character truncated SHA-256 digest of data.
func Short(data []byte) string {
	return Sum(data)[:ShortLen]
}
