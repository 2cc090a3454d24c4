// Package shared holds small helpers for handling secrets: generating
// random key material and clearing sensitive bytes after use.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns size random bytes, hex-encoded (2*size characters).
func RandomHex(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Wipe zeroes b in place. A nil slice is ignored.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
