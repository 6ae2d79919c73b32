// Package shared provides small helpers used by both binaries.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequestID returns a 16-character identifier for correlating log lines of
// one request. It never fails; if the random source does, "unknown" is
// returned.
func RequestID() string {
	s, err := MakeRandHexString(8)
	if err != nil {
		return "unknown"
	}
	return s
}
