package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// MakeRandHexString returns size random bytes encoded as lowercase hex.
func MakeRandHexString(size int) (string, error) {
	if size == 0 {
		return "", nil
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n random bytes. It panics if the system
// random source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("rand read: %v", err))
	}
	return b
}

// WipeByteArray zeroes buf in place.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
