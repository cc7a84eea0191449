package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashString creates a SHA-256 hash of the input string
func HashString(input string) string {
	h := sha256.New()
	h.Write([]byte(input))

	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a short HMAC-SHA256 of a sensitive value under key.
// Without the key the value can't be brute-forced back out of the logs.
// Empty input yields an empty fingerprint.
func Fingerprint(key []byte, input string) string {
	if input == "" {
		return ""
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))[:12]
}

// NewFingerprintKey generates a random 32-byte key for Fingerprint
func NewFingerprintKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("error generating fingerprint key: %w", err)
	}
	return key, nil
}
