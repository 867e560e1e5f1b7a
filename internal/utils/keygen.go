package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateToken returns n random bytes hex-encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionToken generates an opaque 64 char session token.
func GenerateSessionToken() (string, error) {
	return GenerateToken(32)
}

// GenerateFileName generates a random upload file name with the given extension.
// Example: 9f86d081884c7d65.jpg
func GenerateFileName(ext string) (string, error) {
	name, err := GenerateToken(8)
	if err != nil {
		return "", err
	}
	return name + ext, nil
}
