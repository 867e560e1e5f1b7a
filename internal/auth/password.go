package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultScryptN is the CPU/memory cost parameter.
	DefaultScryptN = 16384
	scryptR        = 8
	scryptP        = 1
	keyLen         = 64
	saltLen        = 16
)

var errMalformedHash = errors.New("malformed password hash")

// PlaceholderHash is a well-formed stored hash that no password matches.
// Verifying against it costs the same as verifying a real one.
var PlaceholderHash = strings.Repeat("00", keyLen) + "." + strings.Repeat("00", saltLen)

// PasswordHasher derives salted scrypt keys. Stored form is "hex(key).salt".
type PasswordHasher struct {
	n int
}

// NewPasswordHasher creates a PasswordHasher with the default cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{n: DefaultScryptN}
}

// NewPasswordHasherWithCost creates a PasswordHasher with cost n (a power of two > 1).
func NewPasswordHasherWithCost(n int) *PasswordHasher {
	return &PasswordHasher{n: n}
}

// Hash derives a key for password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	b := make([]byte, saltLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	salt := hex.EncodeToString(b)

	key, err := h.derive(password, salt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + salt, nil
}

// Verify re-derives the key from password and the stored salt and compares
// in constant time.
func (h *PasswordHasher) Verify(password, stored string) bool {
	keyHex, salt, ok := strings.Cut(stored, ".")
	if !ok || keyHex == "" || salt == "" {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != keyLen {
		return false
	}

	got, err := h.derive(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *PasswordHasher) derive(password, salt string) ([]byte, error) {
	if salt == "" {
		return nil, errMalformedHash
	}
	return scrypt.Key([]byte(password), []byte(salt), h.n, scryptR, scryptP, keyLen)
}
