// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 2
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// SaltLen is the length of per-user auth salts.
const SaltLen = 16

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns the Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against the expected hash in constant time.
// Federated accounts store an empty hash and never verify.
func VerifyPassword(password, salt, expected []byte) bool {
	if len(expected) == 0 {
		return false
	}
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
