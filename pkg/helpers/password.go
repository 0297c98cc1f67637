package helpers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// HashPassword derives the stored hash from the account email and the plaintext.
// The email is the salt, so verification recomputes the hash and compares.
func HashPassword(email, plain string) string {
	salt := sha256.Sum256([]byte(NormalizeEmail(email)))
	key := argon2.IDKey([]byte(plain), salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(key)
}

// CompareHashAndPassword compares two stored-form hashes in constant time.
func CompareHashAndPassword(hash, other string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(other)) == 1
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
