// Package auth holds the credential primitives of the server: salted
// password hashing and signed session tokens.
package auth

import (
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

const saltSize = 16

// PasswordHasher derives salted argon2id hashes. The zero value is ready to use.
type PasswordHasher struct{}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{}
}

// GenerateSalt returns a fresh random salt, hex encoded.
func (h *PasswordHasher) GenerateSalt() (string, error) {
	return common.MakeRandHexString(saltSize)
}

// Hash is deterministic for a given salt and password.
func (h *PasswordHasher) Hash(salt, password string) string {
	key := cryptox.DeriveKey([]byte(password), []byte(salt))
	defer common.WipeByteArray(key)
	return base64.StdEncoding.EncodeToString(key)
}

// Verify recomputes the hash and compares it in constant time.
// A hash is never accepted without its salt.
func (h *PasswordHasher) Verify(salt, password, storedHash string) bool {
	if salt == "" || storedHash == "" {
		return false
	}
	candidate := h.Hash(salt, password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
