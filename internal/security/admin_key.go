package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminKey verifies the admin repair key against a bcrypt hash computed at
// start-up, so the plaintext is not compared directly.
type AdminKey struct {
	hash []byte
}

// NewAdminKey hashes key. An empty key yields a verifier that rejects everything.
func NewAdminKey(key string) (*AdminKey, error) {
	if key == "" {
		return &AdminKey{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin key: %w", err)
	}
	return &AdminKey{hash: hash}, nil
}

// Configured reports whether an admin key was set
func (k *AdminKey) Configured() bool {
	return k != nil && len(k.hash) > 0
}

// Verify reports whether candidate matches the configured key
func (k *AdminKey) Verify(candidate string) bool {
	if !k.Configured() || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(k.hash, prehash(candidate)) == nil
}

// prehash keeps long keys under bcrypt's 72 byte input limit
func prehash(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return []byte(hex.EncodeToString(sum[:]))
}
