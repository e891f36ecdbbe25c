// Package security holds the cryptographic primitives behind the auth core:
// password hashing, token signing and signing-key material.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// DefaultCost matches the work factor the service has always used.
const DefaultCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts. The limit is in
// bytes, so multibyte characters count more than once.
const MaxPasswordBytes = 72

// BcryptHasher hashes passwords with bcrypt. The resulting string embeds the
// salt and cost, so verification needs nothing but the stored hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to DefaultCost
// when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns domain.ErrInvalidInput for passwords over MaxPasswordBytes.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("hash password: %w: longer than %d bytes", domain.ErrInvalidInput, MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares in constant time. Any error from bcrypt, including a
// malformed hash, is reported as a mismatch.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
