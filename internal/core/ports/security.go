package ports

import (
	"time"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// PasswordHasher performs one-way salted hashing of passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A malformed hash is a
	// mismatch, never an error.
	Verify(plaintext, hash string) bool
}

// TokenCodec signs claims into a token string and verifies them back.
type TokenCodec interface {
	Encode(claims domain.Claims) (string, error)
	// Decode verifies the signature and returns the claims without checking
	// expiry; callers compare ExpiresAt against their own clock.
	Decode(token string) (domain.Claims, error)
}

// Clock is the wall-clock source for issued-at, expiry and now comparisons.
type Clock interface {
	Now() time.Time
}
