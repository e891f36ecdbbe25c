package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/core/ports"
)

// DefaultTokenTTL is the validity window of an issued token (10,000,000 ms).
const DefaultTokenTTL = 10_000_000 * time.Millisecond

// TokenIssuer signs claims for a user and records the resulting session.
type TokenIssuer struct {
	codec    ports.TokenCodec
	sessions ports.SessionRepository
	clock    ports.Clock
	ttl      time.Duration
}

func NewTokenIssuer(codec ports.TokenCodec, sessions ports.SessionRepository, clock ports.Clock, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{codec: codec, sessions: sessions, clock: clock, ttl: ttl}
}

// Issue returns a signed token and its ACTIVE session. The token is only
// returned once the session has been persisted.
func (i *TokenIssuer) Issue(ctx context.Context, user *domain.User) (string, *domain.Session, error) {
	// Token timestamps carry second precision; truncating keeps the stored
	// expiry identical to the one read back from the token.
	now := i.clock.Now().UTC().Truncate(time.Second)

	claims := domain.Claims{
		ID:        uuid.NewString(),
		Subject:   user.ID,
		Scope:     user.RoleNames(),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}

	token, err := i.codec.Encode(claims)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	session, err := i.sessions.Create(ctx, &domain.Session{
		Token:     token,
		UserID:    user.ID,
		State:     domain.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", nil, fmt.Errorf("issue token: persist session: %w", err)
	}

	return token, session, nil
}
