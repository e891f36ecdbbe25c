package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/core/ports"
)

// Deactivation reasons recorded in the audit trail.
const (
	ReasonInvalidToken = "invalid_token"
	ReasonExpired      = "expired"
)

// TokenValidator cross-checks a token against its persisted session.
type TokenValidator struct {
	codec    ports.TokenCodec
	sessions ports.SessionRepository
	clock    ports.Clock
	audit    ports.AuditSink
	log      zerolog.Logger
}

func NewTokenValidator(
	codec ports.TokenCodec,
	sessions ports.SessionRepository,
	clock ports.Clock,
	audit ports.AuditSink,
	log zerolog.Logger,
) *TokenValidator {
	if audit == nil {
		audit = discardAudit{}
	}
	return &TokenValidator{codec: codec, sessions: sessions, clock: clock, audit: audit, log: log}
}

// Validate reports whether token is usable. The session lookup runs before
// any cryptographic check, so a token that was never issued can not cause a
// write. A returned error is always an infrastructure failure.
func (v *TokenValidator) Validate(ctx context.Context, token string) (bool, error) {
	// 1. Unknown token: nothing to update.
	session, err := v.sessions.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate token: %w", err)
	}

	// 2. Signature and structure.
	claims, err := v.codec.Decode(token)
	if err != nil {
		v.log.Debug().Err(err).Str("session_id", session.ID).Msg("token rejected")
		return false, v.deactivate(ctx, session, ReasonInvalidToken)
	}

	// 3. Expiry against our own clock.
	if claims.Expired(v.clock.Now()) {
		return false, v.deactivate(ctx, session, ReasonExpired)
	}

	// 4. A session closed elsewhere stays closed even if the token is intact.
	if session.State != domain.StateActive {
		return false, nil
	}

	return true, nil
}

// deactivate persists the ACTIVE -> INACTIVE transition. Sessions that are
// already INACTIVE are left untouched.
func (v *TokenValidator) deactivate(ctx context.Context, session *domain.Session, reason string) error {
	if !session.Deactivate(v.clock.Now()) {
		return nil
	}
	if err := v.sessions.UpdateState(ctx, session.ID, domain.StateInactive); err != nil {
		return fmt.Errorf("validate token: deactivate session %s: %w", session.ID, err)
	}

	v.log.Info().
		Str("session_id", session.ID).
		Str("user_id", session.UserID).
		Str("reason", reason).
		Msg("session deactivated")

	v.audit.Enqueue(domain.AuthEvent{
		Type:       domain.EventSessionDeactivated,
		UserID:     session.UserID,
		SessionID:  session.ID,
		Reason:     reason,
		OccurredAt: session.UpdatedAt,
	})
	return nil
}
