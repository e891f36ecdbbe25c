package ports

import (
	"context"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// SessionRepository persists issued tokens and their lifecycle state.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	// FindByToken returns domain.ErrSessionNotFound when no session matches
	// the exact token string.
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	// UpdateState overwrites the state of the session with the given id.
	UpdateState(ctx context.Context, id string, state domain.State) error
}
