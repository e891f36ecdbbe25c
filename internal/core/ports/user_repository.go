package ports

import (
	"context"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns an ID and returns domain.ErrUserAlreadyExists when the
	// email is already taken. Uniqueness is enforced by the store.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// RoleRepository defines the interface for role persistence.
type RoleRepository interface {
	// GetOrCreate returns the role with the given name, creating it if absent.
	// Concurrent calls for the same name converge on a single role.
	GetOrCreate(ctx context.Context, name string) (*domain.Role, error)
}
