package ports

import (
	"context"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// AuthService is the surface exposed to the transport layer.
type AuthService interface {
	Signup(ctx context.Context, email, name, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
}
