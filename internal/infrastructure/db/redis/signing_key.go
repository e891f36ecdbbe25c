package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ruby/userauth-service/internal/infrastructure/security"
)

// DefaultSigningKeyName is where replicas share the token signing key.
const DefaultSigningKeyName = "userauth:signing-key"

// SigningKeyStore hands every replica the same HS256 key. The first caller
// generates and publishes it; later callers read it back.
type SigningKeyStore struct {
	client redis.Cmdable
	name   string
}

// NewSigningKeyStore wraps client. An empty name selects DefaultSigningKeyName.
func NewSigningKeyStore(client redis.Cmdable, name string) *SigningKeyStore {
	if name == "" {
		name = DefaultSigningKeyName
	}
	return &SigningKeyStore{client: client, name: name}
}

// GetOrCreate returns the shared key, creating it with SETNX when absent.
// The key never expires: rotating it invalidates every issued token.
func (s *SigningKeyStore) GetOrCreate(ctx context.Context) ([]byte, error) {
	fresh, err := security.GenerateKey()
	if err != nil {
		return nil, err
	}

	set, err := s.client.SetNX(ctx, s.name, security.EncodeKey(fresh), 0).Result()
	if err != nil {
		return nil, fmt.Errorf("signing key setnx: %w", err)
	}
	if set {
		return fresh, nil
	}

	encoded, err := s.client.Get(ctx, s.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("signing key %s vanished after setnx", s.name)
		}
		return nil, fmt.Errorf("signing key get: %w", err)
	}
	return security.DecodeKey(encoded)
}
