package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ruby/userauth-service/internal/core/domain"
)

type RoleRepository struct {
	db DBTX
}

func NewRoleRepository(db DBTX) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetOrCreate relies on the roles_name_key constraint: the no-op update on
// conflict makes RETURNING yield the existing row, so concurrent callers
// converge without a retry loop.
func (r *RoleRepository) GetOrCreate(ctx context.Context, name string) (*domain.Role, error) {
	role := &domain.Role{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO roles (id, name)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at`,
		uuid.NewString(), name).
		Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: role %s: %w", name, err)
	}
	return role, nil
}
