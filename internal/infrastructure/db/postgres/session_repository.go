package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ruby/userauth-service/internal/core/domain"
)

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	created := *s
	created.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, user_id, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		created.ID, created.Token, created.UserID, string(created.State), created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &created, nil
}

func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	s := &domain.Session{}
	var state string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, state, created_at, updated_at
		 FROM sessions WHERE token = $1`, token).
		Scan(&s.ID, &s.Token, &s.UserID, &state, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.State = domain.State(state)
	return s, nil
}

func (r *SessionRepository) UpdateState(ctx context.Context, id string, state domain.State) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET state = $1, updated_at = now() WHERE id = $2`,
		string(state), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
