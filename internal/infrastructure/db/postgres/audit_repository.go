package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruby/userauth-service/internal/core/domain"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, e *domain.AuthEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_events (type, account_key, user_id, email, session_id, reason, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.Type), e.AccountKey(),
		nullable(e.UserID), nullable(e.Email), nullable(e.SessionID), nullable(e.Reason),
		e.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
