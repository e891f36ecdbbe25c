package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruby/userauth-service/internal/core/domain"
	"github.com/ruby/userauth-service/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService implementation.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists a single audit event.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.Type == "" {
		return fmt.Errorf("record audit event: %w: missing type", domain.ErrInvalidInput)
	}
	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	s.log.Debug().
		Str("type", string(event.Type)).
		Str("user_id", event.UserID).
		Str("session_id", event.SessionID).
		Msg("audit event recorded")
	return nil
}

// discardAudit drops events when no sink is configured.
type discardAudit struct{}

func (discardAudit) Enqueue(domain.AuthEvent) {}
