package ports

import (
	"context"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// AuditRepository persists the audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditService records a single audit event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditSink accepts audit events for asynchronous recording.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}
