// Package audit records auth events best-effort: a failed write never fails
// the request that produced it.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"hattbooks/backend/internal/audit/domain"
	auditrepo "hattbooks/backend/internal/audit/repository"
)

// AuditLogger writes a single audit event with explicit action/resource and
// reads back a user's recent trail. LogEvent is best-effort: failures are
// logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, ip, metadata string)
	Recent(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo. repo may be nil;
// then LogEvent is a no-op.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not
// returned. Metadata must never contain passwords or tokens.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: create log entry: %v", err)
	}
}

// Recent returns the user's newest audit entries, up to limit. With no
// repository configured it returns an empty trail, not an error.
func (l *Logger) Recent(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error) {
	if l == nil || l.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return l.repo.ListByUser(ctx, userID, limit, 0)
}
