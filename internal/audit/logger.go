package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tenant-access-gate/backend/internal/audit/domain"
	auditrepo "tenant-access-gate/backend/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for audit events that happened before a
// tenant could be resolved (e.g. unknown subdomain, malformed host).
const SentinelTenantID = "_edge"

// Extractor returns a request-scoped string from the context (client IP, correlation id).
type Extractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the
// gate and the auth and session code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and optional extractors.
type Logger struct {
	repo          auditrepo.Repository
	ipExtractor   Extractor
	corrExtractor Extractor
}

// NewLogger returns an AuditLogger that persists to repo. ipExtractor and corrExtractor
// may be nil; then IP is recorded as "unknown" and the correlation id is left empty.
func NewLogger(repo auditrepo.Repository, ipExtractor, corrExtractor Extractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, corrExtractor: corrExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	corr := ""
	if l.corrExtractor != nil {
		corr = l.corrExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		UserID:        userID,
		Action:        action,
		Resource:      resource,
		IP:            ip,
		CorrelationID: corr,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
