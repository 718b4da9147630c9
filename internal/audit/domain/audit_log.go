package domain

import "time"

// AuditLog represents a single security-relevant event at the edge.
type AuditLog struct {
	ID            string
	TenantID      string
	UserID        string
	Action        string
	Resource      string
	IP            string
	CorrelationID string
	Metadata      string
	CreatedAt     time.Time
}
