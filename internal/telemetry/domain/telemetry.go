package domain

import "time"

// Event represents a telemetry event emitted by the edge (tenant-scoped,
// optional user/session). Metadata is free-form JSON.
type Event struct {
	TenantID      string    `json:"tenant_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	EventType     string    `json:"event_type"`
	Source        string    `json:"source,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Metadata      []byte    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
