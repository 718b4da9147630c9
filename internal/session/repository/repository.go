package repository

import (
	"context"
	"time"

	"tenant-access-gate/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Implementations must make each
// mutation atomic at row granularity; the gate never read-modify-writes session rows.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Invalidate marks the session dead. Idempotent: invalidating an already-dead session is a no-op.
	Invalidate(ctx context.Context, id string) error
	InvalidateAllByUser(ctx context.Context, userID string) error
	TouchLastAccessed(ctx context.Context, id string, at time.Time) error
}
