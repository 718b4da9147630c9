package repository

import (
	"context"

	"tenant-access-gate/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdateRole sets the user's role. Takes effect on the next gate evaluation for any live session.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
	// SetStatus enables or disables the user. Disabled users are treated as having no valid session.
	SetStatus(ctx context.Context, userID string, status domain.UserStatus) error
}
