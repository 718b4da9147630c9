package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenant-access-gate/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = "id, user_id, device_fingerprint, issued_at, expires_at, invalidated_at, last_accessed_at, created_at"

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's sessions, newest first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, device_fingerprint, issued_at, expires_at, invalidated_at, last_accessed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.UserID, s.DeviceFingerprint, s.IssuedAt, s.ExpiresAt,
		timeToNullTime(s.InvalidatedAt), timeToNullTime(s.LastAccessedAt), s.CreatedAt)
	return err
}

// Invalidate marks the session with the given id as invalidated. The WHERE clause
// makes the write a compare-and-swap so concurrent invalidates cannot race.
func (r *PostgresRepository) Invalidate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET invalidated_at = $2 WHERE id = $1 AND invalidated_at IS NULL",
		id, time.Now().UTC())
	return err
}

// InvalidateAllByUser invalidates all active sessions for the given user.
func (r *PostgresRepository) InvalidateAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET invalidated_at = $2 WHERE user_id = $1 AND invalidated_at IS NULL",
		userID, time.Now().UTC())
	return err
}

// TouchLastAccessed sets the session's last-accessed timestamp. Returns an error if the update fails.
func (r *PostgresRepository) TouchLastAccessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_accessed_at = $2 WHERE id = $1", id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var invalidatedAt, lastAccessedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.DeviceFingerprint, &s.IssuedAt, &s.ExpiresAt,
		&invalidatedAt, &lastAccessedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.InvalidatedAt = nullTimeToPtr(invalidatedAt)
	s.LastAccessedAt = nullTimeToPtr(lastAccessedAt)
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
