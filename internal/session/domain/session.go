package domain

import "time"

// Session represents a server-held session referenced by the opaque cookie token.
// The token carries the session id only; role and status are always read live.
type Session struct {
	ID                string
	UserID            string
	DeviceFingerprint string // SHA-256 of the client fingerprint; never the raw value
	IssuedAt          time.Time
	ExpiresAt         time.Time
	InvalidatedAt     *time.Time // nil while the session is active
	LastAccessedAt    *time.Time
	CreatedAt         time.Time
}

// Active reports whether the session has not been invalidated.
func (s *Session) Active() bool {
	return s.InvalidatedAt == nil
}

// Usable reports whether the session is active and unexpired at the given instant.
func (s *Session) Usable(now time.Time) bool {
	return s.Active() && now.Before(s.ExpiresAt)
}
