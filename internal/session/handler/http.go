// Package handler exposes the session admin surface over HTTP. The gate
// middleware has already authenticated the caller; this handler authorizes
// against the identity it attached.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tenant-access-gate/backend/internal/audit"
	"tenant-access-gate/backend/internal/gate"
	sessiondomain "tenant-access-gate/backend/internal/session/domain"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// SessionRepo is the minimal session repository needed by the admin surface.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Invalidate(ctx context.Context, id string) error
	InvalidateAllByUser(ctx context.Context, userID string) error
}

// SessionHandler serves listing and revoking sessions.
type SessionHandler struct {
	repo    SessionRepo
	auditor audit.AuditLogger
}

// NewSessionHandler returns a SessionHandler. auditor may be nil.
func NewSessionHandler(repo SessionRepo, auditor audit.AuditLogger) *SessionHandler {
	return &SessionHandler{repo: repo, auditor: auditor}
}

// Register mounts the session admin routes.
func (h *SessionHandler) Register(r chi.Router) {
	r.Get("/admin/sessions", h.list)
	r.Delete("/admin/sessions", h.revokeAll)
	r.Delete("/admin/sessions/{id}", h.revoke)
}

type sessionView struct {
	ID             string     `json:"id"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Active         bool       `json:"active"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// list returns the caller's own sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := gate.GetUserID(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	sessions, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("sessions: list: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	now := time.Now().UTC()
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:             s.ID,
			IssuedAt:       s.IssuedAt,
			ExpiresAt:      s.ExpiresAt,
			Active:         s.Usable(now),
			LastAccessedAt: s.LastAccessedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		log.Printf("sessions: write list response: %v", err)
	}
}

// revokeAll invalidates every session of the caller, including the one making
// the request.
func (h *SessionHandler) revokeAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := gate.GetUserID(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err := h.repo.InvalidateAllByUser(r.Context(), userID); err != nil {
		log.Printf("sessions: revoke all: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if h.auditor != nil {
		tenant, _ := gate.GetTenant(r.Context())
		h.auditor.LogEvent(r.Context(), tenant, userID, audit.ActionSessionRevoked, audit.ResourceSession, "scope=all")
	}
	w.WriteHeader(http.StatusNoContent)
}

// revoke invalidates a session. Callers may revoke their own sessions; god may
// revoke anyone's.
func (h *SessionHandler) revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := gate.GetUserID(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	id := chi.URLParam(r, "id")

	sess, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		log.Printf("sessions: revoke lookup: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	role, _ := gate.GetRole(r.Context())
	if sess.UserID != userID && role != userdomain.RoleGod {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.repo.Invalidate(r.Context(), id); err != nil {
		log.Printf("sessions: revoke: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if h.auditor != nil {
		tenant, _ := gate.GetTenant(r.Context())
		h.auditor.LogEvent(r.Context(), tenant, userID, audit.ActionSessionRevoked, audit.ResourceSession, "session="+id)
	}
	w.WriteHeader(http.StatusNoContent)
}
