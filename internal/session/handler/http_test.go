package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tenant-access-gate/backend/internal/gate"
	sessiondomain "tenant-access-gate/backend/internal/session/domain"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// mockSessionRepo implements SessionRepo for tests.
type mockSessionRepo struct {
	sessions        map[string]*sessiondomain.Session
	byUser          map[string][]*sessiondomain.Session
	invalidated     []string
	invalidatedUser string
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return m.sessions[id], nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return m.byUser[userID], nil
}

func (m *mockSessionRepo) Invalidate(ctx context.Context, id string) error {
	m.invalidated = append(m.invalidated, id)
	return nil
}

func (m *mockSessionRepo) InvalidateAllByUser(ctx context.Context, userID string) error {
	m.invalidatedUser = userID
	return nil
}

func newSessionFixture() (*mockSessionRepo, chi.Router) {
	now := time.Now().UTC()
	own := &sessiondomain.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	other := &sessiondomain.Session{
		ID:        "sess-2",
		UserID:    "user-2",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	repo := &mockSessionRepo{
		sessions: map[string]*sessiondomain.Session{"sess-1": own, "sess-2": other},
		byUser:   map[string][]*sessiondomain.Session{"user-1": {own}},
	}
	router := chi.NewRouter()
	NewSessionHandler(repo, nil).Register(router)
	return repo, router
}

func doAs(router http.Handler, method, path, userID string, role userdomain.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(gate.WithIdentity(req.Context(), userID, role, "sess-1"))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListSessions(t *testing.T) {
	_, router := newSessionFixture()

	rec := doAs(router, http.MethodGet, "/admin/sessions", "user-1", userdomain.RoleTeacher)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].ID != "sess-1" || !views[0].Active {
		t.Errorf("views = %+v", views)
	}
}

func TestListSessions_NoIdentity(t *testing.T) {
	_, router := newSessionFixture()

	rec := doAs(router, http.MethodGet, "/admin/sessions", "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRevokeOwnSession(t *testing.T) {
	repo, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions/sess-1", "user-1", userdomain.RoleTeacher)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(repo.invalidated) != 1 || repo.invalidated[0] != "sess-1" {
		t.Errorf("invalidated = %v", repo.invalidated)
	}
}

func TestRevokeOtherSession_Forbidden(t *testing.T) {
	repo, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions/sess-2", "user-1", userdomain.RoleTeacher)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(repo.invalidated) != 0 {
		t.Errorf("invalidated = %v", repo.invalidated)
	}
}

func TestRevokeOtherSession_GodAllowed(t *testing.T) {
	repo, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions/sess-2", "user-9", userdomain.RoleGod)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(repo.invalidated) != 1 || repo.invalidated[0] != "sess-2" {
		t.Errorf("invalidated = %v", repo.invalidated)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	repo, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions", "user-1", userdomain.RoleTeacher)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if repo.invalidatedUser != "user-1" {
		t.Errorf("invalidatedUser = %q, want user-1", repo.invalidatedUser)
	}
}

func TestRevokeAllSessions_NoIdentity(t *testing.T) {
	repo, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions", "", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if repo.invalidatedUser != "" {
		t.Errorf("invalidatedUser = %q, want empty", repo.invalidatedUser)
	}
}

func TestRevokeUnknownSession_NotFound(t *testing.T) {
	_, router := newSessionFixture()

	rec := doAs(router, http.MethodDelete, "/admin/sessions/ghost", "user-1", userdomain.RoleTeacher)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
