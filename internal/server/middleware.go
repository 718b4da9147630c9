package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenant-access-gate/backend/internal/audit"
	"tenant-access-gate/backend/internal/gate"
)

// Audit returns middleware that records an audit entry after each request on
// the routes it wraps. skipPatterns maps chi route patterns to skip (e.g. the
// audit listing itself). Entries are written only for authenticated callers;
// the write is best-effort and never fails the request.
func Audit(auditor audit.AuditLogger, skipPatterns map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			userID, ok := gate.GetUserID(r.Context())
			if !ok || userID == "" {
				return
			}
			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" || pattern == "/*" || skipPatterns[pattern] {
				return
			}
			tenant, _ := gate.GetTenant(r.Context())
			ar := audit.ParseRoute(r.Method, pattern)
			auditor.LogEvent(r.Context(), tenant, userID, ar.Action, ar.Resource, "path="+r.URL.Path)
		})
	}
}
