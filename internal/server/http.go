// Package server assembles the HTTP surface: the auth endpoints and health
// probe in front of the gate, everything else behind it.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tenant-access-gate/backend/internal/audit"
	"tenant-access-gate/backend/internal/gate"
	identityhandler "tenant-access-gate/backend/internal/identity/handler"
	sessionhandler "tenant-access-gate/backend/internal/session/handler"
)

// Deps holds the handlers the router mounts. Optional fields may be nil.
type Deps struct {
	// Gate is the access decision middleware guarding everything except auth and health.
	Gate *gate.Middleware
	// Auth serves login/logout/password-reset. If nil, auth routes are not mounted.
	Auth *identityhandler.AuthHandler
	// Sessions serves the session admin surface behind the gate. If nil, not mounted.
	Sessions *sessionhandler.SessionHandler
	// Health serves GET /healthz. If nil, not mounted.
	Health http.Handler
	// Auditor records admin-surface requests. May be nil.
	Auditor audit.AuditLogger
	// App is the downstream application handler for allowed requests. If nil,
	// allowed requests get an empty 200 (this repo is the edge only).
	App http.Handler
}

// NewRouter builds the chi router. Auth and health sit in front of the gate;
// the session admin surface and the downstream app sit behind it.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if deps.Health != nil {
		r.Method(http.MethodGet, "/healthz", deps.Health)
	}
	if deps.Auth != nil {
		deps.Auth.Register(r)
	}

	app := deps.App
	if app == nil {
		app = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	r.Group(func(gr chi.Router) {
		if deps.Gate != nil {
			gr.Use(deps.Gate.Handler)
		}
		if deps.Auditor != nil {
			gr.Use(Audit(deps.Auditor, nil))
		}
		if deps.Sessions != nil {
			deps.Sessions.Register(gr)
		}
		gr.Handle("/*", app)
	})

	return r
}
