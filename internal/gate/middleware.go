package gate

import (
	"net/http"
	"net/url"
)

// FingerprintHeader carries the raw device fingerprint the client presented at
// login. Sessions bound to a fingerprint reject requests that stop sending it.
const FingerprintHeader = "X-Device-Fingerprint"

// Middleware wraps an HTTP handler with the gate decision. Outcomes map to
// continue / 302 / 403 / 404 / 503; no internal error detail reaches the client.
type Middleware struct {
	gate       *Gate
	cookieName string
	loginPath  string
}

// NewMiddleware returns the gate middleware. loginPath defaults to "/login".
func NewMiddleware(g *Gate, cookieName, loginPath string) *Middleware {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Middleware{gate: g, cookieName: cookieName, loginPath: loginPath}
}

// Handler evaluates the gate for each request and either forwards it with the
// resolved identity in context or writes the denial response.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := EnsureCorrelationID(r.Context())
		ctx = WithClientIP(ctx, ClientIP(r))
		w.Header().Set("X-Correlation-Id", GetCorrelationID(ctx))

		cookieValue := ""
		if c, err := r.Cookie(m.cookieName); err == nil {
			cookieValue = c.Value
		}

		d := m.gate.Evaluate(ctx, r.Host, r.URL.Path, cookieValue, r.Header.Get(FingerprintHeader))
		switch d.Outcome {
		case OutcomeAllowed:
			ctx = WithTenant(ctx, d.Tenant)
			if d.Identity != nil {
				ctx = WithIdentity(ctx, d.Identity.UserID, d.Identity.Role, d.Identity.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		case OutcomeRedirectToLogin:
			// The login page itself stays reachable without a session;
			// redirecting there would chase its own target.
			if r.URL.Path == m.loginPath {
				next.ServeHTTP(w, r.WithContext(WithTenant(ctx, d.Tenant)))
				return
			}
			http.Redirect(w, r, m.loginURL(d.ReturnPath), http.StatusFound)
		case OutcomeForbidden:
			http.Error(w, "forbidden", http.StatusForbidden)
		case OutcomeNotFound:
			http.NotFound(w, r)
		default:
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		}
	})
}

func (m *Middleware) loginURL(returnPath string) string {
	if returnPath == "" || returnPath == m.loginPath {
		return m.loginPath
	}
	return m.loginPath + "?return_to=" + url.QueryEscape(returnPath)
}
