package gate

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	userdomain "tenant-access-gate/backend/internal/user/domain"
)

type contextKey struct{ name string }

var (
	userIDKey        = contextKey{"user_id"}
	roleKey          = contextKey{"role"}
	sessionIDKey     = contextKey{"session_id"}
	tenantKey        = contextKey{"tenant"}
	correlationIDKey = contextKey{"correlation_id"}
	clientIPKey      = contextKey{"client_ip"}
)

// WithIdentity returns a context with user_id, role, and session_id set.
// Handlers downstream of the gate read these via GetUserID, GetRole, GetSessionID.
func WithIdentity(ctx context.Context, userID string, role userdomain.Role, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetRole returns the role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (userdomain.Role, bool) {
	v, ok := ctx.Value(roleKey).(userdomain.Role)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// WithTenant returns a context carrying the resolved tenant label.
func WithTenant(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, tenantKey, label)
}

// GetTenant returns the tenant label from context and true if set; otherwise "", false.
// The root tenant's label is "".
func GetTenant(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantKey).(string)
	return v, ok
}

// WithCorrelationID returns a context carrying the given correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID returns the correlation id from context, or "" if not set.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

// EnsureCorrelationID returns ctx carrying a correlation id, generating one if absent.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if GetCorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.New().String())
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the client IP from context, or "unknown" if not set.
func GetClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ClientIP returns the client IP from request headers (X-Forwarded-For, X-Real-IP)
// or the remote address, or "unknown".
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		if s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(r.Header.Get("X-Real-IP")); s != "" {
		return s
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
