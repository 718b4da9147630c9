package audit

import "strings"

// ActionResource holds action and resource recorded for one audit event.
type ActionResource struct {
	Action   string
	Resource string
}

// Event names written by the gate and the auth code paths. These do not go through
// ParseRoute because the outcome, not the route, determines the action.
const (
	ActionAccessForbidden = "access_forbidden"
	ActionTokenInvalid    = "token_invalid"
	ActionTokenTampered   = "token_tampered"
	ActionSessionInvalid  = "session_invalid"
	ActionLoginSuccess    = "login_success"
	ActionLoginFailure    = "login_failure"
	ActionRateLimited     = "rate_limited"
	ActionLogout          = "logout"
	ActionSessionRevoked  = "session_revoked"
	ActionPasswordReset   = "password_reset_requested"

	ResourceRoute       = "route"
	ResourceSession     = "session"
	ResourceCredentials = "credentials"
)

// Auth route overrides: the handlers record the outcome themselves, so the default
// mapping only needs the resource right.
const (
	routeLogin         = "POST /auth/login"
	routeLogout        = "POST /auth/logout"
	routePasswordReset = "POST /auth/password-reset"
)

// ParseRoute returns action and resource for an HTTP method and route pattern
// (e.g. DELETE /admin/sessions/{id} -> revoke on resource "session").
// Action is a verb: get, list, create, update, delete, revoke.
// Resource is the last static path segment with a trailing "s" trimmed.
func ParseRoute(method, pattern string) ActionResource {
	switch method + " " + pattern {
	case routeLogin:
		return ActionResource{Action: "login", Resource: ResourceCredentials}
	case routeLogout:
		return ActionResource{Action: ActionLogout, Resource: ResourceSession}
	case routePasswordReset:
		return ActionResource{Action: ActionPasswordReset, Resource: ResourceCredentials}
	}
	resource := patternResource(pattern)
	action := methodToAction(method, pattern, resource)
	return ActionResource{Action: action, Resource: resource}
}

func patternResource(pattern string) string {
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		return strings.TrimSuffix(seg, "s")
	}
	return "unknown"
}

func methodToAction(method, pattern, resource string) string {
	switch method {
	case "GET":
		if strings.HasSuffix(pattern, "}") {
			return "get"
		}
		return "list"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		if resource == ResourceSession {
			return "revoke"
		}
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
