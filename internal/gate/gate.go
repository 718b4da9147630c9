// Package gate orchestrates tenant resolution, session authentication, and
// role authorization into a single per-request access decision.
package gate

import (
	"context"
	"errors"
	"log"
	"time"

	"tenant-access-gate/backend/internal/audit"
	"tenant-access-gate/backend/internal/platform/rbac"
	"tenant-access-gate/backend/internal/security"
	sessiondomain "tenant-access-gate/backend/internal/session/domain"
	"tenant-access-gate/backend/internal/telemetry"
	telemetrydomain "tenant-access-gate/backend/internal/telemetry/domain"
	"tenant-access-gate/backend/internal/tenant"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// Outcome is the terminal state of one evaluate call.
type Outcome int

const (
	// OutcomeAllowed lets the request continue downstream.
	OutcomeAllowed Outcome = iota
	// OutcomeRedirectToLogin sends the caller to the login page with a return path.
	OutcomeRedirectToLogin
	// OutcomeForbidden denies an authenticated caller whose role or permissions do not suffice.
	OutcomeForbidden
	// OutcomeNotFound is returned for invalid hosts and unknown tenants alike,
	// so valid tenant names do not leak.
	OutcomeNotFound
	// OutcomeUnavailable is returned when the store cannot answer in time. Deny, never allow.
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeRedirectToLogin:
		return "redirect_to_login"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Identity is the resolved caller attached to allowed requests.
type Identity struct {
	UserID    string
	Role      userdomain.Role
	SessionID string
}

// Decision is the structured outcome the routing layer consumes.
type Decision struct {
	Outcome Outcome
	// Tenant is the resolved tenant label ("" for the root tenant). Empty for NotFound.
	Tenant string
	// ReturnPath is set for RedirectToLogin.
	ReturnPath string
	// Identity is set when Outcome is Allowed and a session was required.
	Identity *Identity
}

// SessionStore is the slice of the session repository the gate needs.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Invalidate(ctx context.Context, id string) error
	TouchLastAccessed(ctx context.Context, id string, at time.Time) error
}

// UserStore is the slice of the user repository the gate needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Gate evaluates one inbound request against tenant policy, session state,
// and role permissions. Safe for concurrent use; all per-request state lives
// in a scope created inside Evaluate.
type Gate struct {
	resolver *tenant.Resolver
	registry *tenant.Registry
	codec    *security.SessionCodec
	sessions SessionStore
	users    UserStore
	perms    *rbac.Engine
	auditor  audit.AuditLogger
	emitter  telemetry.EventEmitter

	storeTimeout time.Duration
	nowF         func() time.Time
}

// New returns a Gate. auditor and emitter may be nil; denials are then only
// logged operationally. storeTimeout bounds every store call.
func New(resolver *tenant.Resolver, registry *tenant.Registry, codec *security.SessionCodec,
	sessions SessionStore, users UserStore, perms *rbac.Engine,
	auditor audit.AuditLogger, emitter telemetry.EventEmitter, storeTimeout time.Duration) *Gate {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Gate{
		resolver:     resolver,
		registry:     registry,
		codec:        codec,
		sessions:     sessions,
		users:        users,
		perms:        perms,
		auditor:      auditor,
		emitter:      emitter,
		storeTimeout: storeTimeout,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// scope memoizes store results and permission checks for one evaluate call.
// Constructed per request, discarded at request end; never shared across requests.
type scope struct {
	sessions map[string]*sessiondomain.Session
	users    map[string]*userdomain.User
	perms    map[string]bool
}

func newScope() *scope {
	return &scope{
		sessions: make(map[string]*sessiondomain.Session),
		users:    make(map[string]*userdomain.User),
		perms:    make(map[string]bool),
	}
}

// Evaluate runs the gate state machine for one request, short-circuiting at
// the first terminal outcome. cookieValue is the raw session cookie value,
// "" when the cookie is absent. fingerprint is the raw device fingerprint the
// client presented with the request; it is checked against the hash stored on
// the session when the session carries one.
func (g *Gate) Evaluate(ctx context.Context, hostHeader, path, cookieValue, fingerprint string) Decision {
	sc := newScope()

	host, err := g.resolver.Resolve(hostHeader)
	if err != nil {
		return Decision{Outcome: OutcomeNotFound}
	}
	desc, err := g.registry.Describe(host.Label)
	if err != nil {
		// Unknown tenants are indistinguishable from invalid hosts.
		return Decision{Outcome: OutcomeNotFound}
	}

	if !desc.RequiresSession(path) {
		return Decision{Outcome: OutcomeAllowed, Tenant: desc.Label}
	}

	if cookieValue == "" {
		return Decision{Outcome: OutcomeRedirectToLogin, Tenant: desc.Label, ReturnPath: path}
	}
	payload, err := g.codec.Decode(cookieValue)
	if err != nil {
		// All decode failures look the same to the caller; tampering is
		// additionally recorded as a security event.
		g.recordTokenFailure(ctx, desc.Label, path, err)
		return Decision{Outcome: OutcomeRedirectToLogin, Tenant: desc.Label, ReturnPath: path}
	}

	sess, err := g.lookupSession(ctx, sc, payload.SessionID)
	if err != nil {
		log.Printf("gate: session lookup failed: %v", err)
		return Decision{Outcome: OutcomeUnavailable, Tenant: desc.Label}
	}
	now := g.nowF()
	if sess == nil || !sess.Usable(now) {
		g.invalidateDeadSession(ctx, payload.SessionID)
		g.logEvent(ctx, desc.Label, "", audit.ActionSessionInvalid, audit.ResourceSession, "path="+path)
		return Decision{Outcome: OutcomeRedirectToLogin, Tenant: desc.Label, ReturnPath: path}
	}
	if sess.DeviceFingerprint != "" && !security.FingerprintEqual(fingerprint, sess.DeviceFingerprint) {
		g.invalidateDeadSession(ctx, sess.ID)
		g.logEvent(ctx, desc.Label, sess.UserID, audit.ActionSessionInvalid, audit.ResourceSession,
			"path="+path+" reason=fingerprint_mismatch")
		return Decision{Outcome: OutcomeRedirectToLogin, Tenant: desc.Label, ReturnPath: path}
	}

	// The role comes from the user row at evaluate time, never from the token,
	// so a demotion takes effect on the next request.
	user, err := g.lookupUser(ctx, sc, sess.UserID)
	if err != nil {
		log.Printf("gate: user lookup failed: %v", err)
		return Decision{Outcome: OutcomeUnavailable, Tenant: desc.Label}
	}
	if user == nil || !user.Active() {
		g.invalidateDeadSession(ctx, sess.ID)
		g.logEvent(ctx, desc.Label, sess.UserID, audit.ActionSessionInvalid, audit.ResourceSession, "path="+path)
		return Decision{Outcome: OutcomeRedirectToLogin, Tenant: desc.Label, ReturnPath: path}
	}

	if !desc.RoleAllowed(user.Role) {
		g.logEvent(ctx, desc.Label, user.ID, audit.ActionAccessForbidden, audit.ResourceRoute,
			"path="+path+" role="+string(user.Role))
		return Decision{Outcome: OutcomeForbidden, Tenant: desc.Label}
	}
	if perm, ok := desc.RequiredPermission(path); ok {
		if !sc.hasPermission(g.perms, user.ID, user.Role, rbac.Permission(perm)) {
			g.logEvent(ctx, desc.Label, user.ID, audit.ActionAccessForbidden, audit.ResourceRoute,
				"path="+path+" permission="+perm)
			return Decision{Outcome: OutcomeForbidden, Tenant: desc.Label}
		}
	}

	g.touchSession(ctx, sess.ID, now)

	return Decision{
		Outcome: OutcomeAllowed,
		Tenant:  desc.Label,
		Identity: &Identity{
			UserID:    user.ID,
			Role:      user.Role,
			SessionID: sess.ID,
		},
	}
}

func (g *Gate) lookupSession(ctx context.Context, sc *scope, id string) (*sessiondomain.Session, error) {
	if s, ok := sc.sessions[id]; ok {
		return s, nil
	}
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	s, err := g.sessions.GetByID(storeCtx, id)
	if err != nil {
		return nil, err
	}
	sc.sessions[id] = s
	return s, nil
}

func (g *Gate) lookupUser(ctx context.Context, sc *scope, id string) (*userdomain.User, error) {
	if u, ok := sc.users[id]; ok {
		return u, nil
	}
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	u, err := g.users.GetByID(storeCtx, id)
	if err != nil {
		return nil, err
	}
	sc.users[id] = u
	return u, nil
}

// hasPermission memoizes engine checks per user within the request scope.
func (sc *scope) hasPermission(engine *rbac.Engine, userID string, role userdomain.Role, perm rbac.Permission) bool {
	key := userID + ":" + string(perm)
	if v, ok := sc.perms[key]; ok {
		return v
	}
	v := engine.HasPermission(role, perm)
	sc.perms[key] = v
	return v
}

// invalidateDeadSession revokes a session the client presented but that is no
// longer usable, so the dead cookie cannot be replayed. Best-effort.
func (g *Gate) invalidateDeadSession(ctx context.Context, id string) {
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	if err := g.sessions.Invalidate(storeCtx, id); err != nil {
		log.Printf("gate: failed to invalidate dead session: %v", err)
	}
}

// touchSession refreshes the session's last-accessed timestamp. Best-effort.
func (g *Gate) touchSession(ctx context.Context, id string, at time.Time) {
	storeCtx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	if err := g.sessions.TouchLastAccessed(storeCtx, id, at); err != nil {
		log.Printf("gate: failed to touch session: %v", err)
	}
}

func (g *Gate) recordTokenFailure(ctx context.Context, tenantLabel, path string, decodeErr error) {
	action := audit.ActionTokenInvalid
	if errors.Is(decodeErr, security.ErrTokenTampered) {
		action = audit.ActionTokenTampered
	}
	g.logEvent(ctx, tenantLabel, "", action, audit.ResourceSession, "path="+path)
	if action == audit.ActionTokenTampered {
		telemetry.EmitAsync(g.emitter, ctx, &telemetrydomain.Event{
			TenantID:      tenantLabel,
			EventType:     action,
			Source:        "gate",
			CorrelationID: GetCorrelationID(ctx),
			CreatedAt:     g.nowF(),
		})
	}
}

func (g *Gate) logEvent(ctx context.Context, tenantLabel, userID, action, resource, metadata string) {
	if g.auditor == nil {
		return
	}
	g.auditor.LogEvent(ctx, tenantLabel, userID, action, resource, metadata)
}
