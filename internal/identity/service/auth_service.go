// Package service implements the auth flows at the edge: login from a signed
// identity assertion, logout, and the rate-limited password-reset handoff.
// Credential verification itself is an external collaborator.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenant-access-gate/backend/internal/audit"
	"tenant-access-gate/backend/internal/ratelimit"
	"tenant-access-gate/backend/internal/security"
	sessiondomain "tenant-access-gate/backend/internal/session/domain"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RateLimitError reports a blocked attempt and how long until the window rolls over.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// LoginResult holds the outcome of a successful login.
type LoginResult struct {
	Token     string
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	Invalidate(ctx context.Context, id string) error
}

// ResetSender delivers password-reset instructions. External collaborator;
// delivery (email, templates) is out of scope here.
type ResetSender interface {
	RequestReset(ctx context.Context, email string) error
}

// AuthService implements assertion-based login, logout, and password-reset handoff.
type AuthService struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
	verifier    *security.AssertionVerifier
	codec       *security.SessionCodec
	limiter     ratelimit.Limiter
	resetSender ResetSender
	auditor     audit.AuditLogger
	sessionTTL  time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
// resetSender and auditor may be nil.
func NewAuthService(
	userRepo UserRepo,
	sessionRepo SessionRepo,
	verifier *security.AssertionVerifier,
	codec *security.SessionCodec,
	limiter ratelimit.Limiter,
	resetSender ResetSender,
	auditor audit.AuditLogger,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		codec:       codec,
		limiter:     limiter,
		resetSender: resetSender,
		auditor:     auditor,
		sessionTTL:  sessionTTL,
	}
}

// Login verifies the identity assertion handed over by the credential
// collaborator, creates a session, and returns the encoded session token.
// Attempts are rate limited per client IP; a successful login clears the counter.
func (s *AuthService) Login(ctx context.Context, assertion, clientIP, deviceFingerprint string) (*LoginResult, error) {
	key := "login:" + clientIP
	if d := s.limiter.Check(ctx, key); !d.Allowed {
		s.logEvent(ctx, "", audit.ActionRateLimited, audit.ResourceCredentials, "")
		return nil, &RateLimitError{RetryAfter: d.RetryAfter}
	}

	userID, email, err := s.verifier.Verify(assertion)
	if err != nil {
		s.logEvent(ctx, "", audit.ActionLoginFailure, audit.ResourceCredentials, "reason=assertion")
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active() {
		s.logEvent(ctx, userID, audit.ActionLoginFailure, audit.ResourceCredentials, "reason=user")
		return nil, ErrInvalidCredentials
	}
	if email != "" && !strings.EqualFold(email, user.Email) {
		s.logEvent(ctx, userID, audit.ActionLoginFailure, audit.ResourceCredentials, "reason=email_mismatch")
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	// Binding is opt-in: a session without a fingerprint is not device-checked.
	if deviceFingerprint != "" {
		sess.DeviceFingerprint = security.HashFingerprint(deviceFingerprint)
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}
	token, err := s.codec.Encode(security.TokenPayload{
		SessionID: sess.ID,
		IssuedAt:  sess.IssuedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	s.limiter.Clear(ctx, key)
	s.logEvent(ctx, user.ID, audit.ActionLoginSuccess, audit.ResourceCredentials, "")

	return &LoginResult{
		Token:     token,
		UserID:    user.ID,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout invalidates the session referenced by the presented cookie value.
// Dead or malformed cookies are not an error; logout always succeeds from the
// caller's point of view.
func (s *AuthService) Logout(ctx context.Context, cookieValue string) error {
	if cookieValue == "" {
		return nil
	}
	payload, err := s.codec.Decode(cookieValue)
	if err != nil {
		return nil
	}
	if err := s.sessionRepo.Invalidate(ctx, payload.SessionID); err != nil {
		return err
	}
	s.logEvent(ctx, "", audit.ActionLogout, audit.ResourceSession, "session="+payload.SessionID)
	return nil
}

// PasswordReset rate-limits the request per client IP and hands the email off
// to the reset collaborator. The response never reveals whether the email exists.
func (s *AuthService) PasswordReset(ctx context.Context, email, clientIP string) error {
	key := "reset:" + clientIP
	if d := s.limiter.Check(ctx, key); !d.Allowed {
		s.logEvent(ctx, "", audit.ActionRateLimited, audit.ResourceCredentials, "")
		return &RateLimitError{RetryAfter: d.RetryAfter}
	}
	s.logEvent(ctx, "", audit.ActionPasswordReset, audit.ResourceCredentials, "")
	if s.resetSender == nil {
		return nil
	}
	return s.resetSender.RequestReset(ctx, strings.TrimSpace(strings.ToLower(email)))
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, "", userID, action, resource, metadata)
}
