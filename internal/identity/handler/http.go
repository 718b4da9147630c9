// Package handler exposes the auth endpoints over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tenant-access-gate/backend/internal/gate"
	"tenant-access-gate/backend/internal/identity/service"
)

// CookieConfig describes the session cookie the auth endpoints set and clear.
type CookieConfig struct {
	Name string
	// Domain is the root domain so the cookie is shared across tenant subdomains.
	Domain string
	// Secure is set in production.
	Secure bool
	TTL    time.Duration
}

// AuthHandler serves login, logout, and password-reset.
type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieConfig
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(svc *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Post("/auth/password-reset", h.passwordReset)
}

type loginRequest struct {
	Assertion string `json:"assertion"`
	// DeviceFingerprint binds the session to the device. Clients that send it
	// must present the same value on every gated request (X-Device-Fingerprint).
	DeviceFingerprint string `json:"device_fingerprint"`
}

type loginResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Assertion == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Assertion, gate.ClientIP(r), req.DeviceFingerprint)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(res.Token, int(h.cookie.TTL.Seconds())))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{UserID: res.UserID, ExpiresAt: res.ExpiresAt}); err != nil {
		log.Printf("auth: write login response: %v", err)
	}
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	cookieValue := ""
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		cookieValue = c.Value
	}
	if err := h.svc.Logout(r.Context(), cookieValue); err != nil {
		log.Printf("auth: logout: %v", err)
	}
	// The cookie is cleared even when the session was already dead.
	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.svc.PasswordReset(r.Context(), req.Email, gate.ClientIP(r)); err != nil {
		var rl *service.RateLimitError
		if errors.As(err, &rl) {
			h.writeRateLimited(w, rl)
			return
		}
		log.Printf("auth: password reset: %v", err)
	}
	// Accepted regardless, so the response does not reveal account existence.
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	var rl *service.RateLimitError
	switch {
	case errors.As(err, &rl):
		h.writeRateLimited(w, rl)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	default:
		log.Printf("auth: login: %v", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}
}

func (h *AuthHandler) writeRateLimited(w http.ResponseWriter, rl *service.RateLimitError) {
	secs := int(rl.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, "too many attempts", http.StatusTooManyRequests)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
