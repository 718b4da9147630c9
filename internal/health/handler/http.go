// Package handler exposes the health endpoint for load balancers and probes.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks a collaborator's reachability (database).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RedisPinger checks the rate-limit store's reachability.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Handler serves GET /healthz. Collaborators may be nil; absent checks pass.
type Handler struct {
	db    Pinger
	redis RedisPinger
}

// NewHandler returns a health Handler.
func NewHandler(db Pinger, redis RedisPinger) *Handler {
	return &Handler{db: db, redis: redis}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP answers 200 with status "ok" when all present collaborators are
// reachable, otherwise 503 naming the failing checks.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: status, Checks: checks})
}
