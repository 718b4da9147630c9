// Package ratelimit bounds authentication attempts per key inside a fixed window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	// RetryAfter is how long until the window rolls over; meaningful when blocked.
	RetryAfter time.Duration
}

// Limiter guards auth endpoints. Check counts the attempt and reports whether
// it may proceed; Clear drops the key's counter after a successful
// authentication so legitimate users are not penalized.
type Limiter interface {
	Check(ctx context.Context, key string) Decision
	Clear(ctx context.Context, key string)
}

// InMemoryLimiter is a process-local fixed-window limiter. Used directly in
// development and as a degraded fallback when Redis is unreachable; it still
// limits, it never fails open to unlimited.
type InMemoryLimiter struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	items     map[string]entry
	nowF      func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// NewInMemory returns an in-memory limiter allowing threshold attempts per window.
func NewInMemory(threshold int, window time.Duration) *InMemoryLimiter {
	if threshold <= 0 {
		threshold = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &InMemoryLimiter{
		threshold: threshold,
		window:    window,
		items:     make(map[string]entry),
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// Check counts an attempt for key and reports whether it is within the threshold.
func (l *InMemoryLimiter) Check(_ context.Context, key string) Decision {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanup(now)
	curr, ok := l.items[key]
	if !ok || !now.Before(curr.resetAt) {
		curr = entry{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr
	remaining := l.threshold - curr.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    curr.count <= l.threshold,
		Count:      curr.count,
		Remaining:  remaining,
		RetryAfter: curr.resetAt.Sub(now),
	}
}

// Clear drops the counter for key.
func (l *InMemoryLimiter) Clear(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items, key)
}

func (l *InMemoryLimiter) cleanup(now time.Time) {
	for k, v := range l.items {
		if !now.Before(v.resetAt) {
			delete(l.items, k)
		}
	}
}
