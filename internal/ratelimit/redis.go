package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitScript increments the key and arms its TTL in one atomic step, so
// concurrent attempts across processes cannot race the window boundary.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter over a shared Redis counter store.
// When Redis is unreachable it falls back to the in-process limiter.
type RedisLimiter struct {
	client    *redis.Client
	threshold int
	window    time.Duration
	prefix    string
	fallback  *InMemoryLimiter
}

// NewRedis returns a Redis-backed limiter allowing threshold attempts per window.
func NewRedis(client *redis.Client, threshold int, window time.Duration) *RedisLimiter {
	if threshold <= 0 {
		threshold = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client:    client,
		threshold: threshold,
		window:    window,
		prefix:    "rl:",
		fallback:  NewInMemory(threshold, window),
	}
}

// Check counts an attempt for key and reports whether it is within the threshold.
func (l *RedisLimiter) Check(ctx context.Context, key string) Decision {
	if l.client == nil {
		return l.fallback.Check(ctx, key)
	}
	res, err := rateLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Slice()
	if err != nil || len(res) != 2 {
		log.Printf("ratelimit: redis check failed, using in-memory fallback: %v", err)
		return l.fallback.Check(ctx, key)
	}
	count, _ := res[0].(int64)
	ttlMillis, _ := res[1].(int64)
	retryAfter := l.window
	if ttlMillis > 0 {
		retryAfter = time.Duration(ttlMillis) * time.Millisecond
	}
	remaining := l.threshold - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    int(count) <= l.threshold,
		Count:      int(count),
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
}

// Clear drops the counter for key. Best-effort; a failed delete only means the
// key keeps counting until its TTL.
func (l *RedisLimiter) Clear(ctx context.Context, key string) {
	l.fallback.Clear(ctx, key)
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		log.Printf("ratelimit: redis clear failed for key %s: %v", key, err)
	}
}
