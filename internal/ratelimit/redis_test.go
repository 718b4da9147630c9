package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, threshold int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, threshold, window), mr
}

func TestRedisLimiter_Threshold(t *testing.T) {
	l, _ := newRedisLimiter(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d := l.Check(ctx, "login:1.2.3.4")
		if !d.Allowed {
			t.Fatalf("attempt %d: want allowed", i)
		}
		if d.Count != i {
			t.Errorf("attempt %d: count = %d", i, d.Count)
		}
		if d.Remaining != 5-i {
			t.Errorf("attempt %d: remaining = %d", i, d.Remaining)
		}
	}

	d := l.Check(ctx, "login:1.2.3.4")
	if d.Allowed {
		t.Fatal("attempt 6: want blocked")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > 15*time.Minute {
		t.Errorf("blocked retry-after out of range: %v", d.RetryAfter)
	}
}

func TestRedisLimiter_WindowRollover(t *testing.T) {
	l, mr := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	l.Check(ctx, "login:u1")
	if d := l.Check(ctx, "login:u1"); d.Allowed {
		t.Fatal("second attempt: want blocked")
	}

	mr.FastForward(time.Minute)

	d := l.Check(ctx, "login:u1")
	if !d.Allowed || d.Count != 1 {
		t.Errorf("after window rollover: allowed=%v count=%d, want allowed count=1", d.Allowed, d.Count)
	}
}

func TestRedisLimiter_Clear(t *testing.T) {
	l, _ := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	l.Check(ctx, "login:u2")
	if d := l.Check(ctx, "login:u2"); d.Allowed {
		t.Fatal("second attempt: want blocked")
	}

	l.Clear(ctx, "login:u2")
	if d := l.Check(ctx, "login:u2"); !d.Allowed {
		t.Error("after clear: want allowed")
	}
}

func TestRedisLimiter_FallbackOnFailure(t *testing.T) {
	l, mr := newRedisLimiter(t, 2, time.Minute)
	ctx := context.Background()

	// Redis going away degrades to the in-memory limiter instead of
	// letting attempts through unlimited.
	mr.Close()

	for i := 1; i <= 2; i++ {
		if d := l.Check(ctx, "login:u3"); !d.Allowed {
			t.Fatalf("attempt %d: want allowed", i)
		}
	}
	if d := l.Check(ctx, "login:u3"); d.Allowed {
		t.Fatal("attempt 3: want blocked via fallback")
	}
}
