package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_WindowExhaustion(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(context.Background(), "caller-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("remaining after %d requests: %d", i+1, decision.Remaining)
		}
	}

	decision, err := limiter.Allow(context.Background(), "caller-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth request must be limited")
	}
	if decision.Remaining != 0 {
		t.Fatalf("remaining at limit: %d", decision.Remaining)
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	for i := 0; i < 2; i++ {
		limiter.Allow(context.Background(), "caller-1", 2, time.Minute)
	}
	decision, _ := limiter.Allow(context.Background(), "caller-1", 2, time.Minute)
	if decision.Allowed {
		t.Fatal("window must be exhausted")
	}

	now = now.Add(2 * time.Minute)
	decision, err := limiter.Allow(context.Background(), "caller-1", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("fresh window must allow")
	}
	if decision.Remaining != 1 {
		t.Fatalf("remaining after reset: %d", decision.Remaining)
	}
}

func TestMemoryLimiter_KeysIsolated(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})

	limiter.Allow(context.Background(), "caller-1", 1, time.Minute)
	decision, _ := limiter.Allow(context.Background(), "caller-1", 1, time.Minute)
	if decision.Allowed {
		t.Fatal("caller-1 must be limited")
	}

	decision, _ = limiter.Allow(context.Background(), "caller-2", 1, time.Minute)
	if !decision.Allowed {
		t.Fatal("caller-2 must have its own window")
	}
}

func TestMemoryLimiter_CapacityGC(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{
		Now:     func() time.Time { return now },
		MaxKeys: 2,
	})

	limiter.Allow(context.Background(), "a", 1, time.Minute)
	limiter.Allow(context.Background(), "b", 1, time.Minute)

	if _, err := limiter.Allow(context.Background(), "c", 1, time.Minute); err == nil {
		t.Fatal("expected capacity error while windows are live")
	}

	now = now.Add(2 * time.Minute)
	decision, err := limiter.Allow(context.Background(), "c", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow after gc: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expired windows must be collected to make room")
	}
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	decision, err := limiter.Allow(context.Background(), "caller-1", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("zero limit must disable limiting")
	}
}
