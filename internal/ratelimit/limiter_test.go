package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()
	l := New(cfg, zerolog.Nop())
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLimiter_BurstThenReject(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 5, RefillPerSec: 1})
	now := time.Now()

	for i := 0; i < 5; i++ {
		d := l.admitAt("client", now)
		if !d.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}

	d := l.admitAt("client", now)
	if d.Allowed {
		t.Fatalf("6th request: expected rejected")
	}
	if d.RetryAfter != time.Second {
		t.Fatalf("expected retry after 1s, got %v", d.RetryAfter)
	}

	// One second later a single token has refilled.
	d = l.admitAt("client", now.Add(time.Second))
	if !d.Allowed {
		t.Fatalf("request after refill: expected allowed")
	}
}

func TestLimiter_BurstRejectionExactness(t *testing.T) {
	const capacity = 10
	const n = 25
	l := newTestLimiter(t, Config{Capacity: capacity, RefillPerSec: 1})
	now := time.Now()

	allowed, rejected := 0, 0
	for i := 0; i < n; i++ {
		d := l.admitAt("burst", now)
		if d.Allowed {
			allowed++
		} else {
			rejected++
			if d.RetryAfter < 0 {
				t.Fatalf("retry after must be non-negative, got %v", d.RetryAfter)
			}
		}
	}

	if allowed != capacity {
		t.Fatalf("expected exactly %d admitted, got %d", capacity, allowed)
	}
	if rejected != n-capacity {
		t.Fatalf("expected %d rejected, got %d", n-capacity, rejected)
	}
}

func TestLimiter_KeyIsolation(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 2, RefillPerSec: 1})
	now := time.Now()

	// Exhaust key A.
	l.admitAt("a", now)
	l.admitAt("a", now)
	if d := l.admitAt("a", now); d.Allowed {
		t.Fatalf("key a should be exhausted")
	}

	// Key B still has a full bucket.
	for i := 0; i < 2; i++ {
		if d := l.admitAt("b", now); !d.Allowed {
			t.Fatalf("key b request %d: expected allowed", i+1)
		}
	}
}

func TestLimiter_SustainedRate(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 3, RefillPerSec: 2})
	start := time.Now()

	// Send at exactly the refill rate for a while; after the initial burst
	// no request may be rejected.
	for i := 0; i < 50; i++ {
		at := start.Add(time.Duration(i) * 500 * time.Millisecond)
		if d := l.admitAt("steady", at); !d.Allowed {
			t.Fatalf("request %d at steady rate rejected", i)
		}
	}
}

func TestLimiter_RefillCapped(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 2, RefillPerSec: 1})
	now := time.Now()

	l.admitAt("cap", now)

	// After a long idle period the bucket holds capacity tokens, not more.
	later := now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if d := l.admitAt("cap", later); !d.Allowed {
			t.Fatalf("request %d after idle: expected allowed", i+1)
		}
	}
	if d := l.admitAt("cap", later); d.Allowed {
		t.Fatalf("bucket refilled beyond capacity")
	}
}

func TestLimiter_ClockSkewClamped(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 5, RefillPerSec: 1})
	now := time.Now()

	l.admitAt("skew", now)

	// A call with an earlier timestamp must not corrupt the bucket.
	d := l.admitAt("skew", now.Add(-time.Minute))
	if !d.Allowed {
		t.Fatalf("expected allowed despite clock skew")
	}
	if d.Remaining != 3 {
		t.Fatalf("expected 3 remaining after skewed call, got %d", d.Remaining)
	}

	// Nor may the skewed call rewind lastRefill and grant free refill time.
	d = l.admitAt("skew", now)
	if d.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d (refill time counted twice)", d.Remaining)
	}
}

func TestLimiter_RefillOverRealTime(t *testing.T) {
	// High refill rate so the test only sleeps a few milliseconds.
	l := newTestLimiter(t, Config{Capacity: 1, RefillPerSec: 100})

	if d := l.Admit("fast"); !d.Allowed {
		t.Fatalf("first request: expected allowed")
	}
	if d := l.Admit("fast"); d.Allowed {
		t.Fatalf("second request: expected rejected")
	}

	time.Sleep(15 * time.Millisecond)

	if d := l.Admit("fast"); !d.Allowed {
		t.Fatalf("request after refill window: expected allowed")
	}
}

func TestLimiter_ConcurrentSameKey(t *testing.T) {
	const capacity = 50
	const workers = 20
	const perWorker = 10

	l := newTestLimiter(t, Config{Capacity: capacity, RefillPerSec: 0.001})
	now := time.Now()

	var mu sync.Mutex
	allowed := 0

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if d := l.admitAt("shared", now); d.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// 200 concurrent requests against capacity 50: never over-admit.
	if allowed != capacity {
		t.Fatalf("expected exactly %d admitted under contention, got %d", capacity, allowed)
	}
}

func TestLimiter_ConcurrentDistinctKeys(t *testing.T) {
	l := newTestLimiter(t, Config{Capacity: 1, RefillPerSec: 0.001})
	now := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if d := l.admitAt(fmt.Sprintf("key-%d", i), now); !d.Allowed {
				errs <- fmt.Errorf("key-%d: first request rejected", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestLimiter_SweepEvictsIdleBuckets(t *testing.T) {
	l := newTestLimiter(t, Config{
		Capacity:      5,
		RefillPerSec:  1,
		IdleTTL:       time.Minute,
		SweepInterval: time.Hour, // sweep driven manually below
	})
	now := time.Now()

	l.admitAt("idle", now)
	l.admitAt("busy", now)

	if _, ok := l.buckets.Load("idle"); !ok {
		t.Fatalf("bucket should exist before sweep")
	}

	// "busy" stays fresh, "idle" ages past the TTL.
	l.admitAt("busy", now.Add(2*time.Minute))
	l.sweep(now.Add(2*time.Minute + time.Second))

	if _, ok := l.buckets.Load("idle"); ok {
		t.Fatalf("idle bucket should have been evicted")
	}
	if _, ok := l.buckets.Load("busy"); !ok {
		t.Fatalf("busy bucket should have survived the sweep")
	}

	// An evicted key starts over with a full bucket.
	for i := 0; i < 5; i++ {
		if d := l.admitAt("idle", now.Add(3*time.Minute)); !d.Allowed {
			t.Fatalf("request %d after eviction: expected allowed", i+1)
		}
	}
}

func TestLimiter_CloseIdempotent(t *testing.T) {
	l := New(Config{Capacity: 1, RefillPerSec: 1}, zerolog.Nop())
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
