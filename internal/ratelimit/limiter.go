// Package ratelimit implements per-client token bucket admission control.
//
// Each client key owns an independent bucket refilled at a fixed rate up to a
// capacity. A request is admitted when at least one whole token is available.
// Buckets are created lazily (full, so new clients may burst) and evicted by a
// background sweep once idle, bounding memory under many distinct clients.
package ratelimit

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var _ io.Closer = (*Limiter)(nil)

// Config controls bucket arithmetic and eviction.
type Config struct {
	// Capacity is the maximum token count per bucket (burst size).
	Capacity float64
	// RefillPerSec is the token refill rate per second.
	RefillPerSec float64
	// IdleTTL is how long an untouched bucket survives before the sweep
	// evicts it.
	IdleTTL time.Duration
	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Limit echoes the configured capacity for response headers.
	Limit int
	// Remaining is the whole number of tokens left after this check.
	Remaining int
	// RetryAfter is how long until one token is available; zero when allowed.
	RetryAfter time.Duration
}

// bucket holds the state for a single client key. The mutex covers the whole
// read-modify-write so concurrent requests on one key cannot over-admit;
// buckets for distinct keys never share a lock.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// Limiter is a registry of token buckets keyed by client identity.
// Call Close when done to stop the background sweep goroutine.
type Limiter struct {
	capacity  float64
	rate      float64
	idleTTL   time.Duration
	buckets   sync.Map
	log       zerolog.Logger
	stopSweep chan struct{}
	closeOnce sync.Once
}

// New builds a Limiter and starts its eviction sweep.
func New(cfg Config, log zerolog.Logger) *Limiter {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillPerSec <= 0 {
		cfg.RefillPerSec = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	l := &Limiter{
		capacity:  cfg.Capacity,
		rate:      cfg.RefillPerSec,
		idleTTL:   cfg.IdleTTL,
		log:       log,
		stopSweep: make(chan struct{}),
	}

	go l.sweepLoop(cfg.SweepInterval)

	return l
}

// Admit refills the bucket for key and consumes one token if available.
// First-seen keys start with a full bucket.
func (l *Limiter) Admit(key string) Decision {
	return l.admitAt(key, time.Now())
}

func (l *Limiter) admitAt(key string, now time.Time) Decision {
	value, _ := l.buckets.LoadOrStore(key, &bucket{
		tokens:     l.capacity,
		lastRefill: now,
	})
	b := value.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	// Clamp negative elapsed to tolerate clock skew; lastRefill only moves
	// forward so refill time is never counted twice.
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	} else {
		b.lastRefill = now
	}
	b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)

	if b.tokens >= 1 {
		b.tokens--
		return Decision{
			Allowed:   true,
			Limit:     int(l.capacity),
			Remaining: int(b.tokens),
		}
	}

	retryAfter := time.Duration(math.Ceil((1-b.tokens)/l.rate)) * time.Second
	return Decision{
		Allowed:    false,
		Limit:      int(l.capacity),
		RetryAfter: retryAfter,
	}
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopSweep)
	})
	return nil
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now())
		case <-l.stopSweep:
			return
		}
	}
}

// sweep evicts buckets idle longer than the TTL. It runs off the request
// path and takes each bucket's lock only briefly.
func (l *Limiter) sweep(now time.Time) {
	evicted := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastRefill) > l.idleTTL
		b.mu.Unlock()
		if idle {
			l.buckets.Delete(key)
			evicted++
		}
		return true
	})
	if evicted > 0 {
		l.log.Debug().Int("evicted", evicted).Msg("rate limit buckets swept")
	}
}
