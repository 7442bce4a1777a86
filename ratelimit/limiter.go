// Package ratelimit implements scheduler.RateLimiter with a per-app token
// bucket from golang.org/x/time/rate, gating how often terminal-status
// scale events may fire.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// defaultBurst lets one token accumulate beyond the steady rate so the
// first terminal status after a quiet period isn't needlessly delayed.
const defaultBurst = 1

// Limiter tracks one token bucket per app id.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New constructs an empty Limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*rate.Limiter)}
}

// SetPermits (re)configures the steady-state rate (tokens/sec) for appID.
// A rate of zero or less disables the bucket for that app, so TryAcquire
// always returns false for it until SetPermits is called again with a
// positive rate.
func (l *Limiter) SetPermits(appID string, ratePerSec float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ratePerSec <= 0 {
		delete(l.buckets, appID)
		return
	}
	if b, ok := l.buckets[appID]; ok {
		b.SetLimit(rate.Limit(ratePerSec))
		return
	}
	l.buckets[appID] = rate.NewLimiter(rate.Limit(ratePerSec), defaultBurst)
}

// TryAcquire attempts to take one token for appID, returning false
// immediately if none is available or none was ever configured.
func (l *Limiter) TryAcquire(appID string) bool {
	l.mu.Lock()
	b, ok := l.buckets[appID]
	l.mu.Unlock()
	if !ok {
		return false
	}
	return b.Allow()
}
