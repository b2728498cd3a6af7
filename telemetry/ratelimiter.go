package telemetry

import (
	"sync"
	"time"
)

// RateLimiter is a minimal token-bucket-of-one limiter used to keep a noisy
// failing stage from flooding the error log.
type RateLimiter struct {
	interval time.Duration
	lastTime time.Time
	mu       sync.Mutex
}

// NewRateLimiter constructs a limiter allowing at most one Allow() per
// interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Allow reports whether the caller may proceed now.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastTime) >= r.interval {
		r.lastTime = now
		return true
	}
	return false
}
