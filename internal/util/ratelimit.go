package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces outbound market-data requests to a per-minute budget by
// enforcing a minimum interval between calls. Alpaca meters by requests per
// minute, so an even spacing keeps a parallel analysis run under the cap
// without bursting.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest start of the next request
}

// NewRateLimiter creates a RateLimiter budgeted at perMinute requests per
// minute. Non-positive budgets fall back to one request per second.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{interval: time.Minute / time.Duration(perMinute)}
}

// Wait blocks until this caller's request slot arrives or the context is
// cancelled. Concurrent callers are queued in claim order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	if rl.next.Before(now) {
		rl.next = now
	}
	wait := rl.next.Sub(now)
	rl.next = rl.next.Add(rl.interval)
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
