// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"sync"
	"time"
)

// IntervalLimiter enforces a minimum spacing between calls. Each
// external catalog provider owns one limiter, so rate expectations are
// honored per provider regardless of how many workers are enriching.
//
// The zero interval disables limiting. The limiter is safe for
// concurrent use; callers queue on an internal mutex so waits serialize.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewIntervalLimiter returns a limiter with the given minimum spacing.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait blocks until at least the configured interval has elapsed since
// the previous call returned, or until ctx is cancelled.
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if wait := l.interval - now.Sub(l.last); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	l.last = time.Now()
	return nil
}
