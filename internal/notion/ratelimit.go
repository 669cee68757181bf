package notion

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a minimum spacing between consecutive API calls. The
// record store throttles aggressively; pacing requests up front avoids most
// 429 responses before the retry layer ever sees them.
type rateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

func newRateLimiter(minInterval time.Duration) *rateLimiter {
	return &rateLimiter{minInterval: minInterval}
}

// wait blocks until the minimum interval since the previous call has elapsed
// or the context is cancelled.
func (r *rateLimiter) wait(ctx context.Context) error {
	if r.minInterval <= 0 {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.minInterval)
	if next.Before(now) {
		next = now
	}
	r.last = next
	r.mu.Unlock()

	pause := time.Until(next)
	if pause <= 0 {
		return nil
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
