package rate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter spaces out profile requests with random jitter. Callers are served
// in the order they reserve a slot.
type Limiter struct {
	mu          sync.Mutex
	nextSlot    time.Time
	minInterval time.Duration
	maxJitter   time.Duration
	now         func() time.Time
}

// New creates a rate limiter with base interval and jitter.
// For example, baseInterval=1s and jitter=200ms will result in delays between 800ms-1200ms.
func New(baseInterval, jitter time.Duration) *Limiter {
	return &Limiter{
		minInterval: max(baseInterval, 0),
		maxJitter:   max(min(jitter, baseInterval), 0),
		now:         time.Now,
	}
}

// Interval returns the current jittered spacing between two requests.
func (r *Limiter) Interval() time.Duration {
	if r.maxJitter <= 0 {
		return r.minInterval
	}

	offset := time.Duration(rand.Int64N(int64(r.maxJitter*2))) - r.maxJitter //nolint:gosec // jitter only

	return r.minInterval + offset
}

// reserve books the next free slot and returns how long the caller must wait.
func (r *Limiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	slot := r.nextSlot
	if slot.Before(now) {
		slot = now
	}

	r.nextSlot = slot.Add(r.Interval())

	return slot.Sub(now)
}

// WaitForNextSlot blocks until the caller's reserved slot arrives.
func (r *Limiter) WaitForNextSlot(ctx context.Context) error {
	wait := r.reserve()
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
