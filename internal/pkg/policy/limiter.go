package policy

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between successive calls of the same
// operation. Implementations must be safe for concurrent use: workers that
// hit the same provider share one Limiter so the spacing holds across them.
type Limiter interface {
	Wait(ctx context.Context, op string, interval time.Duration) error
}

// LocalLimiter keeps one next-slot timestamp per operation in process memory.
//
// A caller reserves the next free slot under the lock and then sleeps outside
// it, so concurrent callers are released in reservation order and at least
// interval apart.
type LocalLimiter struct {
	mu    sync.Mutex
	next  map[string]time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		next:  make(map[string]time.Time),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Wait blocks until op may run again.
func (l *LocalLimiter) Wait(ctx context.Context, op string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := l.now()
	slot := now
	if next, ok := l.next[op]; ok && next.After(now) {
		slot = next
	}
	l.next[op] = slot.Add(interval)
	l.mu.Unlock()

	return l.sleep(ctx, slot.Sub(now))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
