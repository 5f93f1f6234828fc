// Package policy guards outbound calls with two composable rules: a minimum
// interval between calls of the same operation, and retries with exponential
// backoff for transient failures.
package policy

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

var retriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "leadgen_policy_retries_total",
	Help: "Retry attempts made by the outbound call policy, by operation.",
}, []string{"operation"})

// Collector exposes the retry counter for registration on a metrics registry.
func Collector() prometheus.Collector { return retriesTotal }

// Policy applies rate limiting and retry-with-backoff to an operation.
// A Policy is safe for concurrent use when its Limiter is.
type Policy struct {
	limiter     Limiter
	minInterval time.Duration
	maxRetries  int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Settings configure a Policy.
type Settings struct {
	MinInterval time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
}

// New builds a Policy. A nil limiter gets a private LocalLimiter; pass a
// shared one when several workers call the same provider.
func New(limiter Limiter, s Settings) *Policy {
	if limiter == nil {
		limiter = NewLocalLimiter()
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.BaseDelay <= 0 {
		s.BaseDelay = 2 * time.Second
	}
	return &Policy{
		limiter:     limiter,
		minInterval: s.MinInterval,
		maxRetries:  s.MaxRetries,
		baseDelay:   s.BaseDelay,
		sleep:       sleepContext,
	}
}

// MaxRetries returns the number of retries after the first attempt.
func (p *Policy) MaxRetries() int { return p.maxRetries }

// Delay returns the wait before retry n (1-indexed): base * 2^(n-1).
func (p *Policy) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return p.baseDelay * time.Duration(1<<uint(n-1))
}

// Execute waits for op's rate-limit slot and runs fn, retrying transient
// failures up to MaxRetries times. Permanent failures are returned at once.
// When retries run out the last failure is returned unchanged.
func (p *Policy) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := p.limiter.Wait(ctx, op, p.minInterval); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.maxRetries || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		delay := p.Delay(attempt + 1)
		logger.Warn("retrying operation",
			"operation", op,
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"delay", delay,
			"error", err,
		)
		retriesTotal.WithLabelValues(op).Inc()

		if serr := p.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// Do is Execute for operations that return a value.
func Do[T any](ctx context.Context, p *Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Execute(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
