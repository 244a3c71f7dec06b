// Package retry runs provider calls with a per-attempt timeout, bounded
// retries on transient errors and optional rate limiting.
package retry

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/dream-ai/hammond/internal/domain"
)

// Policy configures Do.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// BaseDelay is the first backoff delay, doubled on every retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Limiter, when set, is waited on before every attempt.
	Limiter *rate.Limiter
}

// DefaultPolicy returns a policy with two retries and 200ms..5s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		Timeout:    120 * time.Second,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// NewLimiter returns a limiter for rps requests per second, or nil when rps is not positive.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Do calls fn until it succeeds, returns a non-transient error, or retries are
// exhausted. It returns the number of attempts made and the last error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	for {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return attempts, err
			}
		}

		attempts++
		err := attempt(ctx, p.Timeout, fn)
		if err == nil {
			return attempts, nil
		}
		if ctx.Err() != nil {
			return attempts, ctx.Err()
		}
		if !domain.IsTransient(err) || attempts > p.MaxRetries {
			return attempts, err
		}

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(p.delay(attempts - 1)):
		}
	}
}

func attempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(actx)
	// a per-attempt deadline is retryable while the caller is still waiting
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return domain.Transient(err)
	}
	return err
}

func (p Policy) delay(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << retry
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}
