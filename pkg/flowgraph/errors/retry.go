package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds how often a dependency call is repeated and how long
// the caller waits between attempts.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. Each later
	// wait is multiplied by BackoffFactor and capped at MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64

	// Jitter spreads each wait by up to +/- Jitter of its length.
	Jitter float64
}

// ModelRetry is used for language model calls made while a user waits.
// It gives up quickly so the fallback tier still answers in time.
var ModelRetry = RetryConfig{
	MaxAttempts:    2,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.2,
}

// NoRetry makes exactly one attempt.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the attempt budget; n below 1 is raised to 1.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxAttempts = max(1, n)
	}
}

// WithInitialBackoff sets the first wait. Zero keeps the current value.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		if d > 0 {
			cfg.InitialBackoff = d
		}
	}
}

// WithMaxBackoff caps every wait. Zero keeps the current value.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		if d > 0 {
			cfg.MaxBackoff = d
		}
	}
}

// NewRetryConfig starts from ModelRetry and applies opts in order.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := ModelRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// wait returns the pause after the given failed attempt (0-based).
func (cfg RetryConfig) wait(attempt int) time.Duration {
	d := float64(cfg.InitialBackoff)
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for range attempt {
		d *= factor
		if cfg.MaxBackoff > 0 && d >= float64(cfg.MaxBackoff) {
			d = float64(cfg.MaxBackoff)
			break
		}
	}
	if cfg.MaxBackoff > 0 && d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	return jitter(time.Duration(d), cfg.Jitter)
}

func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*frac*(rand.Float64()*2-1))
}

// RetryResult reports the outcome of Retry.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// Retry calls fn until it succeeds, returns an error IsRetryable rejects,
// ctx ends, or the attempt budget is spent. A failed result's Err is a
// *CategorizedError wrapping the last error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	attempts := max(1, cfg.MaxAttempts)

	fail := func(n int, err error, cat Category, note string) RetryResult[T] {
		return RetryResult[T]{
			Err:      &CategorizedError{Err: err, Category: cat, Retries: n, Context: note},
			Attempts: n,
			Duration: time.Since(start),
		}
	}

	var last error
	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return fail(n-1, err, CategoryPermanent, "context cancelled")
		}

		v, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: v, Attempts: n, Duration: time.Since(start)}
		}
		last = err
		if !IsRetryable(err) {
			return fail(n, err, Categorize(err), "")
		}
		if n == attempts {
			break
		}

		timer := time.NewTimer(cfg.wait(n - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fail(n, ctx.Err(), CategoryPermanent, "context cancelled during backoff")
		case <-timer.C:
		}
	}
	return fail(attempts, last, Categorize(last), "max retries exceeded")
}
