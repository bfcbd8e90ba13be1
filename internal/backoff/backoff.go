// Package backoff runs an operation with bounded, exponentially spaced attempts.
//
// The default configuration makes exactly one attempt: callers that want
// automatic retry opt in by raising MaxAttempts.
package backoff

import (
	"context"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Default values
const (
	DefaultBaseDelay  = 100 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultMultiplier = 2.0
)

// Config configures exponential backoff retry behavior
type Config struct {
	MaxAttempts int           // Total attempts including the first; values < 1 mean 1
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound on any single delay
	Multiplier  float64       // Growth factor between delays
}

// Default returns a single-attempt configuration
func Default() Config {
	return Config{
		MaxAttempts: 1,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// WithAttempts returns the default configuration with n attempts
func WithAttempts(n int) Config {
	cfg := Default()
	cfg.MaxAttempts = n
	return cfg
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return cbackoff.Permanent(err)
}

// Policy builds the backoff schedule for cfg, bound to ctx
func Policy(ctx context.Context, cfg Config) cbackoff.BackOff {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := cfg.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	mult := cfg.Multiplier
	if mult < 1 {
		mult = DefaultMultiplier
	}

	exp := cbackoff.NewExponentialBackOff(
		cbackoff.WithInitialInterval(base),
		cbackoff.WithMaxInterval(maxDelay),
		cbackoff.WithMultiplier(mult),
		cbackoff.WithMaxElapsedTime(0),
	)
	return cbackoff.WithContext(cbackoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do executes fn until it succeeds, returns a Permanent error, the context
// ends, or the attempts are exhausted. A Permanent error is returned
// unwrapped.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	return cbackoff.RetryWithData(func() (T, error) {
		return fn(ctx)
	}, Policy(ctx, cfg))
}
