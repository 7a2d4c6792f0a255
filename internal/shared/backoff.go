package shared

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type BackoffConfig struct {
	Initial     time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Normalize fills zero fields with defaults.
func (c BackoffConfig) Normalize() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = 200 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 2 * time.Second
	}
	return c
}

// Policy builds the exponential schedule for cfg, bounded by MaxAttempts
// and ctx. The delay doubles up to MaxDelay.
func (c BackoffConfig) Policy(ctx context.Context) backoff.BackOff {
	c = c.Normalize()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.Initial
	exp.MaxInterval = c.MaxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.MaxAttempts-1)), ctx)
}

// Retry calls fn until it succeeds, returns an error retryable rejects, the
// attempts run out, or ctx is done. The last error from fn is returned.
func Retry(ctx context.Context, cfg BackoffConfig, retryable func(error) bool, fn func() error) error {
	var last error
	err := backoff.Retry(func() error {
		last = fn()
		if last != nil && retryable != nil && !retryable(last) {
			return backoff.Permanent(last)
		}
		return last
	}, cfg.Policy(ctx))

	if err != nil && last != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return last
	}
	return err
}
