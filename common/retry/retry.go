// Package retry provides exponential backoff for transient platform errors.
//
// Two shapes are offered: Do for bounded "try a few times then give up"
// calls, and Backoff for long-lived reconnect loops that never give up but
// must not hammer a struggling server.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls the behaviour of Do.
type Config struct {
	// MaxAttempts is the total number of attempts including the first.
	// Zero or negative values are treated as 1 (no retries).
	MaxAttempts int
	// InitialDelay is the wait before the second attempt; subsequent delays
	// double up to MaxDelay.
	InitialDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// ShouldRetry optionally classifies errors as retryable. When nil, every
	// non-nil error is retried.
	ShouldRetry func(err error) bool
}

// DefaultConfig suits short-lived network calls.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
}

// Do calls fn up to cfg.MaxAttempts times, backing off exponentially between
// attempts. It stops early when ctx is cancelled or fn returns nil. The error
// from the last attempt is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(err error) bool { return true }
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxAttempts {
			slog.Debug("retry: attempt failed, retrying",
				"attempt", attempt, "max", cfg.MaxAttempts,
				"err", lastErr, "delay", delay)

			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}

			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return lastErr
}

// Backoff produces an unbounded doubling delay sequence for reconnect loops.
// The zero value is not usable; construct with NewBackoff.
type Backoff struct {
	min   time.Duration
	max   time.Duration
	delay time.Duration
}

// NewBackoff returns a Backoff that starts at min and doubles up to max.
func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = DefaultConfig.InitialDelay
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max, delay: min}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence.
func (b *Backoff) Next() time.Duration {
	d := b.delay
	b.delay *= 2
	if b.delay > b.max {
		b.delay = b.max
	}
	return d
}

// Reset restarts the sequence at the minimum delay. Call after a successful
// attempt so a later outage starts from the short end again.
func (b *Backoff) Reset() {
	b.delay = b.min
}
