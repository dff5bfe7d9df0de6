// Package retry repeats storage calls with exponential backoff. It guards
// the first connection to PostgreSQL and transient snapshot reads and
// writes.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RETRYABLE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy describes how often and how long to retry.
type Policy struct {
	// Attempts counts the first call too. Values below 1 mean one call.
	Attempts int

	// BaseDelay is the wait after the first failure; it doubles per attempt
	// up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter spreads each wait by ±Jitter of its length (0..1).
	Jitter float64

	// ShouldRetry decides whether err is worth another attempt. Nil means
	// IsRetryable.
	ShouldRetry func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retrier runs operations under a Policy.
type Retrier struct {
	policy Policy
}

// New creates a Retrier.
func New(p Policy) *Retrier {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = IsRetryable
	}
	return &Retrier{policy: p}
}

// Do calls op until it succeeds, fails with an error the policy does not
// retry, attempts run out or ctx ends. The retryable marker is stripped from
// the returned error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= r.policy.Attempts || !r.policy.ShouldRetry(err) {
			return unmark(err)
		}

		delay := r.Backoff(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(err)
		case <-timer.C:
		}
	}
}

// Backoff returns the wait after the given failed attempt.
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := r.policy.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if r.policy.MaxDelay > 0 && d >= r.policy.MaxDelay {
			break
		}
	}
	if r.policy.MaxDelay > 0 && d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	if j := r.policy.Jitter; j > 0 {
		d += time.Duration(float64(d) * j * (rand.Float64()*2 - 1))
	}
	return max(d, 0)
}

func unmark(err error) error {
	var r *retryableError
	if errors.As(err, &r) && err == error(r) {
		return r.err
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Presets
// ──────────────────────────────────────────────────────────────────────────────

// ConnectRetrier retries every error; a database container may still be
// starting when classpoint boots.
func ConnectRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(Policy{
		Attempts:    5,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
		ShouldRetry: func(error) bool { return true },
		OnRetry:     onRetry,
	})
}

// SnapshotRetrier retries snapshot reads and writes that the backend marked
// with Retryable.
func SnapshotRetrier() *Retrier {
	return New(Policy{
		Attempts:  3,
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  time.Second,
		Jitter:    0.05,
	})
}
