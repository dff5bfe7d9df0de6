package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errLocked = errors.New("database is locked")

func fast(attempts int) Policy {
	return Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_RetriesMarkedErrors(t *testing.T) {
	calls := 0
	err := New(fast(5)).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errLocked)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PlainErrorIsFinal(t *testing.T) {
	calls := 0
	err := New(fast(5)).Do(context.Background(), func(context.Context) error {
		calls++
		return errLocked
	})

	assert.ErrorIs(t, err, errLocked)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsAndUnmarks(t *testing.T) {
	var retried []int
	p := fast(3)
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	err := New(p).Do(context.Background(), func(context.Context) error {
		return Retryable(errLocked)
	})

	assert.Equal(t, errLocked, err)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_KeepsWrappedMarker(t *testing.T) {
	err := New(fast(1)).Do(context.Background(), func(context.Context) error {
		return fmt.Errorf("save: %w", Retryable(errLocked))
	})
	assert.ErrorIs(t, err, errLocked)
	assert.True(t, IsRetryable(err))
}

func TestDo_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 10, BaseDelay: time.Hour, OnRetry: func(int, error, time.Duration) { cancel() }}

	calls := 0
	err := New(p).Do(ctx, func(context.Context) error {
		calls++
		return Retryable(errLocked)
	})

	assert.Equal(t, errLocked, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	r := New(Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, r.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, r.Backoff(2))
	assert.Equal(t, 800*time.Millisecond, r.Backoff(4))
	assert.Equal(t, time.Second, r.Backoff(5))
	assert.Equal(t, time.Second, r.Backoff(30))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 5, ConnectRetrier(nil).policy.Attempts)
	assert.True(t, ConnectRetrier(nil).policy.ShouldRetry(errLocked))
	assert.False(t, SnapshotRetrier().policy.ShouldRetry(errLocked))
}
