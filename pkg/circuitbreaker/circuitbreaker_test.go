package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errDown = errors.New("redis down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2025, 9, 5, 7, 30, 0, 0, time.UTC)
	var transitions []string

	cb := New(Settings{
		Name:     "test",
		Failures: 2,
		Cooldown: 10 * time.Second,
		Clock:    func() time.Time { return now },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(11 * time.Second)
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2025, 9, 5, 7, 30, 0, 0, time.UTC)
	cb := New(Settings{Failures: 1, Cooldown: time.Second, Clock: func() time.Time { return now }})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen, "cooldown restarts after a failed probe")
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	cb := New(Settings{Failures: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, ok)
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestPresets(t *testing.T) {
	cb := CacheBreaker(nil)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "redis-cache", cb.Name())
	assert.Equal(t, "redis-fanout", FanoutBreaker(nil).Name())
}
