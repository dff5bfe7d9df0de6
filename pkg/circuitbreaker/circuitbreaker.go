// Package circuitbreaker stops calling an optional dependency after it keeps
// failing. Classpoint puts one in front of the Redis snapshot cache and one
// in front of the Redis event fan-out, so a dead Redis costs a ledger
// operation nothing once the breaker is open.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker. The numeric values are exported as a gauge.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected with ErrCircuitOpen
	StateHalfOpen              // a limited number of probe calls pass through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned instead of calling the dependency.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configure a breaker.
type Settings struct {
	Name string

	// Failures in a row that open the breaker.
	Failures int

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// Probes is the number of concurrent calls allowed while half-open. One
	// successful probe closes the breaker, one failed probe reopens it.
	Probes int

	OnStateChange func(name string, from, to State)

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  int
}

// New creates a closed breaker.
func New(s Settings) *CircuitBreaker {
	if s.Failures < 1 {
		s.Failures = 1
	}
	if s.Probes < 1 {
		s.Probes = 1
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	return &CircuitBreaker{settings: s}
}

// Execute calls fn unless the breaker is open. Errors from fn count as
// failures; ErrCircuitOpen is returned without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.release(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.settings.Clock().Sub(cb.openedAt) < cb.settings.Cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.probing >= cb.settings.Probes {
			return ErrCircuitOpen
		}
		cb.probing++
	}
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		if cb.probing > 0 {
			cb.probing--
		}
		if err != nil {
			cb.open()
		} else {
			cb.transition(StateClosed)
		}
		return
	}

	if err == nil {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.state == StateClosed && cb.failures >= cb.settings.Failures {
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.settings.Clock()
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures = 0
	cb.probing = 0
	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

// State returns the current state. An open breaker whose cooldown has passed
// still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.settings.Name
}

// ──────────────────────────────────────────────────────────────────────────────
// Presets
// ──────────────────────────────────────────────────────────────────────────────

// CacheBreaker guards the Redis snapshot cache. It opens after three misses
// so reads fall through to the primary store quickly.
func CacheBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:          "redis-cache",
		Failures:      3,
		Cooldown:      15 * time.Second,
		Probes:        1,
		OnStateChange: onStateChange,
	})
}

// FanoutBreaker guards event publishing to Redis.
func FanoutBreaker(onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(Settings{
		Name:          "redis-fanout",
		Failures:      5,
		Cooldown:      30 * time.Second,
		Probes:        2,
		OnStateChange: onStateChange,
	})
}
