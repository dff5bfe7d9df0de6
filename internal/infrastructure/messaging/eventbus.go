// Package messaging delivers domain events to in-process handlers and,
// optionally, to other classpoint processes over Redis pub/sub.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
)

var (
	ErrEventBusClosed = errors.New("event bus is closed")
	ErrHandlerPanic   = errors.New("handler panicked")
	errNilHandler     = errors.New("handler cannot be nil")
)

// Observer sees every handler run; metrics.Metrics.ObserveHandler is one.
type Observer func(eventType shared.EventType, duration time.Duration, err error)

// InMemoryEventBusConfig configures NewInMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs each handler on its own goroutine, at most
	// WorkerPoolSize at a time. Otherwise Publish runs handlers inline.
	AsyncMode      bool
	WorkerPoolSize int

	Logger   *logger.Logger
	Observer Observer
}

func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 4}
}

type subscription struct {
	eventType shared.EventType // empty for SubscribeAll
	handler   shared.EventHandler
}

// InMemoryEventBus implements shared.EventBus inside one process. A failing
// or panicking handler is logged and never affects the publisher or the
// other handlers.
type InMemoryEventBus struct {
	asyncMode bool
	workers   *semaphore.Weighted
	log       *logger.Logger
	observer  Observer

	mu     sync.RWMutex
	subs   []subscription
	closed bool

	inflight sync.WaitGroup
	stop     context.Context
	cancel   context.CancelFunc
}

func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 4
	}
	stop, cancel := context.WithCancel(context.Background())
	return &InMemoryEventBus{
		asyncMode: config.AsyncMode,
		workers:   semaphore.NewWeighted(int64(config.WorkerPoolSize)),
		log:       config.Logger.With(logger.Component("eventbus")),
		observer:  config.Observer,
		stop:      stop,
		cancel:    cancel,
	}
}

// Subscribe registers handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if eventType == "" {
		return errors.New("event type cannot be empty")
	}
	if err := b.add(subscription{eventType: eventType, handler: handler}); err != nil {
		return err
	}
	b.log.Debug("subscribed handler", logger.String("event_type", string(eventType)))
	return nil
}

// SubscribeAll registers handler for every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.add(subscription{handler: handler})
}

func (b *InMemoryEventBus) add(s subscription) error {
	if s.handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.subs = append(b.subs, s)
	return nil
}

// Publish hands event to every matching handler, type subscribers first.
// It only fails for a nil event or a closed bus.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	var typed, wildcard []shared.EventHandler
	for _, s := range b.subs {
		switch s.eventType {
		case event.EventType():
			typed = append(typed, s.handler)
		case "":
			wildcard = append(wildcard, s.handler)
		}
	}
	// Counted under the lock so Close cannot miss a delivery.
	if b.asyncMode {
		b.inflight.Add(len(typed) + len(wildcard))
	}
	b.mu.RUnlock()

	for _, h := range append(typed, wildcard...) {
		if !b.asyncMode {
			b.run(event, h)
			continue
		}
		go func() {
			defer b.inflight.Done()
			if err := b.workers.Acquire(b.stop, 1); err != nil {
				return
			}
			defer b.workers.Release(1)
			b.run(event, h)
		}()
	}
	return nil
}

func (b *InMemoryEventBus) run(event shared.Event, h shared.EventHandler) {
	start := time.Now()
	err := b.call(event, h)
	took := time.Since(start)

	if b.observer != nil {
		b.observer(event.EventType(), took, err)
	}
	if err != nil {
		b.log.Error("event handler failed",
			logger.String("event_type", string(event.EventType())),
			logger.Latency(took),
			logger.Err(err),
		)
	}
}

func (b *InMemoryEventBus) call(event shared.Event, h shared.EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				logger.String("event_type", string(event.EventType())),
				logger.Any("panic", r),
			)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(event)
}

// Drain blocks until every published event has been handled.
func (b *InMemoryEventBus) Drain() {
	b.inflight.Wait()
}

// Close rejects new work and waits for pending deliveries.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	b.cancel()
	b.log.Debug("event bus closed")
	return nil
}
