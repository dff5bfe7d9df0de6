package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/redis"
	"github.com/lhtc/classpoint/pkg/circuitbreaker"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisClient is the pub/sub surface the fan-out bus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, pattern string) (<-chan RedisMessage, func() error, error)
}

// RedisMessage represents a message received from Redis pub/sub.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisEventBus delivers events to local handlers and mirrors them to
// Redis so other processes (the API server and the CLI) see each other's
// changes. Remote events are delivered to local handlers only.
type RedisEventBus struct {
	client     RedisClient
	localBus   *InMemoryEventBus
	instanceID string
	breaker    *circuitbreaker.CircuitBreaker
	log        *logger.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	unsub      func() error
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client RedisClient

	// InstanceID filters self-published events (default: random UUID)
	InstanceID string

	LocalBus *InMemoryEventBus

	// Breaker guards publishing (default: FanoutBreaker preset)
	Breaker *circuitbreaker.CircuitBreaker

	Logger *logger.Logger
}

// NewRedisEventBus subscribes to the event channels and starts the listener.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.LocalBus == nil {
		config.LocalBus = NewInMemoryEventBus(InMemoryEventBusConfig{Logger: config.Logger})
	}

	log := config.Logger.With(logger.Component("redis-eventbus"))
	if config.Breaker == nil {
		config.Breaker = circuitbreaker.FanoutBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, unsub, err := config.Client.Subscribe(ctx, redis.PubSubChannel("*"))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	bus := &RedisEventBus{
		client:     config.Client,
		localBus:   config.LocalBus,
		instanceID: config.InstanceID,
		breaker:    config.Breaker,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		unsub:      unsub,
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		bus.subscriptionLoop(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish delivers the event locally and best-effort to Redis.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := encodeMessage(b.instanceID, event)
	if err != nil {
		return err
	}

	err = b.breaker.Execute(b.ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.client.Publish(ctx, redis.PubSubChannel(string(event.EventType())), data)
	})
	if err != nil {
		b.log.Warn("event fan-out failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) subscriptionLoop(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleRedisMessage(msg)
		}
	}
}

func (b *RedisEventBus) handleRedisMessage(msg RedisMessage) {
	instanceID, event, err := decodeMessage([]byte(msg.Payload))
	if err != nil {
		b.log.Error("failed to decode remote event", logger.String("channel", msg.Channel), logger.Err(err))
		return
	}
	if instanceID == b.instanceID {
		return
	}
	if err := b.localBus.Publish(event); err != nil {
		b.log.Error("failed to process remote event", logger.Err(err))
	}
}

// Close stops the listener and closes the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	if b.unsub != nil {
		if err := b.unsub(); err != nil {
			b.log.Warn("unsubscribe failed", logger.Err(err))
		}
	}
	b.wg.Wait()
	return b.localBus.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

// envelope is the JSON form of an event on the wire.
type envelope struct {
	ID          string           `json:"id"`
	Type        shared.EventType `json:"type"`
	AggregateID string           `json:"aggregate_id"`
	Timestamp   time.Time        `json:"timestamp"`
	Version     int              `json:"version"`
	Payload     json.RawMessage  `json:"payload"`
}

type wireMessage struct {
	InstanceID string   `json:"instance_id"`
	Event      envelope `json:"event"`
}

func encodeMessage(instanceID string, event shared.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return json.Marshal(wireMessage{
		InstanceID: instanceID,
		Event: envelope{
			ID:          uuid.NewString(),
			Type:        event.EventType(),
			AggregateID: event.AggregateID(),
			Timestamp:   event.OccurredAt(),
			Version:     1,
			Payload:     payload,
		},
	})
}

func decodeMessage(data []byte) (string, shared.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", nil, err
	}
	var payload map[string]any
	if len(msg.Event.Payload) > 0 {
		if err := json.Unmarshal(msg.Event.Payload, &payload); err != nil {
			return "", nil, err
		}
	}
	return msg.InstanceID, &remoteEvent{envelope: msg.Event, payload: payload}, nil
}

// remoteEvent is an event received from another process.
type remoteEvent struct {
	envelope envelope
	payload  map[string]any
}

func (e *remoteEvent) EventType() shared.EventType { return e.envelope.Type }
func (e *remoteEvent) AggregateID() string         { return e.envelope.AggregateID }
func (e *remoteEvent) OccurredAt() time.Time       { return e.envelope.Timestamp }
func (e *remoteEvent) Payload() map[string]any     { return e.payload }

// ══════════════════════════════════════════════════════════════════════════════
// GO-REDIS ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

type goRedisClient struct {
	cache *redis.Cache
}

// NewGoRedisClient adapts the Redis cache client to RedisClient.
func NewGoRedisClient(cache *redis.Cache) RedisClient {
	return &goRedisClient{cache: cache}
}

func (c *goRedisClient) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.cache.Publish(ctx, channel, payload)
}

func (c *goRedisClient) Subscribe(ctx context.Context, pattern string) (<-chan RedisMessage, func() error, error) {
	ps := c.cache.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan RedisMessage)
	in := ps.Channel()
	go func() {
		defer close(out)
		for m := range in {
			select {
			case out <- toRedisMessage(m):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}

func toRedisMessage(m *goredis.Message) RedisMessage {
	return RedisMessage{Channel: m.Channel, Payload: m.Payload}
}
