package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemoryEventBus_DeliversByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var levelUps, all int
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { levelUps++; return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return nil }))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "nay-mam", 20)))
	require.NoError(t, bus.Publish(shared.NewPointsChangedEvent("s1", "c1", 5, 20, "Thưởng điểm")))

	assert.Equal(t, 1, levelUps)
	assert.Equal(t, 2, all)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	var observed []error
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		Observer: func(_ shared.EventType, _ time.Duration, err error) { observed = append(observed, err) },
	})
	bus.asyncMode = false
	defer bus.Close()

	called := false
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return errors.New("nope") }))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { called = true; return nil }))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "nay-mam", 20)))

	assert.True(t, called)
	require.Len(t, observed, 3)
	assert.ErrorIs(t, observed[0], ErrHandlerPanic)
	assert.EqualError(t, observed[1], "nope")
	assert.NoError(t, observed[2])
}

func TestInMemoryEventBus_AsyncAndClose(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { n.Add(1); return nil }))
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewStudentAddedEvent("s", "c", "n")))
	}
	bus.Drain()
	assert.Equal(t, int32(10), n.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewStudentAddedEvent("s", "c", "n")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

// fakeBroker fans messages out to every subscriber like Redis pub/sub.
type fakeBroker struct {
	mu   sync.Mutex
	subs []chan RedisMessage
}

func (b *fakeBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		s <- RedisMessage{Channel: channel, Payload: string(payload)}
	}
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan RedisMessage, func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan RedisMessage, 16)
	b.subs = append(b.subs, ch)
	return ch, func() error { return nil }, nil
}

func TestRedisEventBus_FansOutToOtherInstances(t *testing.T) {
	broker := &fakeBroker{}

	a, err := NewRedisEventBus(RedisEventBusConfig{Client: broker, InstanceID: "a", LocalBus: syncBus()})
	require.NoError(t, err)
	defer a.Close()

	received := make(chan shared.Event, 4)
	b, err := NewRedisEventBus(RedisEventBusConfig{Client: broker, InstanceID: "b", LocalBus: syncBus()})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Subscribe(shared.EventRewardRedeemed, func(e shared.Event) error {
		received <- e
		return nil
	}))

	var localA int
	require.NoError(t, a.SubscribeAll(func(shared.Event) error { localA++; return nil }))

	require.NoError(t, a.Publish(shared.NewRewardRedeemedEvent("s1", "c1", "r1", "Sticker", 10, 40)))

	select {
	case e := <-received:
		assert.Equal(t, shared.EventRewardRedeemed, e.EventType())
		assert.Equal(t, "s1", e.AggregateID())
		assert.Equal(t, "Sticker", e.Payload()["reward_name"])
	case <-time.After(2 * time.Second):
		t.Fatal("remote event not delivered")
	}

	// The publishing instance ignores its own echo.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, localA)
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, _, err := decodeMessage([]byte("{"))
	assert.Error(t, err)
}
