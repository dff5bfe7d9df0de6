package eventhandler

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/internal/infrastructure/messaging"
	"github.com/lhtc/classpoint/pkg/logger"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBus(t *testing.T, out *syncBuffer) (*messaging.InMemoryEventBus, *logger.Logger) {
	t.Helper()
	log := logger.New(logger.Options{Output: out, Level: logger.LevelInfo})
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	t.Cleanup(func() { _ = bus.Close() })
	return bus, log
}

func TestCelebration(t *testing.T) {
	assert.Equal(t, "🌱 An reached Nảy mầm", Celebration("An", student.LevelSprout))
}

func TestRegister_LevelUpAndMetrics(t *testing.T) {
	var out syncBuffer
	bus, log := newBus(t, &out)

	var mu sync.Mutex
	var observed []shared.EventType
	observe := func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, e.EventType())
		return nil
	}

	flags := config.LoadFeatureFlags()
	levelUp, err := Register(bus, Options{
		Features:     flags,
		LevelUpFlag:  config.FeatureLevelUpCelebrations,
		Logger:       log,
		ObserveEvent: observe,
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "nay-mam", 20)))
	require.NoError(t, bus.Publish(shared.NewPointsChangedEvent("s1", "c1", 20, 20, "Quiz")))
	bus.Drain()

	assert.Equal(t, 1, levelUp.Celebrated(student.LevelSprout))
	assert.Contains(t, out.String(), "An reached Nảy mầm")

	mu.Lock()
	assert.ElementsMatch(t, []shared.EventType{shared.EventLevelUp, shared.EventPointsChanged}, observed)
	mu.Unlock()
}

func TestOnLevelUp_FlagOff(t *testing.T) {
	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.Set(config.FeatureLevelUpCelebrations, false))

	h := NewOnLevelUpHandler(flags, config.FeatureLevelUpCelebrations, nil)
	require.NoError(t, h.Handle(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "cay-to", 120)))
	assert.Zero(t, h.Celebrated(student.LevelTree))
}

func TestOnLevelUp_BadInput(t *testing.T) {
	h := NewOnLevelUpHandler(nil, "", nil)

	assert.NoError(t, h.Handle(shared.NewPointsChangedEvent("s1", "c1", 1, 1, "x")))
	assert.Error(t, h.Handle(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "forest", 500)))
}

func TestOnRosterChanged_Levels(t *testing.T) {
	var out syncBuffer
	h := NewOnRosterChangedHandler(logger.New(logger.Options{Output: &out, Level: logger.LevelInfo}))

	require.NoError(t, h.Handle(shared.NewStudentAddedEvent("s1", "c1", "An")))
	require.NoError(t, h.Handle(shared.NewClassEvent(shared.EventClassCleared, "c1", "6A", 12)))
	require.NoError(t, h.Handle(shared.NewRewardCatalogChangedEvent("reset", "", 6)))
	require.NoError(t, h.Handle(shared.NewLevelUpEvent("s1", "An", "c1", "hat", "nay-mam", 20)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"INFO"`)
	assert.Contains(t, lines[1], `"WARN"`)
	assert.Contains(t, lines[1], `"count":12`)
	assert.Contains(t, lines[2], `"action":"reset"`)
}
