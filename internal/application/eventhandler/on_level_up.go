// Package eventhandler contains reactions to domain events. Handlers run
// after a mutation is persisted and never change classroom state; they
// produce side effects such as log lines and counters.
package eventhandler

import (
	"fmt"
	"sync"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// Announces a student reaching a higher tier. The announcement can be
// switched off with a feature flag.
// ═══════════════════════════════════════════════════════════════════════════

// FeatureChecker reports whether a named feature is on.
type FeatureChecker interface {
	IsEnabled(name string) bool
}

// OnLevelUpHandler handles shared.LevelUpEvent.
type OnLevelUpHandler struct {
	features FeatureChecker
	feature  string
	log      *logger.Logger

	mu      sync.Mutex
	perTier map[student.Level]int
}

// NewOnLevelUpHandler creates the handler. feature names the flag that
// gates announcements; a nil checker means always on.
func NewOnLevelUpHandler(features FeatureChecker, feature string, log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnLevelUpHandler{
		features: features,
		feature:  feature,
		log:      log.With(logger.String("handler", "on_level_up")),
		perTier:  make(map[student.Level]int),
	}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.log.Warn("unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}
	if h.features != nil && !h.features.IsEnabled(h.feature) {
		return nil
	}

	to, ok := student.ParseLevel(e.NewLevel)
	if !ok {
		return fmt.Errorf("level up: unknown level %q", e.NewLevel)
	}

	h.mu.Lock()
	h.perTier[to]++
	h.mu.Unlock()

	h.log.Info(Celebration(e.StudentName, to),
		logger.StudentID(e.StudentID),
		logger.ClassID(e.ClassID),
		logger.String("from", e.OldLevel),
		logger.LevelName(e.NewLevel),
		logger.Points(e.Points),
	)
	return nil
}

// Celebrated returns how many level-ups into l were announced.
func (h *OnLevelUpHandler) Celebrated(l student.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perTier[l]
}

// Celebration formats the announcement line, e.g.
// "🌱 An reached Nảy mầm".
func Celebration(name string, l student.Level) string {
	return fmt.Sprintf("%s %s reached %s", l.Icon(), name, l.Name())
}
