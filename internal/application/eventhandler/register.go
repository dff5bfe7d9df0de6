package eventhandler

import (
	"fmt"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
)

// Options holds the optional collaborators of Register.
type Options struct {
	Features     FeatureChecker
	LevelUpFlag  string
	Logger       *logger.Logger
	ObserveEvent shared.EventHandler
}

// Register subscribes the standard handlers to bus and returns the level-up
// handler so callers can inspect it.
func Register(bus shared.EventSubscriber, opts Options) (*OnLevelUpHandler, error) {
	levelUp := NewOnLevelUpHandler(opts.Features, opts.LevelUpFlag, opts.Logger)
	if err := bus.Subscribe(shared.EventLevelUp, levelUp.Handle); err != nil {
		return nil, fmt.Errorf("subscribe level up: %w", err)
	}

	roster := NewOnRosterChangedHandler(opts.Logger)
	for _, t := range RosterEvents() {
		if err := bus.Subscribe(t, roster.Handle); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", t, err)
		}
	}

	if opts.ObserveEvent != nil {
		if err := bus.SubscribeAll(opts.ObserveEvent); err != nil {
			return nil, fmt.Errorf("subscribe metrics: %w", err)
		}
	}
	return levelUp, nil
}
