package eventhandler

import (
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
)

// OnRosterChangedHandler writes an audit line for registry and catalog
// events. Destructive ones (deleted students, deleted or cleared classes)
// are logged at warn level.
type OnRosterChangedHandler struct {
	log *logger.Logger
}

// NewOnRosterChangedHandler creates the handler.
func NewOnRosterChangedHandler(log *logger.Logger) *OnRosterChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnRosterChangedHandler{log: log.With(logger.String("handler", "on_roster_changed"))}
}

// Handle implements shared.EventHandler.
func (h *OnRosterChangedHandler) Handle(event shared.Event) error {
	fields := []logger.Field{logger.String("event_type", string(event.EventType()))}

	switch e := event.(type) {
	case shared.StudentChangedEvent:
		fields = append(fields, logger.StudentID(e.StudentID), logger.ClassID(e.ClassID))
	case shared.ClassEvent:
		fields = append(fields, logger.ClassID(e.ClassID), logger.Int("count", e.Count))
	case shared.RewardCatalogChangedEvent:
		fields = append(fields, logger.String("action", e.Action), logger.Int("size", e.Size))
		if e.RewardID != "" {
			fields = append(fields, logger.RewardID(e.RewardID))
		}
	default:
		return nil
	}

	switch event.EventType() {
	case shared.EventStudentDeleted, shared.EventClassDeleted, shared.EventClassCleared:
		h.log.Warn("roster changed", fields...)
	default:
		h.log.Info("roster changed", fields...)
	}
	return nil
}

// RosterEvents lists the event types OnRosterChangedHandler is meant for.
func RosterEvents() []shared.EventType {
	return []shared.EventType{
		shared.EventStudentAdded,
		shared.EventStudentDeleted,
		shared.EventStudentsImported,
		shared.EventClassCreated,
		shared.EventClassRenamed,
		shared.EventClassDeleted,
		shared.EventClassCleared,
		shared.EventActiveClassChanged,
		shared.EventRewardCatalogChanged,
	}
}
