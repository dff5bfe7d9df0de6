package command

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS COMMANDS
// Confirmation of destructive operations (delete, clear) belongs to the
// caller; these handlers only enforce the domain guards.
// ══════════════════════════════════════════════════════════════════════════════

// CreateClassCommand creates a class and makes it active.
type CreateClassCommand struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// RenameClassCommand renames a class.
type RenameClassCommand struct {
	ClassID string `json:"class_id" validate:"required"`
	Name    string `json:"name" validate:"notblank,max=100"`
}

// ClassIDCommand addresses a class by id. It is used for delete, select
// and clear.
type ClassIDCommand struct {
	ClassID string `json:"class_id" validate:"required"`
}

// ClearClassResult reports how many students were removed.
type ClearClassResult struct {
	Class   classroom.ClassGroup
	Removed int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ClassHandler handles class lifecycle commands.
type ClassHandler struct {
	workspace *Workspace
	registry  *classroom.Registry
	log       *logger.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(ws *Workspace, stamp shared.Stamper, log *logger.Logger) *ClassHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ClassHandler{
		workspace: ws,
		registry:  classroom.NewRegistry(stamp),
		log:       log.With(logger.Component("classes")),
	}
}

// Create adds a class.
func (h *ClassHandler) Create(ctx context.Context, cmd CreateClassCommand) (classroom.ClassGroup, error) {
	if err := validate("CreateClass", cmd); err != nil {
		return classroom.ClassGroup{}, err
	}
	return h.mutateClass(ctx, "CreateClass", func(state classroom.State) (classroom.State, classroom.ClassGroup, error) {
		return h.registry.AddClass(state, cmd.Name)
	}, shared.EventClassCreated)
}

// Rename changes a class name.
func (h *ClassHandler) Rename(ctx context.Context, cmd RenameClassCommand) (classroom.ClassGroup, error) {
	if err := validate("RenameClass", cmd); err != nil {
		return classroom.ClassGroup{}, err
	}
	return h.mutateClass(ctx, "RenameClass", func(state classroom.State) (classroom.State, classroom.ClassGroup, error) {
		return h.registry.RenameClass(state, cmd.ClassID, cmd.Name)
	}, shared.EventClassRenamed)
}

// Delete removes an empty class.
func (h *ClassHandler) Delete(ctx context.Context, cmd ClassIDCommand) (classroom.ClassGroup, error) {
	if err := validate("DeleteClass", cmd); err != nil {
		return classroom.ClassGroup{}, err
	}
	return h.mutateClass(ctx, "DeleteClass", func(state classroom.State) (classroom.State, classroom.ClassGroup, error) {
		return h.registry.DeleteClass(state, cmd.ClassID)
	}, shared.EventClassDeleted)
}

// Select makes a class active.
func (h *ClassHandler) Select(ctx context.Context, cmd ClassIDCommand) (classroom.ClassGroup, error) {
	if err := validate("SelectClass", cmd); err != nil {
		return classroom.ClassGroup{}, err
	}
	return h.mutateClass(ctx, "SelectClass", func(state classroom.State) (classroom.State, classroom.ClassGroup, error) {
		return h.registry.SelectClass(state, cmd.ClassID)
	}, shared.EventActiveClassChanged)
}

// Clear removes every student of a class.
func (h *ClassHandler) Clear(ctx context.Context, cmd ClassIDCommand) (*ClearClassResult, error) {
	if err := validate("ClearClass", cmd); err != nil {
		return nil, err
	}

	var result ClearClassResult
	_, err := h.workspace.Mutate(ctx, "ClearClass", func(state classroom.State) (classroom.State, []shared.Event, error) {
		class, err := state.FindClass(cmd.ClassID)
		if err != nil {
			return state, nil, err
		}
		next, n, err := h.registry.ClearClass(state, class.ID)
		if err != nil {
			return state, nil, err
		}
		result = ClearClassResult{Class: class, Removed: n}
		return next, []shared.Event{shared.NewClassEvent(shared.EventClassCleared, class.ID, class.Name, n)}, nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Warn("class cleared", logger.ClassID(result.Class.ID), logger.Int("removed", result.Removed))
	return &result, nil
}

func (h *ClassHandler) mutateClass(
	ctx context.Context,
	op string,
	fn func(classroom.State) (classroom.State, classroom.ClassGroup, error),
	eventType shared.EventType,
) (classroom.ClassGroup, error) {
	var class classroom.ClassGroup
	_, err := h.workspace.Mutate(ctx, op, func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, c, err := fn(state)
		if err != nil {
			return state, nil, err
		}
		class = c
		return next, []shared.Event{shared.NewClassEvent(eventType, c.ID, c.Name, next.CountInClass(c.ID))}, nil
	})
	if err != nil {
		return classroom.ClassGroup{}, err
	}

	h.log.Info("class changed", logger.Operation(op), logger.ClassID(class.ID))
	return class, nil
}
