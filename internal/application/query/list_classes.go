package query

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/classroom"
)

// ListClassesResult lists every class with its size.
type ListClassesResult struct {
	Classes       []ClassDTO `json:"classes"`
	ActiveClassID string     `json:"active_class_id"`
}

// ListClassesHandler lists classes in creation order.
type ListClassesHandler struct {
	reader StateReader
}

// NewListClassesHandler creates a new ListClassesHandler.
func NewListClassesHandler(reader StateReader) *ListClassesHandler {
	return &ListClassesHandler{reader: reader}
}

// Handle executes the query.
func (h *ListClassesHandler) Handle(ctx context.Context) (*ListClassesResult, error) {
	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ClassDTO, len(state.Classes))
	for i, c := range state.Classes {
		out[i] = newClassDTO(state, c)
	}
	return &ListClassesResult{Classes: out, ActiveClassID: state.ActiveClassID}, nil
}

func newClassDTO(state classroom.State, c classroom.ClassGroup) ClassDTO {
	return ClassDTO{
		ID:       c.ID,
		Name:     c.Name,
		Students: state.CountInClass(c.ID),
		Active:   c.ID == state.ActiveClassID,
	}
}
