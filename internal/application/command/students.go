package command

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand adds one student. An empty ClassID means the active class.
type AddStudentCommand struct {
	ClassID string `json:"class_id"`
	Name    string `json:"name" validate:"notblank,max=100"`
	Order   *int   `json:"order,omitempty" validate:"omitempty,gt=0"`
}

// UpdateStudentCommand changes descriptive fields. Empty or nil fields are
// left untouched.
type UpdateStudentCommand struct {
	StudentID string  `json:"student_id" validate:"required"`
	Name      string  `json:"name,omitempty" validate:"max=100"`
	Order     *int    `json:"order,omitempty" validate:"omitempty,gt=0"`
	Avatar    *string `json:"avatar,omitempty" validate:"omitempty,max=2048"`
}

// DeleteStudentCommand removes a student and their history.
type DeleteStudentCommand struct {
	StudentID string `json:"student_id" validate:"required"`
}

// ImportStudentsCommand adds parsed roster records to a class.
type ImportStudentsCommand struct {
	ClassID string                   `json:"class_id"`
	Records []classroom.ParsedRecord `json:"records" validate:"min=1,max=1000"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StudentHandler handles student lifecycle commands.
type StudentHandler struct {
	workspace *Workspace
	registry  *classroom.Registry
	log       *logger.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(ws *Workspace, stamp shared.Stamper, log *logger.Logger) *StudentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &StudentHandler{
		workspace: ws,
		registry:  classroom.NewRegistry(stamp),
		log:       log.With(logger.Component("students")),
	}
}

// Add creates a student.
func (h *StudentHandler) Add(ctx context.Context, cmd AddStudentCommand) (student.Student, error) {
	if err := validate("AddStudent", cmd); err != nil {
		return student.Student{}, err
	}

	var created student.Student
	_, err := h.workspace.Mutate(ctx, "AddStudent", func(state classroom.State) (classroom.State, []shared.Event, error) {
		class, err := resolveClass(state, cmd.ClassID)
		if err != nil {
			return state, nil, err
		}
		next, st, err := h.registry.AddStudent(state, class.ID, cmd.Name, cmd.Order)
		if err != nil {
			return state, nil, err
		}
		created = st
		return next, []shared.Event{shared.NewStudentAddedEvent(st.ID, st.ClassID, st.Name)}, nil
	})
	if err != nil {
		return student.Student{}, err
	}

	h.log.Info("student added", logger.StudentID(created.ID), logger.ClassID(created.ClassID))
	return created, nil
}

// Update changes a student's name, order or avatar.
func (h *StudentHandler) Update(ctx context.Context, cmd UpdateStudentCommand) (student.Student, error) {
	if err := validate("UpdateStudent", cmd); err != nil {
		return student.Student{}, err
	}

	var updated student.Student
	_, err := h.workspace.Mutate(ctx, "UpdateStudent", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, st, err := h.registry.UpdateStudentInfo(state, cmd.StudentID, cmd.Name, cmd.Order, cmd.Avatar)
		if err != nil {
			return state, nil, err
		}
		updated = st
		return next, nil, nil
	})
	if err != nil {
		return student.Student{}, err
	}
	return updated, nil
}

// Delete removes a student.
func (h *StudentHandler) Delete(ctx context.Context, cmd DeleteStudentCommand) (student.Student, error) {
	if err := validate("DeleteStudent", cmd); err != nil {
		return student.Student{}, err
	}

	var removed student.Student
	_, err := h.workspace.Mutate(ctx, "DeleteStudent", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, st, err := h.registry.DeleteStudent(state, cmd.StudentID)
		if err != nil {
			return state, nil, err
		}
		removed = st
		return next, []shared.Event{shared.NewStudentDeletedEvent(st.ID, st.ClassID, st.Name)}, nil
	})
	if err != nil {
		return student.Student{}, err
	}

	h.log.Info("student deleted", logger.StudentID(removed.ID), logger.ClassID(removed.ClassID))
	return removed, nil
}

// Import adds every record as a new student of the class.
func (h *StudentHandler) Import(ctx context.Context, cmd ImportStudentsCommand) ([]student.Student, error) {
	if err := validate("ImportStudents", cmd); err != nil {
		return nil, err
	}

	var created []student.Student
	var classID string
	_, err := h.workspace.Mutate(ctx, "ImportStudents", func(state classroom.State) (classroom.State, []shared.Event, error) {
		class, err := resolveClass(state, cmd.ClassID)
		if err != nil {
			return state, nil, err
		}
		next, students, err := h.registry.ImportStudents(state, class.ID, cmd.Records)
		if err != nil {
			return state, nil, err
		}
		created, classID = students, class.ID
		return next, []shared.Event{
			shared.NewClassEvent(shared.EventStudentsImported, class.ID, class.Name, len(students)),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("students imported", logger.ClassID(classID), logger.Int("count", len(created)))
	return created, nil
}
