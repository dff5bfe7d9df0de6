package query

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// Students of one class, filtered by name and sorted for display.
// ══════════════════════════════════════════════════════════════════════════════

// Sort keys and directions.
const (
	SortByName   = "name"
	SortByPoints = "points"
	SortByOrder  = "order"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListStudentsQuery selects and orders the students of a class. The
// default is points, descending.
type ListStudentsQuery struct {
	// ClassID - empty means the active class.
	ClassID string `json:"class_id"`

	// Search - case-insensitive substring of the name.
	Search string `json:"search" validate:"max=100"`

	SortBy    string `json:"sort_by" validate:"omitempty,oneof=name points order"`
	Direction string `json:"direction" validate:"omitempty,oneof=asc desc"`
}

// ListStudentsResult is the ordered student list of a class.
type ListStudentsResult struct {
	Class    ClassDTO     `json:"class"`
	Students []StudentDTO `json:"students"`
	Total    int          `json:"total"`
}

// ListStudentsHandler handles ListStudentsQuery.
type ListStudentsHandler struct {
	reader StateReader
}

// NewListStudentsHandler creates a new ListStudentsHandler.
func NewListStudentsHandler(reader StateReader) *ListStudentsHandler {
	return &ListStudentsHandler{reader: reader}
}

// Handle executes the query.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) (*ListStudentsResult, error) {
	if err := validate("ListStudents", q); err != nil {
		return nil, err
	}

	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	class, err := resolveClass(state, q.ClassID)
	if err != nil {
		return nil, err
	}

	all := state.StudentsInClass(class.ID)
	students := FilterByName(all, q.Search)
	SortStudents(students, q.SortBy, q.Direction)

	out := make([]StudentDTO, len(students))
	for i, s := range students {
		out[i] = NewStudentDTO(s)
	}
	return &ListStudentsResult{Class: newClassDTO(state, class), Students: out, Total: len(all)}, nil
}

// FilterByName keeps the students whose name contains search, ignoring case.
func FilterByName(students []student.Student, search string) []student.Student {
	search = strings.TrimSpace(search)
	if search == "" {
		return students
	}

	fold := cases.Fold()
	needle := fold.String(search)
	out := make([]student.Student, 0, len(students))
	for _, s := range students {
		if strings.Contains(fold.String(s.Name), needle) {
			out = append(out, s)
		}
	}
	return out
}

// SortStudents orders students in place. Names are collated for
// Vietnamese; a missing roster order sorts as classroom.MissingOrder. Ties
// keep their storage order.
func SortStudents(students []student.Student, by, dir string) {
	if by == "" {
		by = SortByPoints
	}
	if dir == "" {
		dir = SortDesc
	}
	desc := dir == SortDesc

	var less func(a, b student.Student) int
	switch by {
	case SortByName:
		coll := collate.New(language.Vietnamese)
		less = func(a, b student.Student) int { return coll.CompareString(a.Name, b.Name) }
	case SortByOrder:
		less = func(a, b student.Student) int {
			return a.OrderOr(classroom.MissingOrder) - b.OrderOr(classroom.MissingOrder)
		}
	default:
		less = func(a, b student.Student) int { return a.TotalPoints - b.TotalPoints }
	}

	sort.SliceStable(students, func(i, j int) bool {
		c := less(students[i], students[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}
