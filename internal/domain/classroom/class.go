// Package classroom owns the student and class collections and the rules
// that keep them consistent: class deletion guards, roster ordering and the
// active class selection.
package classroom

import (
	"fmt"
	"strings"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// Default class seeded on first run and re-created when the last class is deleted.
const (
	DefaultClassID   = "default-class"
	DefaultClassName = "Lớp học của tôi"
)

// PlaceholderName is used for imported records without a name.
const PlaceholderName = "Học sinh mới"

// MissingOrder is the sort key of students without a roster order.
const MissingOrder = 9999

// ClassGroup is a named group of students.
type ClassGroup struct {
	ID   string
	Name string
}

// DefaultClass returns the seeded default class.
func DefaultClass() ClassGroup {
	return ClassGroup{ID: DefaultClassID, Name: DefaultClassName}
}

// ClassNotEmptyError is returned when deleting a class that still has students.
type ClassNotEmptyError struct {
	ClassID string
	Count   int
}

func (e *ClassNotEmptyError) Error() string {
	return fmt.Sprintf("classroom.DeleteClass: class %q still has %d students", e.ClassID, e.Count)
}

// Is lets errors.Is match shared.ErrClassNotEmpty.
func (e *ClassNotEmptyError) Is(target error) bool {
	return target == shared.ErrClassNotEmpty
}

func cleanName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", shared.NewDomainError("classroom", op, shared.ErrEmptyValue, "name is required")
	}
	if len([]rune(name)) > student.MaxNameLength {
		return "", shared.Invalid("classroom", op, "name is too long")
	}
	return name, nil
}
