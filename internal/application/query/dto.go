// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read a snapshot of the workspace
// and derive views from it.
package query

import (
	"context"
	"time"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/validation"
)

// StateReader returns a private copy of the classroom state.
type StateReader interface {
	Snapshot(ctx context.Context) (classroom.State, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO is the list view of a student.
type StudentDTO struct {
	ID          string  `json:"id"`
	ClassID     string  `json:"class_id"`
	Order       *int    `json:"order,omitempty"`
	Name        string  `json:"name"`
	DOB         string  `json:"dob,omitempty"`
	ClassName   string  `json:"class_name,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	TotalPoints int     `json:"total_points"`
	Level       string  `json:"level"`
	LevelName   string  `json:"level_name"`
	LevelIcon   string  `json:"level_icon"`
}

// NewStudentDTO builds the list view of s.
func NewStudentDTO(s student.Student) StudentDTO {
	lvl := s.Level()
	dto := StudentDTO{
		ID:          s.ID,
		ClassID:     s.ClassID,
		Name:        s.Name,
		DOB:         s.DOB,
		ClassName:   s.ClassLabel,
		TotalPoints: s.TotalPoints,
		Level:       string(lvl),
		LevelName:   lvl.Name(),
		LevelIcon:   lvl.Icon(),
	}
	if s.Order != nil {
		o := *s.Order
		dto.Order = &o
	}
	if s.Avatar != nil {
		a := *s.Avatar
		dto.Avatar = &a
	}
	return dto
}

// ClassDTO is a class with its size.
type ClassDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Students int    `json:"students"`
	Active   bool   `json:"active"`
}

// HistoryDTO is one ledger entry.
type HistoryDTO struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Change      int       `json:"change"`
	Reason      string    `json:"reason"`
	PointsAfter int       `json:"points_after"`
}

// NewHistoryDTO builds the view of a ledger entry.
func NewHistoryDTO(h student.PointHistory) HistoryDTO {
	return HistoryDTO{ID: h.ID, Date: h.Date, Change: h.Change, Reason: h.Reason, PointsAfter: h.PointsAfter}
}

// RedeemedDTO is one redemption.
type RedeemedDTO struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	RewardName  string    `json:"reward_name"`
	PointsSpent int       `json:"points_spent"`
}

// ProgressDTO describes the way to the next level.
type ProgressDTO struct {
	Percent   float64 `json:"percent"`
	Remaining int     `json:"remaining"`
	NextLevel string  `json:"next_level,omitempty"`
	NextName  string  `json:"next_name"`
	IsMax     bool    `json:"is_max"`
}

func validate(op string, q interface{}) error {
	if err := validation.Struct(q); err != nil {
		return shared.WrapError("query", op, shared.ErrValidation, "invalid query", err)
	}
	return nil
}

func resolveClass(state classroom.State, classID string) (classroom.ClassGroup, error) {
	if classID == "" {
		return state.ActiveClass(), nil
	}
	return state.FindClass(classID)
}
