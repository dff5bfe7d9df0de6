package student

import (
	"strings"
	"time"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a member of a class with a point balance and its history.
type Student struct {
	// ID - opaque unique identifier.
	ID string

	// ClassID - owning class.
	ClassID string

	// Order - optional position in the class roster.
	Order *int

	// Name - display name.
	Name string

	// DOB - free-form date of birth kept from imports.
	DOB string

	// ClassLabel - class name as written in an imported document.
	ClassLabel string

	// Avatar - optional avatar reference (URL or data URI).
	Avatar *string

	// TotalPoints - current balance, never negative.
	TotalPoints int

	// PointHistory - append-only, chronological.
	PointHistory []PointHistory

	// RewardsRedeemed - append-only, chronological.
	RewardsRedeemed []RedeemedReward
}

// PointHistory is one ledger entry.
type PointHistory struct {
	ID   string
	Date time.Time

	// Change is the requested delta, even when the balance was clamped.
	Change int

	Reason string

	// PointsAfter is the balance right after this entry.
	PointsAfter int
}

// RedeemedReward records a reward by value at the time it was redeemed.
type RedeemedReward struct {
	ID          string
	Date        time.Time
	RewardName  string
	PointsSpent int
}

// Level returns the tier of the current balance.
func (s Student) Level() Level {
	return Classify(s.TotalPoints)
}

// OrderOr returns the roster order, or def when none is set.
func (s Student) OrderOr(def int) int {
	if s.Order == nil {
		return def
	}
	return *s.Order
}

// LastEntry returns the most recent history entry.
func (s Student) LastEntry() (PointHistory, bool) {
	if len(s.PointHistory) == 0 {
		return PointHistory{}, false
	}
	return s.PointHistory[len(s.PointHistory)-1], true
}

// TotalAwarded sums all positive history changes.
func (s Student) TotalAwarded() int {
	total := 0
	for _, h := range s.PointHistory {
		if h.Change > 0 {
			total += h.Change
		}
	}
	return total
}

// TotalDeducted sums the magnitude of all negative history changes,
// redemptions included.
func (s Student) TotalDeducted() int {
	total := 0
	for _, h := range s.PointHistory {
		if h.Change < 0 {
			total -= h.Change
		}
	}
	return total
}

// PointsSpent sums the points spent on rewards.
func (s Student) PointsSpent() int {
	total := 0
	for _, r := range s.RewardsRedeemed {
		total += r.PointsSpent
	}
	return total
}

// NetChange sums history changes that fall inside r.
func (s Student) NetChange(r shared.TimeRange) int {
	total := 0
	for _, h := range s.PointHistory {
		if r.Contains(h.Date) {
			total += h.Change
		}
	}
	return total
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s Student) Clone() Student {
	c := s
	if s.Order != nil {
		o := *s.Order
		c.Order = &o
	}
	if s.Avatar != nil {
		a := *s.Avatar
		c.Avatar = &a
	}
	c.PointHistory = append([]PointHistory(nil), s.PointHistory...)
	c.RewardsRedeemed = append([]RedeemedReward(nil), s.RewardsRedeemed...)
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// MaxNameLength bounds student and class names.
const MaxNameLength = 100

// NewStudentParams contains the parameters for creating a student.
type NewStudentParams struct {
	ID         string
	ClassID    string
	Order      *int
	Name       string
	DOB        string
	ClassLabel string
	Avatar     *string
}

// NewStudent creates a student with zero points and empty histories.
func NewStudent(params NewStudentParams) (Student, error) {
	if params.ID == "" {
		return Student{}, shared.NewDomainError("student", "New", shared.ErrInvalidID, "student id is required")
	}
	if params.ClassID == "" {
		return Student{}, shared.NewDomainError("student", "New", shared.ErrInvalidID, "class id is required")
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Student{}, shared.NewDomainError("student", "New", shared.ErrEmptyValue, "student name is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return Student{}, shared.Invalid("student", "New", "student name is too long")
	}

	s := Student{
		ID:              params.ID,
		ClassID:         params.ClassID,
		Name:            name,
		DOB:             strings.TrimSpace(params.DOB),
		ClassLabel:      strings.TrimSpace(params.ClassLabel),
		PointHistory:    []PointHistory{},
		RewardsRedeemed: []RedeemedReward{},
	}
	if params.Order != nil {
		o := *params.Order
		s.Order = &o
	}
	if params.Avatar != nil {
		a := *params.Avatar
		s.Avatar = &a
	}
	return s, nil
}
