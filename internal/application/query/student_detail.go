package query

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT DETAIL QUERY
// ══════════════════════════════════════════════════════════════════════════════

// StudentDetailQuery addresses one student.
type StudentDetailQuery struct {
	StudentID string `json:"student_id" validate:"required"`
}

// StudentDetailDTO is the full card of a student.
type StudentDetailDTO struct {
	StudentDTO

	Progress      ProgressDTO   `json:"progress"`
	TotalAwarded  int           `json:"total_awarded"`
	TotalDeducted int           `json:"total_deducted"`
	PointsSpent   int           `json:"points_spent"`
	History       []HistoryDTO  `json:"history"`
	Rewards       []RedeemedDTO `json:"rewards"`
}

// StudentDetailHandler handles StudentDetailQuery.
type StudentDetailHandler struct {
	reader StateReader
}

// NewStudentDetailHandler creates a new StudentDetailHandler.
func NewStudentDetailHandler(reader StateReader) *StudentDetailHandler {
	return &StudentDetailHandler{reader: reader}
}

// Handle executes the query.
func (h *StudentDetailHandler) Handle(ctx context.Context, q StudentDetailQuery) (*StudentDetailDTO, error) {
	if err := validate("StudentDetail", q); err != nil {
		return nil, err
	}

	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s, err := state.FindStudent(q.StudentID)
	if err != nil {
		return nil, err
	}

	dto := NewStudentDetail(s)
	if dto.ClassName == "" {
		if class, err := state.FindClass(s.ClassID); err == nil {
			dto.ClassName = class.Name
		}
	}
	return &dto, nil
}

// NewStudentDetail builds the detail card of s. History is returned newest
// first.
func NewStudentDetail(s student.Student) StudentDetailDTO {
	p := student.ProgressOf(s.TotalPoints)
	dto := StudentDetailDTO{
		StudentDTO: NewStudentDTO(s),
		Progress: ProgressDTO{
			Percent:   p.Percent,
			Remaining: p.Remaining,
			NextLevel: string(p.Next),
			NextName:  p.NextName(),
			IsMax:     p.IsMax(),
		},
		TotalAwarded:  s.TotalAwarded(),
		TotalDeducted: s.TotalDeducted(),
		PointsSpent:   s.PointsSpent(),
		History:       make([]HistoryDTO, 0, len(s.PointHistory)),
		Rewards:       make([]RedeemedDTO, 0, len(s.RewardsRedeemed)),
	}

	for i := len(s.PointHistory) - 1; i >= 0; i-- {
		dto.History = append(dto.History, NewHistoryDTO(s.PointHistory[i]))
	}
	for i := len(s.RewardsRedeemed) - 1; i >= 0; i-- {
		r := s.RewardsRedeemed[i]
		dto.Rewards = append(dto.Rewards, RedeemedDTO{
			ID:          r.ID,
			Date:        r.Date,
			RewardName:  r.RewardName,
			PointsSpent: r.PointsSpent,
		})
	}
	return dto
}
