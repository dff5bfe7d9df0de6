package http

import (
	"net/http"

	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type addStudentRequest struct {
	ClassID string `json:"class_id"`
	Name    string `json:"name"`
	Order   *int   `json:"order,omitempty"`
}

type updateStudentRequest struct {
	Name   string  `json:"name,omitempty"`
	Order  *int    `json:"order,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// handleListStudents handles GET /api/v1/students?class_id=&search=&sort_by=&direction=
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{
		ClassID:   q.Get("class_id"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		Direction: q.Get("direction"),
	})
	if err != nil {
		s.writeError(w, r, "ListStudents", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleAddStudent handles POST /api/v1/students
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req addStudentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "AddStudent", err)
		return
	}
	st, err := s.deps.Students.Add(r.Context(), command.AddStudentCommand{
		ClassID: req.ClassID,
		Name:    req.Name,
		Order:   req.Order,
	})
	if err != nil {
		s.writeError(w, r, "AddStudent", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.NewStudentDTO(st))
}

// handleGetStudent handles GET /api/v1/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.StudentDetail.Handle(r.Context(), query.StudentDetailQuery{StudentID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, "GetStudent", err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// handleUpdateStudent handles PATCH /api/v1/students/{id}
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req updateStudentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "UpdateStudent", err)
		return
	}
	st, err := s.deps.Students.Update(r.Context(), command.UpdateStudentCommand{
		StudentID: r.PathValue("id"),
		Name:      req.Name,
		Order:     req.Order,
		Avatar:    req.Avatar,
	})
	if err != nil {
		s.writeError(w, r, "UpdateStudent", err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewStudentDTO(st))
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}?confirm=yes
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r, "confirm"); err != nil {
		s.writeError(w, r, "DeleteStudent", err)
		return
	}
	st, err := s.deps.Students.Delete(r.Context(), command.DeleteStudentCommand{StudentID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, "DeleteStudent", err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewStudentDTO(st))
}

// ──────────────────────────────────────────────────────────────────────────────
// Points and redemptions
// ──────────────────────────────────────────────────────────────────────────────

type adjustPointsRequest struct {
	Change int    `json:"change"`
	Reason string `json:"reason,omitempty"`
}

type levelUpDTO struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Headline string `json:"headline"`
}

type adjustPointsResponse struct {
	Student query.StudentDTO `json:"student"`
	Entry   query.HistoryDTO `json:"entry"`
	LevelUp *levelUpDTO      `json:"level_up,omitempty"`
}

type redeemRequest struct {
	RewardID string `json:"reward_id"`
}

type redeemResponse struct {
	Student query.StudentDTO `json:"student"`
	Reward  query.RewardDTO  `json:"reward"`
}

func newLevelUpDTO(lu *student.LevelUp) *levelUpDTO {
	if lu == nil {
		return nil
	}
	return &levelUpDTO{
		From:     string(lu.From),
		To:       string(lu.To),
		Name:     lu.To.Name(),
		Icon:     lu.To.Icon(),
		Headline: lu.StudentName + " reached " + lu.To.Label(),
	}
}

// handleAdjustPoints handles POST /api/v1/students/{id}/points
func (s *Server) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustPointsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "AdjustPoints", err)
		return
	}
	res, err := s.deps.Points.Adjust(r.Context(), command.AdjustPointsCommand{
		StudentID: r.PathValue("id"),
		Change:    req.Change,
		Reason:    req.Reason,
	})
	if err != nil {
		s.writeError(w, r, "AdjustPoints", err)
		return
	}
	writeJSON(w, r, http.StatusOK, adjustPointsResponse{
		Student: query.NewStudentDTO(res.Student),
		Entry:   query.NewHistoryDTO(res.Entry),
		LevelUp: newLevelUpDTO(res.LevelUp),
	})
}

// handleRedeem handles POST /api/v1/students/{id}/redemptions
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "RedeemReward", err)
		return
	}
	res, err := s.deps.Points.Redeem(r.Context(), command.RedeemRewardCommand{
		StudentID: r.PathValue("id"),
		RewardID:  req.RewardID,
	})
	if err != nil {
		s.writeError(w, r, "RedeemReward", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, redeemResponse{
		Student: query.NewStudentDTO(res.Student),
		Reward:  query.NewRewardDTO(res.Reward),
	})
}
