package http

import (
	"net/http"

	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type rewardRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

// handleListRewards handles GET /api/v1/rewards?student_id=
func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListRewards.Handle(r.Context(), query.ListRewardsQuery{
		StudentID: r.URL.Query().Get("student_id"),
	})
	if err != nil {
		s.writeError(w, r, "ListRewards", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleAddReward handles POST /api/v1/rewards
func (s *Server) handleAddReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "AddReward", err)
		return
	}
	rw, err := s.deps.Rewards.Add(r.Context(), command.AddRewardCommand{
		Name:        req.Name,
		Icon:        req.Icon,
		Cost:        req.Cost,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(w, r, "AddReward", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.NewRewardDTO(rw))
}

// handleUpdateReward handles PUT /api/v1/rewards/{id}
func (s *Server) handleUpdateReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "UpdateReward", err)
		return
	}
	rw, err := s.deps.Rewards.Update(r.Context(), command.UpdateRewardCommand{
		RewardID:    r.PathValue("id"),
		Name:        req.Name,
		Icon:        req.Icon,
		Cost:        req.Cost,
		Description: req.Description,
	})
	if err != nil {
		s.writeError(w, r, "UpdateReward", err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewRewardDTO(rw))
}

// handleDeleteReward handles DELETE /api/v1/rewards/{id}
func (s *Server) handleDeleteReward(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Rewards.Delete(r.Context(), command.DeleteRewardCommand{RewardID: id}); err != nil {
		s.writeError(w, r, "DeleteReward", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": id})
}

// handleResetRewards handles POST /api/v1/rewards/reset?confirm=yes
func (s *Server) handleResetRewards(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r, "confirm"); err != nil {
		s.writeError(w, r, "ResetRewards", err)
		return
	}
	catalog, err := s.deps.Rewards.Reset(r.Context())
	if err != nil {
		s.writeError(w, r, "ResetRewards", err)
		return
	}
	out := make([]query.RewardDTO, 0, len(catalog))
	for _, rw := range catalog {
		out = append(out, query.NewRewardDTO(rw))
	}
	writeJSON(w, r, http.StatusOK, out)
}
