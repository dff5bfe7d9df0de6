package query

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/reward"
)

// RewardDTO is a catalog entry. Affordable is set only when the query names
// a student.
type RewardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Cost        int    `json:"cost"`
	Description string `json:"description,omitempty"`
	Affordable  *bool  `json:"affordable,omitempty"`
}

// NewRewardDTO builds the view of r.
func NewRewardDTO(r reward.Reward) RewardDTO {
	return RewardDTO{ID: r.ID, Name: r.Name, Icon: r.Icon, Cost: r.Cost, Description: r.Description}
}

// ListRewardsQuery lists the catalog, optionally against one student's
// balance.
type ListRewardsQuery struct {
	StudentID string `json:"student_id"`
}

// ListRewardsResult is the catalog in display order.
type ListRewardsResult struct {
	Rewards []RewardDTO `json:"rewards"`
	Balance *int        `json:"balance,omitempty"`
}

// ListRewardsHandler handles ListRewardsQuery.
type ListRewardsHandler struct {
	reader StateReader
}

// NewListRewardsHandler creates a new ListRewardsHandler.
func NewListRewardsHandler(reader StateReader) *ListRewardsHandler {
	return &ListRewardsHandler{reader: reader}
}

// Handle executes the query.
func (h *ListRewardsHandler) Handle(ctx context.Context, q ListRewardsQuery) (*ListRewardsResult, error) {
	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	res := &ListRewardsResult{Rewards: make([]RewardDTO, len(state.Rewards))}
	for i, r := range state.Rewards {
		res.Rewards[i] = NewRewardDTO(r)
	}
	if q.StudentID == "" {
		return res, nil
	}

	s, err := state.FindStudent(q.StudentID)
	if err != nil {
		return nil, err
	}
	balance := s.TotalPoints
	res.Balance = &balance

	affordable := make(map[string]bool)
	for _, r := range reward.Affordable(state.Rewards, balance) {
		affordable[r.ID] = true
	}
	for i := range res.Rewards {
		ok := affordable[res.Rewards[i].ID]
		res.Rewards[i].Affordable = &ok
	}
	return res, nil
}
