package command

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD CATALOG COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// AddRewardCommand appends a reward. An empty name becomes the default name.
type AddRewardCommand struct {
	Name        string `json:"name" validate:"max=100"`
	Icon        string `json:"icon" validate:"max=16"`
	Cost        int    `json:"cost" validate:"gte=0"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateRewardCommand replaces every field of a reward.
type UpdateRewardCommand struct {
	RewardID    string `json:"reward_id" validate:"required"`
	Name        string `json:"name" validate:"notblank,max=100"`
	Icon        string `json:"icon" validate:"max=16"`
	Cost        int    `json:"cost" validate:"gte=0"`
	Description string `json:"description" validate:"max=500"`
}

// DeleteRewardCommand removes a reward.
type DeleteRewardCommand struct {
	RewardID string `json:"reward_id" validate:"required"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RewardHandler edits the reward catalog.
type RewardHandler struct {
	workspace *Workspace
	registry  *classroom.Registry
	log       *logger.Logger
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(ws *Workspace, stamp shared.Stamper, log *logger.Logger) *RewardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RewardHandler{
		workspace: ws,
		registry:  classroom.NewRegistry(stamp),
		log:       log.With(logger.Component("rewards")),
	}
}

// Add appends a reward to the catalog.
func (h *RewardHandler) Add(ctx context.Context, cmd AddRewardCommand) (reward.Reward, error) {
	if err := validate("AddReward", cmd); err != nil {
		return reward.Reward{}, err
	}

	var added reward.Reward
	_, err := h.workspace.Mutate(ctx, "AddReward", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, r, err := h.registry.AddReward(state, reward.Reward{
			Name:        cmd.Name,
			Icon:        cmd.Icon,
			Cost:        cmd.Cost,
			Description: cmd.Description,
		})
		if err != nil {
			return state, nil, err
		}
		added = r
		return next, catalogEvent("added", r.ID, next), nil
	})
	if err != nil {
		return reward.Reward{}, err
	}

	h.log.Info("reward added", logger.RewardID(added.ID), logger.Int("cost", added.Cost))
	return added, nil
}

// Update replaces a catalog entry.
func (h *RewardHandler) Update(ctx context.Context, cmd UpdateRewardCommand) (reward.Reward, error) {
	if err := validate("UpdateReward", cmd); err != nil {
		return reward.Reward{}, err
	}

	var updated reward.Reward
	_, err := h.workspace.Mutate(ctx, "UpdateReward", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, err := h.registry.UpdateReward(state, reward.Reward{
			ID:          cmd.RewardID,
			Name:        cmd.Name,
			Icon:        cmd.Icon,
			Cost:        cmd.Cost,
			Description: cmd.Description,
		})
		if err != nil {
			return state, nil, err
		}
		updated, _ = next.Rewards.Find(cmd.RewardID)
		return next, catalogEvent("updated", cmd.RewardID, next), nil
	})
	if err != nil {
		return reward.Reward{}, err
	}
	return updated, nil
}

// Delete removes a catalog entry. Students keep their redemption records.
func (h *RewardHandler) Delete(ctx context.Context, cmd DeleteRewardCommand) error {
	if err := validate("DeleteReward", cmd); err != nil {
		return err
	}

	_, err := h.workspace.Mutate(ctx, "DeleteReward", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next, err := h.registry.DeleteReward(state, cmd.RewardID)
		if err != nil {
			return state, nil, err
		}
		return next, catalogEvent("deleted", cmd.RewardID, next), nil
	})
	if err == nil {
		h.log.Info("reward deleted", logger.RewardID(cmd.RewardID))
	}
	return err
}

// Reset restores the default catalog.
func (h *RewardHandler) Reset(ctx context.Context) (reward.Catalog, error) {
	next, err := h.workspace.Mutate(ctx, "ResetRewards", func(state classroom.State) (classroom.State, []shared.Event, error) {
		next := h.registry.ResetRewards(state)
		return next, catalogEvent("reset", "", next), nil
	})
	if err != nil {
		return nil, err
	}
	return next.Rewards, nil
}

func catalogEvent(action, rewardID string, state classroom.State) []shared.Event {
	return []shared.Event{shared.NewRewardCatalogChangedEvent(action, rewardID, len(state.Rewards))}
}
