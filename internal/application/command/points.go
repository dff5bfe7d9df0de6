package command

import (
	"context"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS COMMANDS
// Award, deduct and spend points. The balance is clamped at zero by the
// ledger; the history keeps the change as requested.
// ══════════════════════════════════════════════════════════════════════════════

// MaxReasonLength bounds history reasons.
const MaxReasonLength = 200

// AdjustPointsCommand changes a student's balance by Change. Zero is a legal
// change and still leaves a history entry. Change is bounded by
// student.MaxChange.
type AdjustPointsCommand struct {
	StudentID string `json:"student_id" validate:"required"`
	Change    int    `json:"change" validate:"min=-1000000,max=1000000"`
	Reason    string `json:"reason" validate:"max=200"`
}

// AdjustPointsResult is the outcome of a point change.
type AdjustPointsResult struct {
	Student student.Student
	Entry   student.PointHistory
	// LevelUp is set when the change moved the student to a higher tier.
	LevelUp *student.LevelUp
}

// RedeemRewardCommand exchanges points for a catalog reward.
type RedeemRewardCommand struct {
	StudentID string `json:"student_id" validate:"required"`
	RewardID  string `json:"reward_id" validate:"required"`
}

// RedeemRewardResult is the outcome of a redemption.
type RedeemRewardResult struct {
	Student student.Student
	Reward  reward.Reward
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// PointsHandler handles point changes and redemptions.
type PointsHandler struct {
	workspace *Workspace
	registry  *classroom.Registry
	ledger    *student.Ledger
	engine    *reward.Engine
	log       *logger.Logger
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(ws *Workspace, stamp shared.Stamper, log *logger.Logger) *PointsHandler {
	if log == nil {
		log = logger.Nop()
	}
	ledger := student.NewLedger(stamp)
	return &PointsHandler{
		workspace: ws,
		registry:  classroom.NewRegistry(stamp),
		ledger:    ledger,
		engine:    reward.NewEngine(ledger),
		log:       log.With(logger.Component("points")),
	}
}

// Adjust applies a point change.
func (h *PointsHandler) Adjust(ctx context.Context, cmd AdjustPointsCommand) (*AdjustPointsResult, error) {
	if err := validate("AdjustPoints", cmd); err != nil {
		return nil, err
	}

	var result AdjustPointsResult
	_, err := h.workspace.Mutate(ctx, "AdjustPoints", func(state classroom.State) (classroom.State, []shared.Event, error) {
		st, err := state.FindStudent(cmd.StudentID)
		if err != nil {
			return state, nil, err
		}

		updated, up := h.ledger.ApplyDelta(st, cmd.Change, cmd.Reason)
		next, err := h.registry.ReplaceStudent(state, updated)
		if err != nil {
			return state, nil, err
		}

		entry, _ := updated.LastEntry()
		result = AdjustPointsResult{Student: updated, Entry: entry, LevelUp: up}

		events := []shared.Event{
			shared.NewPointsChangedEvent(updated.ID, updated.ClassID, cmd.Change, updated.TotalPoints, entry.Reason),
		}
		if up != nil {
			events = append(events, shared.NewLevelUpEvent(up.StudentID, up.StudentName, up.ClassID,
				string(up.From), string(up.To), up.Points))
		}
		return next, events, nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("points adjusted",
		logger.StudentID(result.Student.ID),
		logger.Change(cmd.Change),
		logger.Points(result.Student.TotalPoints),
		logger.LevelName(string(result.Student.Level())),
	)
	return &result, nil
}

// Redeem debits a reward's cost from a student. The catalog entry is read
// at the time of redemption and recorded by value.
func (h *PointsHandler) Redeem(ctx context.Context, cmd RedeemRewardCommand) (*RedeemRewardResult, error) {
	if err := validate("RedeemReward", cmd); err != nil {
		return nil, err
	}

	var result RedeemRewardResult
	_, err := h.workspace.Mutate(ctx, "RedeemReward", func(state classroom.State) (classroom.State, []shared.Event, error) {
		st, err := state.FindStudent(cmd.StudentID)
		if err != nil {
			return state, nil, err
		}
		rw, err := state.Rewards.Find(cmd.RewardID)
		if err != nil {
			return state, nil, err
		}

		updated, err := h.engine.Redeem(st, rw)
		if err != nil {
			return state, nil, err
		}
		next, err := h.registry.ReplaceStudent(state, updated)
		if err != nil {
			return state, nil, err
		}

		result = RedeemRewardResult{Student: updated, Reward: rw}
		events := []shared.Event{
			shared.NewPointsChangedEvent(updated.ID, updated.ClassID, -rw.Cost, updated.TotalPoints, reward.RedemptionReason(rw.Name)),
			shared.NewRewardRedeemedEvent(updated.ID, updated.ClassID, rw.ID, rw.Name, rw.Cost, updated.TotalPoints),
		}
		return next, events, nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("reward redeemed",
		logger.StudentID(result.Student.ID),
		logger.RewardID(result.Reward.ID),
		logger.Points(result.Student.TotalPoints),
	)
	return &result, nil
}
