package reward

import (
	"fmt"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

// InsufficientBalanceError is returned when a student cannot afford a reward.
type InsufficientBalanceError struct {
	StudentID string
	RewardID  string
	Cost      int
	Balance   int
}

// Shortfall returns the number of points still missing.
func (e *InsufficientBalanceError) Shortfall() int {
	return e.Cost - e.Balance
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("reward.Redeem: insufficient balance: needs %d more points (cost %d, balance %d)",
		e.Shortfall(), e.Cost, e.Balance)
}

// Is lets errors.Is match shared.ErrInsufficientBalance.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == shared.ErrInsufficientBalance
}

// Engine exchanges points for rewards.
type Engine struct {
	ledger *student.Ledger
}

// NewEngine creates a redemption engine that writes through ledger.
func NewEngine(ledger *student.Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// RedemptionReason is the history reason written for a redemption.
func RedemptionReason(name string) string {
	return "Đổi quà: " + name
}

// Redeem debits the reward cost from the student and records the reward by
// value. It fails without changing anything when the balance is too low.
// The catalog entry is never modified.
func (e *Engine) Redeem(s student.Student, r Reward) (student.Student, error) {
	if err := r.Validate(); err != nil {
		return s, err
	}
	if s.TotalPoints < r.Cost {
		return s, &InsufficientBalanceError{
			StudentID: s.ID,
			RewardID:  r.ID,
			Cost:      r.Cost,
			Balance:   s.TotalPoints,
		}
	}

	// Balance covers the cost, so ApplyDelta never clamps here and a
	// debit can never raise the tier.
	out, _ := e.ledger.ApplyDelta(s, -r.Cost, RedemptionReason(r.Name))
	out = e.ledger.Record(out, r.Name, r.Cost)
	return out, nil
}
