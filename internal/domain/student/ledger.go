package student

import (
	"math"
	"strings"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

// Default history reasons used when the caller gives none. They match the
// reasons already present in stored data.
const (
	ReasonAwarded  = "Thưởng điểm"
	ReasonDeducted = "Trừ điểm"
)

// MaxChange bounds a single manual point adjustment in either direction.
const MaxChange = 1_000_000

// LevelUp signals that a student moved to a strictly higher tier.
// It is returned to the caller and never stored.
type LevelUp struct {
	StudentID   string
	StudentName string
	ClassID     string
	From        Level
	To          Level
	Points      int
}

// Ledger applies point changes to students.
type Ledger struct {
	stamp shared.Stamper
}

// NewLedger creates a ledger that stamps entries with ids and times from stamp.
func NewLedger(stamp shared.Stamper) *Ledger {
	return &Ledger{stamp: stamp}
}

// ApplyDelta adds amount to the student's balance, clamping the result at
// zero and saturating at math.MaxInt, and appends one history entry. The
// entry records amount as given; PointsAfter records the clamped balance.
// A zero amount still appends an entry. The input student is not modified.
func (l *Ledger) ApplyDelta(s Student, amount int, reason string) (Student, *LevelUp) {
	before := s.Level()

	out := s.Clone()
	out.TotalPoints = clampedSum(s.TotalPoints, amount)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultReason(amount)
	}

	out.PointHistory = append(out.PointHistory, PointHistory{
		ID:          l.stamp.NewID(),
		Date:        l.stamp.Now(),
		Change:      amount,
		Reason:      reason,
		PointsAfter: out.TotalPoints,
	})

	after := out.Level()
	if after.Rank() > before.Rank() {
		return out, &LevelUp{
			StudentID:   out.ID,
			StudentName: out.Name,
			ClassID:     out.ClassID,
			From:        before,
			To:          after,
			Points:      out.TotalPoints,
		}
	}
	return out, nil
}

// Record appends a redemption entry to a student that has already been
// debited through ApplyDelta.
func (l *Ledger) Record(s Student, rewardName string, spent int) Student {
	out := s.Clone()
	out.RewardsRedeemed = append(out.RewardsRedeemed, RedeemedReward{
		ID:          l.stamp.NewID(),
		Date:        l.stamp.Now(),
		RewardName:  rewardName,
		PointsSpent: spent,
	})
	return out
}

// clampedSum is max(0, total+amount) without integer overflow.
func clampedSum(total, amount int) int {
	switch {
	case amount > 0 && total > math.MaxInt-amount:
		return math.MaxInt
	case amount < 0 && total < math.MinInt-amount:
		return 0
	}
	return max(0, total+amount)
}

// DefaultReason returns the reason used for an entry without one.
// Zero counts as a deduction.
func DefaultReason(amount int) string {
	if amount > 0 {
		return ReasonAwarded
	}
	return ReasonDeducted
}
