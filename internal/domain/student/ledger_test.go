package student

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

func newTestLedger() *Ledger {
	return NewLedger(&shared.FixedStamper{
		At:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Prefix: "h",
	})
}

func newTestStudent(t *testing.T, points int) Student {
	t.Helper()
	s, err := NewStudent(NewStudentParams{ID: "s1", ClassID: "c1", Name: "  An  "})
	require.NoError(t, err)
	s.TotalPoints = points
	return s
}

func TestNewStudent(t *testing.T) {
	order := 3
	s, err := NewStudent(NewStudentParams{ID: "s1", ClassID: "c1", Name: " Bình ", Order: &order})
	require.NoError(t, err)
	assert.Equal(t, "Bình", s.Name)
	assert.Equal(t, 0, s.TotalPoints)
	assert.Equal(t, LevelSeed, s.Level())
	assert.Empty(t, s.PointHistory)
	assert.Empty(t, s.RewardsRedeemed)
	assert.Equal(t, 3, s.OrderOr(9999))

	order = 7
	assert.Equal(t, 3, *s.Order, "params must be copied")

	_, err = NewStudent(NewStudentParams{ID: "s1", ClassID: "c1", Name: "   "})
	assert.True(t, shared.IsValidation(err))

	_, err = NewStudent(NewStudentParams{ClassID: "c1", Name: "An"})
	assert.Error(t, err)
}

func TestApplyDelta_AwardsAndRecords(t *testing.T) {
	l := newTestLedger()
	s := newTestStudent(t, 10)

	out, up := l.ApplyDelta(s, 5, "")
	assert.Nil(t, up)
	assert.Equal(t, 15, out.TotalPoints)
	require.Len(t, out.PointHistory, 1)

	h := out.PointHistory[0]
	assert.Equal(t, "h1", h.ID)
	assert.Equal(t, 5, h.Change)
	assert.Equal(t, 15, h.PointsAfter)
	assert.Equal(t, ReasonAwarded, h.Reason)

	assert.Equal(t, 10, s.TotalPoints, "input must stay untouched")
	assert.Empty(t, s.PointHistory)
}

func TestApplyDelta_ClampsAtZero(t *testing.T) {
	l := newTestLedger()
	s := newTestStudent(t, 5)

	out, up := l.ApplyDelta(s, -100, "talking in class")
	assert.Nil(t, up)
	assert.Equal(t, 0, out.TotalPoints)

	last, ok := out.LastEntry()
	require.True(t, ok)
	assert.Equal(t, -100, last.Change)
	assert.Equal(t, 0, last.PointsAfter)
	assert.Equal(t, "talking in class", last.Reason)
}

func TestApplyDelta_Saturates(t *testing.T) {
	l := newTestLedger()

	out, up := l.ApplyDelta(newTestStudent(t, 10), math.MaxInt, "huge award")
	assert.Equal(t, math.MaxInt, out.TotalPoints)
	assert.Equal(t, LevelTree, out.Level())
	require.NotNil(t, up)
	assert.Equal(t, LevelTree, up.To)
	assert.Equal(t, math.MaxInt, out.PointHistory[0].Change)

	out, _ = l.ApplyDelta(out, 1, "")
	assert.Equal(t, math.MaxInt, out.TotalPoints)

	out, _ = l.ApplyDelta(newTestStudent(t, 10), math.MinInt, "")
	assert.Equal(t, 0, out.TotalPoints)
	assert.Equal(t, math.MinInt, out.PointHistory[0].Change)
}

func TestApplyDelta_LevelUpSignal(t *testing.T) {
	l := newTestLedger()

	out, up := l.ApplyDelta(newTestStudent(t, 18), 5, "")
	require.NotNil(t, up)
	assert.Equal(t, 23, out.TotalPoints)
	assert.Equal(t, LevelSeed, up.From)
	assert.Equal(t, LevelSprout, up.To)
	assert.Equal(t, "s1", up.StudentID)
	assert.Equal(t, "An", up.StudentName)

	_, up = l.ApplyDelta(newTestStudent(t, 25), 5, "")
	assert.Nil(t, up, "same tier must not signal")

	_, up = l.ApplyDelta(newTestStudent(t, 60), -50, "")
	assert.Nil(t, up, "downgrade must not signal")

	out, up = l.ApplyDelta(newTestStudent(t, 0), 150, "")
	require.NotNil(t, up)
	assert.Equal(t, LevelTree, up.To)
	assert.Equal(t, LevelTree, out.Level())
}

func TestApplyDelta_ZeroAmount(t *testing.T) {
	l := newTestLedger()
	out, up := l.ApplyDelta(newTestStudent(t, 7), 0, "")
	assert.Nil(t, up)
	assert.Equal(t, 7, out.TotalPoints)
	require.Len(t, out.PointHistory, 1)
	assert.Equal(t, ReasonDeducted, out.PointHistory[0].Reason)
}

func TestApplyDelta_HistoryChain(t *testing.T) {
	l := newTestLedger()
	s := newTestStudent(t, 0)

	deltas := []int{5, 10, -30, 40, 0, 60, -7}
	for i, d := range deltas {
		s, _ = l.ApplyDelta(s, d, "")
		require.Len(t, s.PointHistory, i+1)
		assert.Equal(t, s.TotalPoints, s.PointHistory[i].PointsAfter)
		assert.GreaterOrEqual(t, s.TotalPoints, 0)
		assert.Equal(t, d, s.PointHistory[i].Change)
	}
	assert.Equal(t, Classify(s.TotalPoints), s.Level())
	assert.Equal(t, 93, s.TotalPoints)
	assert.Equal(t, 115, s.TotalAwarded())
	assert.Equal(t, 37, s.TotalDeducted())
}

func TestRecord_CapturesRewardByValue(t *testing.T) {
	l := newTestLedger()
	s := newTestStudent(t, 100)

	out := l.Record(s, "Voucher", 80)
	require.Len(t, out.RewardsRedeemed, 1)
	assert.Equal(t, "Voucher", out.RewardsRedeemed[0].RewardName)
	assert.Equal(t, 80, out.RewardsRedeemed[0].PointsSpent)
	assert.Equal(t, 80, out.PointsSpent())
	assert.Empty(t, s.RewardsRedeemed)
}

func TestNetChange(t *testing.T) {
	s := newTestStudent(t, 0)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.PointHistory = []PointHistory{
		{Date: base.AddDate(0, 0, -2), Change: 50},
		{Date: base.AddDate(0, 0, 1), Change: 10},
		{Date: base.AddDate(0, 0, 3), Change: -4},
	}

	assert.Equal(t, 56, s.NetChange(shared.TimeRange{}))
	assert.Equal(t, 6, s.NetChange(shared.TimeRange{From: base, To: base.AddDate(0, 0, 7)}))
}
