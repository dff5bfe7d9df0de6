package reward

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
)

func newEngine() *Engine {
	stamp := &shared.FixedStamper{At: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), Prefix: "r"}
	return NewEngine(student.NewLedger(stamp))
}

func studentWith(points int) student.Student {
	return student.Student{ID: "s1", ClassID: "c1", Name: "An", TotalPoints: points}
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	e := newEngine()
	s := studentWith(10)
	r := Reward{ID: "1", Name: "Miễn 1 bài tập", Cost: 30}

	out, err := e.Redeem(s, r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInsufficientBalance))

	var ib *InsufficientBalanceError
	require.True(t, errors.As(err, &ib))
	assert.Equal(t, 20, ib.Shortfall())

	assert.Equal(t, 10, out.TotalPoints)
	assert.Empty(t, out.PointHistory)
	assert.Empty(t, out.RewardsRedeemed)
}

func TestRedeem_Success(t *testing.T) {
	e := newEngine()
	s := studentWith(100)
	r := Reward{ID: "3", Name: "+5 điểm kiểm tra", Cost: 80}

	out, err := e.Redeem(s, r)
	require.NoError(t, err)
	assert.Equal(t, 20, out.TotalPoints)
	assert.Equal(t, student.LevelSprout, out.Level())

	require.Len(t, out.PointHistory, 1)
	assert.Equal(t, -80, out.PointHistory[0].Change)
	assert.Equal(t, 20, out.PointHistory[0].PointsAfter)
	assert.Equal(t, "Đổi quà: +5 điểm kiểm tra", out.PointHistory[0].Reason)

	require.Len(t, out.RewardsRedeemed, 1)
	assert.Equal(t, "+5 điểm kiểm tra", out.RewardsRedeemed[0].RewardName)
	assert.Equal(t, 80, out.RewardsRedeemed[0].PointsSpent)

	// renaming the catalog entry later does not rewrite history
	r.Name = "renamed"
	assert.Equal(t, "+5 điểm kiểm tra", out.RewardsRedeemed[0].RewardName)
	assert.Equal(t, 100, s.TotalPoints)
}

func TestRedeem_ExactBalance(t *testing.T) {
	out, err := newEngine().Redeem(studentWith(50), Reward{ID: "2", Name: "Chọn chỗ ngồi", Cost: 50})
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalPoints)
	assert.Equal(t, student.LevelSeed, out.Level())
}

func TestRedeem_InvalidReward(t *testing.T) {
	_, err := newEngine().Redeem(studentWith(50), Reward{ID: "x", Name: "bad", Cost: -1})
	assert.True(t, shared.IsValidation(err))

	_, err = newEngine().Redeem(studentWith(50), Reward{ID: "x", Cost: 1})
	assert.True(t, shared.IsValidation(err))
}

func TestCatalog_Operations(t *testing.T) {
	c := Catalog(DefaultCatalog())
	require.Len(t, c, 6)

	c2, err := c.Add(Reward{ID: "7", Name: " Sticker ", Cost: 5})
	require.NoError(t, err)
	assert.Len(t, c2, 7)
	assert.Len(t, c, 6)
	added, err := c2.Find("7")
	require.NoError(t, err)
	assert.Equal(t, "Sticker", added.Name)
	assert.Equal(t, DefaultIcon, added.Icon)

	_, err = c2.Add(Reward{ID: "7", Name: "dup", Cost: 1})
	assert.True(t, shared.IsAlreadyExists(err))

	c3, err := c2.Update(Reward{ID: "1", Name: "Miễn 2 bài tập", Icon: "📝", Cost: 60})
	require.NoError(t, err)
	r1, _ := c3.Find("1")
	assert.Equal(t, 60, r1.Cost)
	r1old, _ := c2.Find("1")
	assert.Equal(t, 30, r1old.Cost)

	_, err = c3.Update(Reward{ID: "99", Name: "x"})
	assert.True(t, shared.IsNotFound(err))

	c4, err := c3.Delete("7")
	require.NoError(t, err)
	assert.Len(t, c4, 6)
	_, err = c4.Delete("7")
	assert.True(t, shared.IsNotFound(err))

	_, err = Replace([]Reward{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}})
	assert.True(t, shared.IsValidation(err))
	_, err = Replace([]Reward{{ID: "a", Name: ""}})
	assert.True(t, shared.IsValidation(err))

	assert.Len(t, Affordable(DefaultCatalog(), 80), 3)
}
