package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

type stateReader struct {
	state classroom.State
}

func (r stateReader) Snapshot(context.Context) (classroom.State, error) {
	return r.state.Clone(), nil
}

func intPtr(v int) *int { return &v }

func at(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 9, 0, 0, 0, timeutil.SchoolTZ)
}

// testState has one class "6A" with four students and an empty second class.
func testState() classroom.State {
	return classroom.State{
		Classes: []classroom.ClassGroup{{ID: "c1", Name: "6A"}, {ID: "c2", Name: "6B"}},
		Rewards: reward.DefaultCatalog(),
		Students: []student.Student{
			{
				ID: "s1", ClassID: "c1", Name: "An", Order: intPtr(2), TotalPoints: 120,
				PointHistory: []student.PointHistory{
					{ID: "h1", Date: at(time.February, 20), Change: 150, Reason: "Project", PointsAfter: 150},
					{ID: "h2", Date: at(time.February, 21), Change: -30, Reason: "Redeemed", PointsAfter: 120},
				},
				RewardsRedeemed: []student.RedeemedReward{
					{ID: "r1", Date: at(time.February, 21), RewardName: "Miễn 1 bài tập", PointsSpent: 30},
				},
			},
			{
				ID: "s2", ClassID: "c1", Name: "Bình", Order: intPtr(1), TotalPoints: 30,
				PointHistory: []student.PointHistory{
					{ID: "h3", Date: at(time.March, 11), Change: 30, Reason: "Quiz", PointsAfter: 30},
				},
			},
			{
				ID: "s3", ClassID: "c1", Name: "Cường", TotalPoints: 45,
				PointHistory: []student.PointHistory{
					{ID: "h4", Date: at(time.March, 2), Change: 40, Reason: "Homework", PointsAfter: 40},
					{ID: "h5", Date: at(time.March, 11), Change: 5, Reason: "Answer", PointsAfter: 45},
				},
			},
			{ID: "s4", ClassID: "c1", Name: "ân", Order: intPtr(3)},
		},
		ActiveClassID: "c1",
	}
}

func names(students []StudentDTO) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.Name
	}
	return out
}

func TestListStudents_Sorting(t *testing.T) {
	h := NewListStudentsHandler(stateReader{testState()})
	ctx := context.Background()

	tests := []struct {
		name  string
		query ListStudentsQuery
		want  []string
	}{
		{"default points desc", ListStudentsQuery{}, []string{"An", "Cường", "Bình", "ân"}},
		{"points asc", ListStudentsQuery{SortBy: SortByPoints, Direction: SortAsc}, []string{"ân", "Bình", "Cường", "An"}},
		{"name collated", ListStudentsQuery{SortBy: SortByName, Direction: SortAsc}, []string{"An", "ân", "Bình", "Cường"}},
		{"order missing last", ListStudentsQuery{SortBy: SortByOrder, Direction: SortAsc}, []string{"Bình", "An", "ân", "Cường"}},
		{"order desc", ListStudentsQuery{SortBy: SortByOrder, Direction: SortDesc}, []string{"Cường", "ân", "An", "Bình"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Handle(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Students))
			assert.Equal(t, 4, res.Total)
		})
	}
}

func TestListStudents_Search(t *testing.T) {
	h := NewListStudentsHandler(stateReader{testState()})
	ctx := context.Background()

	res, err := h.Handle(ctx, ListStudentsQuery{Search: "AN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"An"}, names(res.Students))

	res, err = h.Handle(ctx, ListStudentsQuery{Search: "ÂN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ân"}, names(res.Students))

	res, err = h.Handle(ctx, ListStudentsQuery{ClassID: "c2"})
	require.NoError(t, err)
	assert.Empty(t, res.Students)
	assert.Equal(t, "6B", res.Class.Name)
	assert.False(t, res.Class.Active)
}

func TestListStudents_Errors(t *testing.T) {
	h := NewListStudentsHandler(stateReader{testState()})
	ctx := context.Background()

	_, err := h.Handle(ctx, ListStudentsQuery{SortBy: "age"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, ListStudentsQuery{ClassID: "missing"})
	assert.True(t, shared.IsNotFound(err))
}

func TestListClasses(t *testing.T) {
	res, err := NewListClassesHandler(stateReader{testState()}).Handle(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, ClassDTO{ID: "c1", Name: "6A", Students: 4, Active: true}, res.Classes[0])
	assert.Equal(t, 0, res.Classes[1].Students)
}

func TestLeaderboard_Periods(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, time.March, 12, 10, 0, 0, 0, timeutil.SchoolTZ) }
	h := NewLeaderboardHandler(stateReader{testState()}, 10).WithClock(clock)
	ctx := context.Background()

	tests := []struct {
		period string
		want   []string
		scores []int
	}{
		{"", []string{"s1", "s3", "s2", "s4"}, []int{120, 45, 30, 0}},
		{PeriodWeek, []string{"s2", "s3", "s1", "s4"}, []int{30, 5, 0, 0}},
		{PeriodMonth, []string{"s3", "s2", "s1", "s4"}, []int{45, 30, 0, 0}},
	}

	for _, tt := range tests {
		t.Run("period "+tt.period, func(t *testing.T) {
			res, err := h.Handle(ctx, LeaderboardQuery{Period: tt.period})
			require.NoError(t, err)
			require.Len(t, res.Entries, len(tt.want))
			for i, e := range res.Entries {
				assert.Equal(t, i+1, e.Rank)
				assert.Equal(t, tt.want[i], e.StudentID)
				assert.Equal(t, tt.scores[i], e.Score)
			}
		})
	}

	res, err := h.Handle(ctx, LeaderboardQuery{Period: PeriodWeek})
	require.NoError(t, err)
	require.NotNil(t, res.From)
	assert.Equal(t, time.Monday, res.From.Weekday())
	assert.Equal(t, 10, res.From.Day())
}

func TestLeaderboard_Limit(t *testing.T) {
	h := NewLeaderboardHandler(stateReader{testState()}, 2)
	ctx := context.Background()

	res, err := h.Handle(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.Equal(t, 4, res.Total)

	res, err = h.Handle(ctx, LeaderboardQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, string(student.LevelTree), res.Entries[0].Level)

	_, err = h.Handle(ctx, LeaderboardQuery{Limit: 101})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, LeaderboardQuery{Period: "year"})
	assert.True(t, shared.IsValidation(err))
}

func TestClassStatistics(t *testing.T) {
	h := NewClassStatisticsHandler(stateReader{testState()})

	stats, err := h.Handle(context.Background(), ClassStatisticsQuery{})
	require.NoError(t, err)

	assert.Equal(t, "6A", stats.ClassName)
	assert.Equal(t, 4, stats.TotalStudents)
	assert.Equal(t, 195, stats.TotalPoints)
	assert.Equal(t, 49, stats.AvgPoints)
	assert.Equal(t, 120, stats.MaxPoints)
	assert.Equal(t, 0, stats.MinPoints)
	assert.Equal(t, 38, stats.MedianPoints)
	assert.InDelta(t, 44.2, stats.StdDeviation, 1e-9)
	assert.Equal(t, 1, stats.TotalRewardsRedeemed)
	assert.Equal(t, 30, stats.TotalPointsSpent)

	counts := map[string]int{}
	percents := map[string]int{}
	for _, l := range stats.Levels {
		counts[l.Level] = l.Count
		percents[l.Level] = l.Percentage
	}
	assert.Equal(t, map[string]int{"hat": 1, "nay-mam": 2, "cay-con": 0, "cay-to": 1}, counts)
	assert.Equal(t, map[string]int{"hat": 25, "nay-mam": 50, "cay-con": 0, "cay-to": 25}, percents)

	ranges := make([]int, len(stats.PointRanges))
	for i, r := range stats.PointRanges {
		ranges[i] = r.Count
	}
	assert.Equal(t, []int{1, 2, 0, 1}, ranges)
	assert.Equal(t, []string{"An", "Cường", "Bình", "ân"}, names(stats.TopStudents))
}

func TestClassStatistics_EmptyClass(t *testing.T) {
	stats, err := NewClassStatisticsHandler(stateReader{testState()}).
		Handle(context.Background(), ClassStatisticsQuery{ClassID: "c2"})
	require.NoError(t, err)

	assert.Zero(t, stats.TotalStudents)
	assert.Zero(t, stats.AvgPoints)
	assert.Zero(t, stats.MedianPoints)
	assert.Zero(t, stats.StdDeviation)
	assert.Len(t, stats.Levels, 4)
	assert.Empty(t, stats.TopStudents)
}

func TestSummarize_OddMedianAndTopFive(t *testing.T) {
	var students []student.Student
	for _, p := range []int{5, 60, 10, 100, 20, 7, 3} {
		students = append(students, student.Student{ID: "x", Name: "x", TotalPoints: p})
	}
	stats := Summarize(students)
	assert.Equal(t, 10, stats.MedianPoints)
	assert.Len(t, stats.TopStudents, TopStudentsInStats)
	assert.Equal(t, 100, stats.TopStudents[0].TotalPoints)
}

func TestStudentDetail(t *testing.T) {
	h := NewStudentDetailHandler(stateReader{testState()})
	ctx := context.Background()

	d, err := h.Handle(ctx, StudentDetailQuery{StudentID: "s3"})
	require.NoError(t, err)

	assert.Equal(t, "Cường", d.Name)
	assert.Equal(t, "6A", d.ClassName)
	assert.Equal(t, string(student.LevelSprout), d.Level)
	assert.Equal(t, string(student.LevelSapling), d.Progress.NextLevel)
	assert.Equal(t, 5, d.Progress.Remaining)
	assert.InDelta(t, 83.33, d.Progress.Percent, 0.01)
	assert.Equal(t, 45, d.TotalAwarded)
	require.Len(t, d.History, 2)
	assert.Equal(t, "h5", d.History[0].ID, "newest first")

	d, err = h.Handle(ctx, StudentDetailQuery{StudentID: "s1"})
	require.NoError(t, err)
	assert.True(t, d.Progress.IsMax)
	assert.Equal(t, 30, d.TotalDeducted)
	assert.Equal(t, 30, d.PointsSpent)
	require.Len(t, d.Rewards, 1)

	_, err = h.Handle(ctx, StudentDetailQuery{})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, StudentDetailQuery{StudentID: "nope"})
	assert.True(t, shared.IsNotFound(err))
}

func TestListRewards(t *testing.T) {
	h := NewListRewardsHandler(stateReader{testState()})
	ctx := context.Background()

	res, err := h.Handle(ctx, ListRewardsQuery{})
	require.NoError(t, err)
	require.Len(t, res.Rewards, 6)
	assert.Nil(t, res.Balance)
	assert.Nil(t, res.Rewards[0].Affordable)

	res, err = h.Handle(ctx, ListRewardsQuery{StudentID: "s3"})
	require.NoError(t, err)
	require.NotNil(t, res.Balance)
	assert.Equal(t, 45, *res.Balance)
	assert.True(t, *res.Rewards[0].Affordable)
	assert.False(t, *res.Rewards[1].Affordable)

	_, err = h.Handle(ctx, ListRewardsQuery{StudentID: "ghost"})
	assert.True(t, shared.IsNotFound(err))
}
