package query

import (
	"context"
	"math"
	"sort"

	"github.com/lhtc/classpoint/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS STATISTICS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// TopStudentsInStats is the size of the top list in ClassStatistics.
const TopStudentsInStats = 5

// ClassStatisticsQuery selects a class.
type ClassStatisticsQuery struct {
	// ClassID - empty means the active class.
	ClassID string `json:"class_id"`
}

// LevelShare is the number of students in a level and their share.
type LevelShare struct {
	Level      string `json:"level"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// PointRange is a histogram bucket. Max is inclusive; -1 means unbounded.
type PointRange struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// ClassStatistics summarises a class.
type ClassStatistics struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`

	TotalStudents int     `json:"total_students"`
	TotalPoints   int     `json:"total_points"`
	AvgPoints     int     `json:"avg_points"`
	MaxPoints     int     `json:"max_points"`
	MinPoints     int     `json:"min_points"`
	MedianPoints  int     `json:"median_points"`
	StdDeviation  float64 `json:"std_deviation"`

	Levels      []LevelShare `json:"levels"`
	PointRanges []PointRange `json:"point_ranges"`

	TotalRewardsRedeemed int `json:"total_rewards_redeemed"`
	TotalPointsSpent     int `json:"total_points_spent"`

	TopStudents []StudentDTO `json:"top_students"`
}

// ClassStatisticsHandler handles ClassStatisticsQuery.
type ClassStatisticsHandler struct {
	reader StateReader
}

// NewClassStatisticsHandler creates a new ClassStatisticsHandler.
func NewClassStatisticsHandler(reader StateReader) *ClassStatisticsHandler {
	return &ClassStatisticsHandler{reader: reader}
}

// Handle executes the query.
func (h *ClassStatisticsHandler) Handle(ctx context.Context, q ClassStatisticsQuery) (*ClassStatistics, error) {
	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	class, err := resolveClass(state, q.ClassID)
	if err != nil {
		return nil, err
	}

	stats := Summarize(state.StudentsInClass(class.ID))
	stats.ClassID = class.ID
	stats.ClassName = class.Name
	return &stats, nil
}

// Summarize computes the statistics of a group of students. Averages,
// medians and percentages are rounded half up; the standard deviation is
// the population one, rounded to one decimal.
func Summarize(students []student.Student) ClassStatistics {
	stats := ClassStatistics{
		TotalStudents: len(students),
		PointRanges: []PointRange{
			{Label: "0-19", Min: 0, Max: 19},
			{Label: "20-49", Min: 20, Max: 49},
			{Label: "50-99", Min: 50, Max: 99},
			{Label: "100+", Min: 100, Max: -1},
		},
	}

	tiers := student.Tiers()
	levelCounts := make(map[student.Level]int, len(tiers))
	values := make([]int, len(students))

	for i, s := range students {
		p := s.TotalPoints
		values[i] = p
		stats.TotalPoints += p
		if i == 0 || p > stats.MaxPoints {
			stats.MaxPoints = p
		}
		if i == 0 || p < stats.MinPoints {
			stats.MinPoints = p
		}

		levelCounts[s.Level()]++
		for j := range stats.PointRanges {
			r := &stats.PointRanges[j]
			if p >= r.Min && (r.Max < 0 || p <= r.Max) {
				r.Count++
				break
			}
		}

		stats.TotalRewardsRedeemed += len(s.RewardsRedeemed)
		stats.TotalPointsSpent += s.PointsSpent()
	}

	n := len(students)
	if n > 0 {
		stats.AvgPoints = roundHalfUp(float64(stats.TotalPoints) / float64(n))
	}
	stats.MedianPoints = median(values)
	stats.StdDeviation = math.Round(stdDeviation(values)*10) / 10

	stats.Levels = make([]LevelShare, len(tiers))
	for i, t := range tiers {
		count := levelCounts[t.Level]
		share := LevelShare{Level: string(t.Level), Name: t.Name, Icon: t.Icon, Count: count}
		if n > 0 {
			share.Percentage = roundHalfUp(float64(count) / float64(n) * 100)
		}
		stats.Levels[i] = share
	}

	top := make([]student.Student, n)
	copy(top, students)
	SortStudents(top, SortByPoints, SortDesc)
	if len(top) > TopStudentsInStats {
		top = top[:TopStudentsInStats]
	}
	stats.TopStudents = make([]StudentDTO, len(top))
	for i, s := range top {
		stats.TopStudents[i] = NewStudentDTO(s)
	}

	return stats
}

func median(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid]
	}
	return roundHalfUp(float64(sorted[mid-1]+sorted[mid]) / 2)
}

func stdDeviation(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
