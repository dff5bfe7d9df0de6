package query

import (
	"context"
	"sort"
	"time"

	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD QUERY
// Top students of a class. For the week and month periods the score is the
// net change gained inside the current period in the school timezone.
// ══════════════════════════════════════════════════════════════════════════════

// Leaderboard periods.
const (
	PeriodAll   = "all"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// MaxLeaderboardSize caps Limit.
const MaxLeaderboardSize = 100

// LeaderboardQuery selects a class leaderboard.
type LeaderboardQuery struct {
	// ClassID - empty means the active class.
	ClassID string `json:"class_id"`

	// Limit - number of entries; 0 means the configured default.
	Limit int `json:"limit" validate:"gte=0,lte=100"`

	// Period - all (default), week or month.
	Period string `json:"period" validate:"omitempty,oneof=all week month"`
}

// LeaderboardEntryDTO is one leaderboard row.
type LeaderboardEntryDTO struct {
	// Rank - position starting at 1.
	Rank int `json:"rank"`

	StudentID string `json:"student_id"`
	Name      string `json:"name"`

	// Score - points used for ranking in the requested period.
	Score int `json:"score"`

	// TotalPoints - current balance.
	TotalPoints int `json:"total_points"`

	Level     string `json:"level"`
	LevelIcon string `json:"level_icon"`
}

// LeaderboardResult is a ranked list.
type LeaderboardResult struct {
	ClassID   string                `json:"class_id"`
	ClassName string                `json:"class_name"`
	Period    string                `json:"period"`
	From      *time.Time            `json:"from,omitempty"`
	To        *time.Time            `json:"to,omitempty"`
	Entries   []LeaderboardEntryDTO `json:"entries"`
	Total     int                   `json:"total"`
}

// LeaderboardHandler handles LeaderboardQuery.
type LeaderboardHandler struct {
	reader      StateReader
	defaultSize int
	now         func() time.Time
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(reader StateReader, defaultSize int) *LeaderboardHandler {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	return &LeaderboardHandler{reader: reader, defaultSize: defaultSize, now: timeutil.Now}
}

// WithClock overrides the clock used for week and month windows.
func (h *LeaderboardHandler) WithClock(now func() time.Time) *LeaderboardHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *LeaderboardHandler) Handle(ctx context.Context, q LeaderboardQuery) (*LeaderboardResult, error) {
	if err := validate("Leaderboard", q); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = h.defaultSize
	}
	if q.Period == "" {
		q.Period = PeriodAll
	}

	state, err := h.reader.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	class, err := resolveClass(state, q.ClassID)
	if err != nil {
		return nil, err
	}

	result := &LeaderboardResult{ClassID: class.ID, ClassName: class.Name, Period: q.Period}

	var window shared.TimeRange
	switch q.Period {
	case PeriodWeek:
		window.From, window.To = timeutil.WeekBounds(h.now())
	case PeriodMonth:
		window.From, window.To = timeutil.MonthBounds(h.now())
	}
	if !window.IsZero() {
		from, to := window.From, window.To
		result.From, result.To = &from, &to
	}

	students := state.StudentsInClass(class.ID)
	result.Total = len(students)
	result.Entries = Rank(students, window, q.Limit)
	return result, nil
}

// Rank orders students by score and keeps the first limit. A zero window
// ranks by current balance; otherwise by net change inside the window, with
// the balance breaking ties.
func Rank(students []student.Student, window shared.TimeRange, limit int) []LeaderboardEntryDTO {
	type scored struct {
		s     student.Student
		score int
	}

	rows := make([]scored, len(students))
	for i, s := range students {
		score := s.TotalPoints
		if !window.IsZero() {
			score = s.NetChange(window)
		}
		rows[i] = scored{s: s, score: score}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].s.TotalPoints > rows[j].s.TotalPoints
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]LeaderboardEntryDTO, len(rows))
	for i, r := range rows {
		lvl := r.s.Level()
		out[i] = LeaderboardEntryDTO{
			Rank:        i + 1,
			StudentID:   r.s.ID,
			Name:        r.s.Name,
			Score:       r.score,
			TotalPoints: r.s.TotalPoints,
			Level:       string(lvl),
			LevelIcon:   lvl.Icon(),
		}
	}
	return out
}
