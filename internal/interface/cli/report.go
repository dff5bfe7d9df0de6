package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/internal/infrastructure/export"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(opts *RootOptions) *cobra.Command {
	var q query.LeaderboardQuery

	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"top"},
		Short:   "Show the class leaderboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := leaderboard(ctx, a, q)
				if err != nil {
					return err
				}
				return p.Result(res, func() {
					p.Title("%s · %s", res.ClassName, res.Period)
					rows := make([][]string, 0, len(res.Entries))
					for _, e := range res.Entries {
						rows = append(rows, []string{
							strconv.Itoa(e.Rank), e.LevelIcon + " " + e.Name, strconv.Itoa(e.Score), strconv.Itoa(e.TotalPoints),
						})
					}
					p.Table([]string{"#", "STUDENT", "SCORE", "BALANCE"}, rows)
					p.Muted("%d of %d students", len(res.Entries), res.Total)
				})
			})
		},
	}

	addLeaderboardFlags(cmd, &q)

	return cmd
}

func addLeaderboardFlags(cmd *cobra.Command, q *query.LeaderboardQuery) {
	cmd.Flags().StringVar(&q.ClassID, "class", "", "class id (default: active class)")
	cmd.Flags().StringVar(&q.Period, "period", query.PeriodAll, "all|week|month")
	cmd.Flags().IntVarP(&q.Limit, "limit", "n", 0, "number of entries (default: configured size)")
}

func leaderboard(ctx context.Context, a *app.App, q query.LeaderboardQuery) (*query.LeaderboardResult, error) {
	if q.Period != "" && q.Period != query.PeriodAll && !a.Config.Features.IsEnabled(config.FeatureLeaderboardPeriods) {
		return nil, usageError("period leaderboards are disabled (%s)", config.FeatureLeaderboardPeriods)
	}
	return a.Leaderboard.Handle(ctx, q)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	var classID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise points and levels of a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				st, err := a.Statistics.Handle(ctx, query.ClassStatisticsQuery{ClassID: classID})
				if err != nil {
					return err
				}
				return p.Result(st, func() { printStatistics(p, st) })
			})
		},
	}

	cmd.Flags().StringVar(&classID, "class", "", "class id (default: active class)")

	return cmd
}

func printStatistics(p *Printer, st *query.ClassStatistics) {
	p.Title("%s · %d students", st.ClassName, st.TotalStudents)
	p.Line("total %d · avg %d · median %d · min %d · max %d · σ %.1f",
		st.TotalPoints, st.AvgPoints, st.MedianPoints, st.MinPoints, st.MaxPoints, st.StdDeviation)
	p.Line("redeemed %d rewards for %d points", st.TotalRewardsRedeemed, st.TotalPointsSpent)

	levels := make([][]string, 0, len(st.Levels))
	for _, l := range st.Levels {
		levels = append(levels, []string{l.Icon + " " + l.Name, strconv.Itoa(l.Count), fmt.Sprintf("%d%%", l.Percentage)})
	}
	p.Table([]string{"LEVEL", "STUDENTS", "SHARE"}, levels)

	ranges := make([][]string, 0, len(st.PointRanges))
	for _, r := range st.PointRanges {
		ranges = append(ranges, []string{r.Label, strconv.Itoa(r.Count)})
	}
	p.Table([]string{"POINTS", "STUDENTS"}, ranges)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT
// ══════════════════════════════════════════════════════════════════════════════

// NewExportCommand creates the export command group.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the roster or leaderboard as CSV",
	}

	var (
		classID string
		out     string
	)
	roster := &cobra.Command{
		Use:   "roster",
		Short: "Export the roster of a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				if err := exportEnabled(a); err != nil {
					return err
				}
				state, err := a.Workspace.Snapshot(ctx)
				if err != nil {
					return err
				}
				class := state.ActiveClass()
				if classID != "" {
					if class, err = state.FindClass(classID); err != nil {
						return err
					}
				}
				students := state.StudentsInClass(class.ID)
				query.SortStudents(students, query.SortByOrder, query.SortAsc)

				var buf bytes.Buffer
				if err := export.WriteRoster(&buf, class.Name, students); err != nil {
					return err
				}
				return writeExport(p, "roster", out, buf.Bytes(), len(students))
			})
		},
	}
	roster.Flags().StringVar(&classID, "class", "", "class id (default: active class)")
	roster.Flags().StringVarP(&out, "out", "o", "", "output file (default: classpoint_roster_<date>.csv)")
	cmd.AddCommand(roster)

	var (
		q        query.LeaderboardQuery
		boardOut string
	)
	board := &cobra.Command{
		Use:   "leaderboard",
		Short: "Export the leaderboard of a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				if err := exportEnabled(a); err != nil {
					return err
				}
				res, err := leaderboard(ctx, a, q)
				if err != nil {
					return err
				}
				rows := make([]export.LeaderboardRow, 0, len(res.Entries))
				for _, e := range res.Entries {
					level, _ := student.ParseLevel(e.Level)
					rows = append(rows, export.LeaderboardRow{
						Rank:      e.Rank,
						StudentID: e.StudentID,
						Name:      e.Name,
						Points:    e.Score,
						Level:     level,
					})
				}

				var buf bytes.Buffer
				if err := export.WriteLeaderboard(&buf, rows); err != nil {
					return err
				}
				return writeExport(p, "leaderboard", boardOut, buf.Bytes(), len(rows))
			})
		},
	}
	addLeaderboardFlags(board, &q)
	board.Flags().StringVarP(&boardOut, "out", "o", "", "output file (default: classpoint_leaderboard_<date>.csv)")
	cmd.AddCommand(board)

	return cmd
}

func exportEnabled(a *app.App) error {
	if a.Config.Features.IsEnabled(config.FeatureExport) {
		return nil
	}
	return usageError("export is disabled (%s)", config.FeatureExport)
}

// writeExport writes data to path, or to stdout when path is "-".
func writeExport(p *Printer, kind, path string, data []byte, rows int) error {
	if path == "-" {
		_, err := p.out.Write(data)
		return err
	}
	if path == "" {
		path = export.FileName(kind, timeutil.Now())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return p.Result(map[string]any{"file": path, "rows": rows}, func() {
		p.Success("Wrote %d rows to %s", rows, path)
	})
}
