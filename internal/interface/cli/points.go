package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/eventhandler"
	"github.com/lhtc/classpoint/internal/application/query"
)

// NewPointsCommand creates the points command group.
func NewPointsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Award or deduct points",
	}

	cmd.AddCommand(newAdjustCommand(opts, "award", "Award points to a student", 1))
	cmd.AddCommand(newAdjustCommand(opts, "deduct", "Deduct points from a student", -1))

	return cmd
}

func newAdjustCommand(opts *RootOptions, use, short string, sign int) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   use + " <student-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil || amount < 0 {
				return usageError("amount must be a non-negative number, got %q", args[1])
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.Points.Adjust(ctx, command.AdjustPointsCommand{
					StudentID: args[0],
					Change:    sign * amount,
					Reason:    reason,
				})
				if err != nil {
					return err
				}
				return p.Result(adjustView(res), func() {
					p.Success("%s: %+d → %d points", res.Student.Name, res.Entry.Change, res.Student.TotalPoints)
					if res.LevelUp != nil {
						p.Box(eventhandler.Celebration(res.LevelUp.StudentName, res.LevelUp.To))
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason shown in the history")

	return cmd
}

func adjustView(res *command.AdjustPointsResult) map[string]any {
	out := map[string]any{
		"student": query.NewStudentDTO(res.Student),
		"entry":   query.NewHistoryDTO(res.Entry),
	}
	if lu := res.LevelUp; lu != nil {
		out["level_up"] = map[string]string{"from": string(lu.From), "to": string(lu.To)}
	}
	return out
}
