package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/infrastructure/importer"
	"github.com/lhtc/classpoint/pkg/timeutil"
)

// NewStudentCommand creates the student command group.
func NewStudentCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "student",
		Aliases: []string{"students"},
		Short:   "Manage students",
	}

	cmd.AddCommand(newStudentListCommand(opts))
	cmd.AddCommand(newStudentAddCommand(opts))
	cmd.AddCommand(newStudentShowCommand(opts))
	cmd.AddCommand(newStudentUpdateCommand(opts))
	cmd.AddCommand(newStudentDeleteCommand(opts))
	cmd.AddCommand(newStudentImportCommand(opts))

	return cmd
}

func newStudentListCommand(opts *RootOptions) *cobra.Command {
	var q query.ListStudentsQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the students of a class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.ListStudents.Handle(ctx, q)
				if err != nil {
					return err
				}
				return p.Result(res, func() {
					p.Title("%s · %d students", res.Class.Name, res.Total)
					rows := make([][]string, 0, len(res.Students))
					for _, s := range res.Students {
						order := "-"
						if s.Order != nil {
							order = strconv.Itoa(*s.Order)
						}
						rows = append(rows, []string{
							order, s.ID, s.Name, strconv.Itoa(s.TotalPoints), s.LevelIcon + " " + s.LevelName,
						})
					}
					p.Table([]string{"#", "ID", "NAME", "POINTS", "LEVEL"}, rows)
				})
			})
		},
	}

	cmd.Flags().StringVar(&q.ClassID, "class", "", "class id (default: active class)")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "filter by name")
	cmd.Flags().StringVar(&q.SortBy, "sort", query.SortByPoints, "sort by name|points|order")
	cmd.Flags().StringVar(&q.Direction, "dir", "", "sort direction asc|desc")

	return cmd
}

func newStudentAddCommand(opts *RootOptions) *cobra.Command {
	var (
		classID string
		order   int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.AddStudentCommand{ClassID: classID, Name: args[0]}
			if cmd.Flags().Changed("order") {
				c.Order = &order
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				s, err := a.Students.Add(ctx, c)
				if err != nil {
					return err
				}
				return p.Result(query.NewStudentDTO(s), func() {
					p.Success("Added %s (%s)", s.Name, s.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&classID, "class", "", "class id (default: active class)")
	cmd.Flags().IntVar(&order, "order", 0, "roster number (default: next free)")

	return cmd
}

func newStudentShowCommand(opts *RootOptions) *cobra.Command {
	var history int

	cmd := &cobra.Command{
		Use:   "show <student-id>",
		Short: "Show a student card with history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				d, err := a.StudentDetail.Handle(ctx, query.StudentDetailQuery{StudentID: args[0]})
				if err != nil {
					return err
				}
				return p.Result(d, func() { printStudentCard(p, d, history) })
			})
		},
	}

	cmd.Flags().IntVarP(&history, "history", "n", 10, "number of history entries to show")

	return cmd
}

func printStudentCard(p *Printer, d *query.StudentDetailDTO, history int) {
	next := "max level"
	if !d.Progress.IsMax {
		next = fmt.Sprintf("%d to %s (%.0f%%)", d.Progress.Remaining, d.Progress.NextName, d.Progress.Percent)
	}
	p.Box(fmt.Sprintf("%s %s\n%d points · %s\nnext: %s", d.LevelIcon, d.Name, d.TotalPoints, d.LevelName, next))
	p.Muted("awarded %d · deducted %d · spent %d", d.TotalAwarded, d.TotalDeducted, d.PointsSpent)

	if len(d.History) > 0 {
		entries := d.History
		if history >= 0 && len(entries) > history {
			entries = entries[:history]
		}
		rows := make([][]string, 0, len(entries))
		for _, h := range entries {
			rows = append(rows, []string{
				timeutil.FormatDate(h.Date), fmt.Sprintf("%+d", h.Change), h.Reason, strconv.Itoa(h.PointsAfter),
			})
		}
		p.Table([]string{"DATE", "CHANGE", "REASON", "BALANCE"}, rows)
	}

	for _, r := range d.Rewards {
		p.Line("%s  %s  -%d", timeutil.FormatDate(r.Date), r.RewardName, r.PointsSpent)
	}
}

func newStudentUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		name   string
		order  int
		avatar string
	)

	cmd := &cobra.Command{
		Use:   "update <student-id>",
		Short: "Change the name, roster number or avatar of a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.UpdateStudentCommand{StudentID: args[0], Name: name}
			if cmd.Flags().Changed("order") {
				c.Order = &order
			}
			if cmd.Flags().Changed("avatar") {
				c.Avatar = &avatar
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				s, err := a.Students.Update(ctx, c)
				if err != nil {
					return err
				}
				return p.Result(query.NewStudentDTO(s), func() { p.Success("Updated %s", s.Name) })
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().IntVar(&order, "order", 0, "new roster number")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar url, empty to remove")

	return cmd
}

func newStudentDeleteCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <student-id>",
		Short: "Delete a student and their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "deleting a student"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				s, err := a.Students.Delete(ctx, command.DeleteStudentCommand{StudentID: args[0]})
				if err != nil {
					return err
				}
				return p.Result(query.NewStudentDTO(s), func() { p.Success("Deleted %s", s.Name) })
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")

	return cmd
}

func newStudentImportCommand(opts *RootOptions) *cobra.Command {
	var classID string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import students from a CSV, JSON or YAML roster",
		Long: `Import students from a roster file. The format follows the file
extension (.csv, .json, .yaml, .yml).

CSV files may start with a header row; the columns "STT", "Họ và tên",
"Ngày sinh" and "Lớp" are recognised in any order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := importer.ParseFile(args[0])
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "read roster", Err: err}
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				created, err := a.Students.Import(ctx, command.ImportStudentsCommand{
					ClassID: classID,
					Records: roster.Records(),
				})
				if err != nil {
					return err
				}
				out := make([]query.StudentDTO, len(created))
				for i, s := range created {
					out[i] = query.NewStudentDTO(s)
				}
				return p.Result(out, func() { p.Success("Imported %d students", len(created)) })
			})
		},
	}

	cmd.Flags().StringVar(&classID, "class", "", "class id (default: active class)")

	return cmd
}
