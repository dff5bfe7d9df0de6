package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/classroom"
)

// NewClassCommand creates the class command group.
func NewClassCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, listClasses)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a class and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				c, err := a.Classes.Create(ctx, command.CreateClassCommand{Name: args[0]})
				if err != nil {
					return err
				}
				return p.Result(classView(c), func() { p.Success("Created class %s (%s)", c.Name, c.ID) })
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <class-id> <name>",
		Short: "Rename a class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				c, err := a.Classes.Rename(ctx, command.RenameClassCommand{ClassID: args[0], Name: args[1]})
				if err != nil {
					return err
				}
				return p.Result(classView(c), func() { p.Success("Renamed class to %s", c.Name) })
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <class-id>",
		Short: "Make a class active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				c, err := a.Classes.Select(ctx, command.ClassIDCommand{ClassID: args[0]})
				if err != nil {
					return err
				}
				return p.Result(classView(c), func() { p.Success("Active class is now %s", c.Name) })
			})
		},
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete <class-id>",
		Short: "Delete an empty class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "deleting a class"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				c, err := a.Classes.Delete(ctx, command.ClassIDCommand{ClassID: args[0]})
				if err != nil {
					return err
				}
				return p.Result(classView(c), func() { p.Success("Deleted class %s", c.Name) })
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	cmd.AddCommand(del)

	var clearYes, clearAgain bool
	clearCmd := &cobra.Command{
		Use:   "clear <class-id>",
		Short: "Remove every student of a class",
		Long: `Remove every student of a class together with their history.

Clearing cannot be undone and needs both --yes and --confirm-again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(clearYes, "--yes", "clearing a class"); err != nil {
				return err
			}
			if err := confirm(clearAgain, "--confirm-again", "clearing a class"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.Classes.Clear(ctx, command.ClassIDCommand{ClassID: args[0]})
				if err != nil {
					return err
				}
				out := map[string]any{"class": classView(res.Class), "removed": res.Removed}
				return p.Result(out, func() {
					p.Success("Removed %d students from %s", res.Removed, res.Class.Name)
				})
			})
		},
	}
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm clearing")
	clearCmd.Flags().BoolVar(&clearAgain, "confirm-again", false, "confirm clearing a second time")
	cmd.AddCommand(clearCmd)

	return cmd
}

func listClasses(ctx context.Context, a *app.App, p *Printer) error {
	res, err := a.ListClasses.Handle(ctx)
	if err != nil {
		return err
	}
	return p.Result(res, func() {
		rows := make([][]string, 0, len(res.Classes))
		for _, c := range res.Classes {
			active := ""
			if c.Active {
				active = "*"
			}
			rows = append(rows, []string{active, c.ID, c.Name, strconv.Itoa(c.Students)})
		}
		p.Table([]string{"", "ID", "CLASS", "STUDENTS"}, rows)
	})
}

func classView(c classroom.ClassGroup) query.ClassDTO {
	return query.ClassDTO{ID: c.ID, Name: c.Name}
}
