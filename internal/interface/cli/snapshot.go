package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Back up, repair and restore stored data",
	}
	cmd.AddCommand(newSnapshotRecoverCommand(opts))
	cmd.AddCommand(newSnapshotBackupsCommand(opts))
	cmd.AddCommand(newSnapshotRestoreCommand(opts))
	return cmd
}

func newSnapshotRecoverCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Back up a corrupt snapshot and reset its unreadable parts",
		Long: `Copy the raw stored data into a new backup, then save the parts that can
still be read together with defaults for the parts that cannot.

Nothing is written when the stored data is readable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "recovering stored data"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.Workspace.Recover(ctx)
				if err != nil {
					return err
				}
				out := map[string]any{
					"recovered": res.Recovered,
					"backup_id": res.BackupID,
					"problems":  res.Problems,
					"students":  len(res.State.Students),
					"classes":   len(res.State.Classes),
				}
				return p.Result(out, func() {
					if !res.Recovered {
						p.Success("Stored data is readable, nothing to recover")
						return
					}
					for _, problem := range res.Problems {
						p.Warn("%s", problem)
					}
					p.Success("Recovered %d students in %d classes", len(res.State.Students), len(res.State.Classes))
					p.Muted("Original data kept as backup %s", res.BackupID)
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm recovery")
	return cmd
}

func newSnapshotBackupsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List snapshot backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				ids, err := a.Store.Backups(ctx)
				if err != nil {
					return err
				}
				return p.Result(ids, func() {
					if len(ids) == 0 {
						p.Muted("No backups")
						return
					}
					for _, id := range ids {
						p.Line("%s", id)
					}
				})
			})
		},
	}
}

func newSnapshotRestoreCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace stored data with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "restoring a backup"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				raw, err := a.Store.LoadBackup(ctx, args[0])
				if err != nil {
					return err
				}
				state, err := a.Store.Restore(ctx, raw)
				if err != nil {
					return err
				}
				if err := a.Workspace.Load(ctx); err != nil {
					return err
				}
				out := map[string]any{
					"backup_id": args[0],
					"students":  len(state.Students),
					"classes":   len(state.Classes),
				}
				return p.Result(out, func() {
					p.Success("Restored backup %s: %d students in %d classes", args[0], len(state.Students), len(state.Classes))
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm restore")
	return cmd
}
