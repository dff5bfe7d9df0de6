// Package cli implements the classpoint command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/domain/shared"
)

// AppFactory opens the application for one command. The returned function
// releases it.
type AppFactory func(ctx context.Context) (*app.App, func() error, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	factory AppFactory
}

// DefaultFactory loads configuration from the environment and wires the
// application with logs on stderr.
func DefaultFactory(ctx context.Context) (*app.App, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, app.NewLogger(cfg, os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

// NewRootCommand creates the root command. A nil factory means
// DefaultFactory.
func NewRootCommand(factory AppFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultFactory
	}
	opts := &RootOptions{factory: factory}

	cmd := &cobra.Command{
		Use:   "classpoint",
		Short: "Classroom points and levels",
		Long: `Classpoint keeps a point ledger for every student of a class.

Points move students through four levels (Hạt, Nảy mầm, Cây con, Cây to)
and can be spent on rewards from the class catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageError("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")

	cmd.AddCommand(NewClassCommand(opts))
	cmd.AddCommand(NewStudentCommand(opts))
	cmd.AddCommand(NewPointsCommand(opts))
	cmd.AddCommand(NewRewardCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand(nil)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// run opens the application, runs fn and releases the application again.
func (o *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, p *Printer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, release, err := o.factory(ctx)
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: "open classpoint", Err: err}
	}
	defer func() { _ = release() }()

	err = fn(ctx, a, NewPrinter(o.Format, cmd.OutOrStdout()))
	switch {
	case err != nil && shared.IsValidation(err):
		return &ExitError{Code: ExitCommandError, Message: "invalid input", Err: err}
	case errors.Is(err, shared.ErrCorruptSnapshot):
		return &ExitError{Code: ExitFailure, Message: "stored data is corrupt, run `classpoint snapshot recover --yes`", Err: err}
	}
	return err
}

// confirm fails with a usage error unless the flag was given.
func confirm(ok bool, flag, action string) error {
	if ok {
		return nil
	}
	return usageError("%s needs confirmation, pass %s", action, flag)
}
