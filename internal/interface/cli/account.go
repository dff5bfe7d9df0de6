package cli

import (
	"bufio"
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/infrastructure/auth"
	"github.com/lhtc/classpoint/pkg/logger"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage API accounts",
	}

	var user string
	hash := &cobra.Command{
		Use:   "hash [password]",
		Short: "Hash a password for AUTH_ACCOUNTS",
		Long: `Hash a password with bcrypt. Without an argument the password is read
from the first line of stdin.

With --user the output is a complete AUTH_ACCOUNTS entry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, args)
			if err != nil {
				return err
			}
			h, err := auth.HashPassword(password)
			if err != nil {
				return usageError("%v", err)
			}

			p := NewPrinter(opts.Format, cmd.OutOrStdout())
			entry := h
			if user != "" {
				entry = user + ":" + h
			}
			return p.Result(map[string]string{"user": user, "hash": h}, func() { p.Line("%s", entry) })
		},
	}
	hash.Flags().StringVarP(&user, "user", "u", "", "username to prefix")
	cmd.AddCommand(hash)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured account names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				names := a.Accounts.Usernames()
				return p.Result(names, func() {
					if len(names) == 0 {
						p.Warn("No accounts configured, the API is open")
						return
					}
					for _, n := range names {
						p.Line("%s", n)
					}
				})
			})
		},
	})

	return cmd
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", usageError("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
				defer stop()

				a.Log.Info("classpoint api listening", logger.String("address", a.Config.HTTPAddr()))
				return a.Serve(ctx)
			})
		},
	}
}
