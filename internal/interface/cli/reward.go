package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/internal/application/command"
	"github.com/lhtc/classpoint/internal/application/query"
	"github.com/lhtc/classpoint/internal/domain/shared"
)

// NewRewardCommand creates the reward command group.
func NewRewardCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reward",
		Aliases: []string{"rewards"},
		Short:   "Manage the reward catalog and redeem rewards",
	}

	cmd.AddCommand(newRewardListCommand(opts))
	cmd.AddCommand(newRewardAddCommand(opts))
	cmd.AddCommand(newRewardUpdateCommand(opts))
	cmd.AddCommand(newRewardDeleteCommand(opts))
	cmd.AddCommand(newRewardResetCommand(opts))
	cmd.AddCommand(newRedeemCommand(opts))

	return cmd
}

func newRewardListCommand(opts *RootOptions) *cobra.Command {
	var studentID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rewards, optionally against a student's balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.ListRewards.Handle(ctx, query.ListRewardsQuery{StudentID: studentID})
				if err != nil {
					return err
				}
				return p.Result(res, func() {
					if res.Balance != nil {
						p.Title("Balance: %d points", *res.Balance)
					}
					rows := make([][]string, 0, len(res.Rewards))
					for _, r := range res.Rewards {
						row := []string{r.ID, r.Icon + " " + r.Name, strconv.Itoa(r.Cost), r.Description}
						if r.Affordable != nil {
							mark := "no"
							if *r.Affordable {
								mark = "yes"
							}
							row = append(row, mark)
						}
						rows = append(rows, row)
					}
					header := []string{"ID", "REWARD", "COST", "DESCRIPTION"}
					if res.Balance != nil {
						header = append(header, "AFFORDABLE")
					}
					p.Table(header, rows)
				})
			})
		},
	}

	cmd.Flags().StringVar(&studentID, "student", "", "show affordability for this student")

	return cmd
}

func newRewardAddCommand(opts *RootOptions) *cobra.Command {
	var c command.AddRewardCommand

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a reward to the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.Name = args[0]
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				r, err := a.Rewards.Add(ctx, c)
				if err != nil {
					return err
				}
				return p.Result(query.NewRewardDTO(r), func() {
					p.Success("Added %s %s for %d points (%s)", r.Icon, r.Name, r.Cost, r.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&c.Icon, "icon", "", "icon")
	cmd.Flags().IntVar(&c.Cost, "cost", 0, "cost in points")
	cmd.Flags().StringVar(&c.Description, "description", "", "description")

	return cmd
}

func newRewardUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		name, icon, description string
		cost                    int
	)

	cmd := &cobra.Command{
		Use:   "update <reward-id>",
		Short: "Change a reward; fields without a flag keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				current, err := findReward(ctx, a, args[0])
				if err != nil {
					return err
				}

				c := command.UpdateRewardCommand{
					RewardID:    current.ID,
					Name:        current.Name,
					Icon:        current.Icon,
					Cost:        current.Cost,
					Description: current.Description,
				}
				flags := cmd.Flags()
				if flags.Changed("name") {
					c.Name = name
				}
				if flags.Changed("icon") {
					c.Icon = icon
				}
				if flags.Changed("cost") {
					c.Cost = cost
				}
				if flags.Changed("description") {
					c.Description = description
				}

				r, err := a.Rewards.Update(ctx, c)
				if err != nil {
					return err
				}
				return p.Result(query.NewRewardDTO(r), func() { p.Success("Updated %s %s", r.Icon, r.Name) })
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&icon, "icon", "", "icon")
	cmd.Flags().IntVar(&cost, "cost", 0, "cost in points")
	cmd.Flags().StringVar(&description, "description", "", "description")

	return cmd
}

func findReward(ctx context.Context, a *app.App, id string) (query.RewardDTO, error) {
	res, err := a.ListRewards.Handle(ctx, query.ListRewardsQuery{})
	if err != nil {
		return query.RewardDTO{}, err
	}
	for _, r := range res.Rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return query.RewardDTO{}, shared.NotFound("cli", "UpdateReward", "reward", id)
}

func newRewardDeleteCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <reward-id>",
		Short: "Remove a reward from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "deleting a reward"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				if err := a.Rewards.Delete(ctx, command.DeleteRewardCommand{RewardID: args[0]}); err != nil {
					return err
				}
				return p.Result(map[string]string{"deleted": args[0]}, func() {
					p.Success("Deleted reward %s", args[0])
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")

	return cmd
}

func newRewardResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace the catalog with the default rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(yes, "--yes", "resetting the catalog"); err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				catalog, err := a.Rewards.Reset(ctx)
				if err != nil {
					return err
				}
				out := make([]query.RewardDTO, len(catalog))
				for i, r := range catalog {
					out[i] = query.NewRewardDTO(r)
				}
				return p.Result(out, func() { p.Success("Catalog reset to %d rewards", len(out)) })
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm reset")

	return cmd
}

func newRedeemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <student-id> <reward-id>",
		Short: "Spend a student's points on a reward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App, p *Printer) error {
				res, err := a.Points.Redeem(ctx, command.RedeemRewardCommand{StudentID: args[0], RewardID: args[1]})
				if err != nil {
					return err
				}
				out := map[string]any{
					"student": query.NewStudentDTO(res.Student),
					"reward":  query.NewRewardDTO(res.Reward),
				}
				return p.Result(out, func() {
					p.Success("%s redeemed %s %s, %d points left",
						res.Student.Name, res.Reward.Icon, res.Reward.Name, res.Student.TotalPoints)
				})
			})
		},
	}
}
