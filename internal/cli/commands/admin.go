package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/validate"
)

// NewAdminCmd creates the admin command group. Every subcommand requires an
// administrator session.
func NewAdminCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator views: review campaigns, manage users, audit",
	}

	campaigns := &cobra.Command{
		Use:   "campaigns",
		Short: "Review campaigns from every user",
	}
	campaigns.AddCommand(newAdminCampaignsListCmd(g))
	campaigns.AddCommand(newAdminReviewCmd(g, "approve"))
	campaigns.AddCommand(newAdminReviewCmd(g, "reject"))

	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	users.AddCommand(newAdminUsersListCmd(g))
	users.AddCommand(newAdminUsersDeleteCmd(g))

	cmd.AddCommand(campaigns)
	cmd.AddCommand(users)
	cmd.AddCommand(newAdminAuditLogsCmd(g))
	cmd.AddCommand(newAdminAnalyticsCmd(g))
	cmd.AddCommand(newAdminLeaderboardCmd(g))

	return cmd
}

// adminView wraps run so it only executes for administrators
func adminView(g *Globals, run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(g, func(ctx context.Context, a *app, args []string) error {
		if _, err := a.requireAdmin(ctx); err != nil {
			return err
		}
		return run(ctx, a, args)
	})
}

func newAdminCampaignsListCmd(g *Globals) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all campaigns",
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			campaigns, err := a.api.ListAllCampaigns(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load campaigns")
			}

			if status != "" {
				filtered := campaigns[:0]
				for _, c := range campaigns {
					if strings.EqualFold(c.Status, status) {
						filtered = append(filtered, c)
					}
				}
				campaigns = filtered
			}

			if len(campaigns) == 0 {
				fmt.Fprintln(a.out, "No campaigns found.")
				return nil
			}
			printCampaignTable(a, campaigns, true)
			return nil
		}),
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show campaigns with this status (pending, approved, rejected)")
	return cmd
}

func newAdminReviewCmd(g *Globals, action string) *cobra.Command {
	var comment string

	short := "Approve a pending campaign"
	if action == "reject" {
		short = "Reject a pending campaign (a comment is required)"
	}

	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			var (
				resp *client.MessageResponse
				err  error
			)
			if action == "reject" {
				if comment == "" && stdinIsTerminal() {
					if comment, err = promptText("Reason", "", true); err != nil {
						return err
					}
				}
				if err := validate.RejectComment(comment); err != nil {
					return err
				}
				resp, err = a.api.RejectCampaign(ctx, args[0], strings.TrimSpace(comment))
			} else {
				resp, err = a.api.ApproveCampaign(ctx, args[0], strings.TrimSpace(comment))
			}
			if err != nil {
				return a.fail(ctx, err, fmt.Sprintf("Failed to %s campaign", action))
			}

			past := "approved"
			if action == "reject" {
				past = "rejected"
			}
			a.note.Success("%s", messageOr(resp.Message, "Campaign "+past))
			return nil
		}),
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Comment shown to the campaign owner")
	return cmd
}

func newAdminUsersListCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all users",
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			users, err := a.api.ListUsers(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load users")
			}
			if len(users) == 0 {
				fmt.Fprintln(a.out, "No users found.")
				return nil
			}

			w := a.table()
			fmt.Fprintln(w, "ID\tEMAIL\tROLE\tVERIFIED\tCREATED")
			fmt.Fprintln(w, "──\t─────\t────\t────────\t───────")
			for _, u := range users {
				verified := "no"
				if u.EmailVerified {
					verified = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, verified, u.CreatedAt)
			}
			w.Flush()
			return nil
		}),
	}
}

func newAdminUsersDeleteCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a user and their campaigns",
		Args:    cobra.ExactArgs(1),
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			if current := a.store.Current(); current != nil && current.ID.String() == args[0] {
				return fmt.Errorf("you cannot delete your own account")
			}
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete user %s", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}
			if err := a.api.DeleteUser(ctx, args[0]); err != nil {
				return a.fail(ctx, err, "Failed to delete user")
			}
			a.note.Success("User deleted")
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newAdminAuditLogsCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "audit-logs",
		Short: "Show administrator actions",
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			logs, err := a.api.ListAuditLogs(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load audit logs")
			}
			if len(logs) == 0 {
				fmt.Fprintln(a.out, "No audit logs found.")
				return nil
			}

			w := a.table()
			fmt.Fprintln(w, "TIME\tADMIN\tACTION\tRESOURCE\tDETAILS")
			fmt.Fprintln(w, "────\t─────\t──────\t────────\t───────")
			for _, l := range logs {
				resource := l.ResourceType
				if l.ResourceID != nil && *l.ResourceID != "" {
					resource += " " + *l.ResourceID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.CreatedAt, l.AdminEmail, l.Action, resource, l.Details)
			}
			w.Flush()
			return nil
		}),
	}
}

func newAdminAnalyticsCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Platform-wide statistics",
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			analytics, err := a.api.GetAdminAnalytics(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load analytics")
			}

			s := analytics.Stats
			w := a.table()
			fmt.Fprintf(w, "Users:\t%d\n", s.TotalUsers)
			fmt.Fprintf(w, "Campaigns:\t%d\t(%d approved, %d pending, %d rejected)\n",
				s.TotalCampaigns, s.ApprovedCampaigns, s.PendingCampaigns, s.RejectedCampaigns)
			fmt.Fprintf(w, "Events:\t%d\n", s.TotalEvents)
			fmt.Fprintf(w, "Clicks:\t%d\n", s.TotalClicks)
			fmt.Fprintf(w, "Conversions:\t%d\n", s.TotalConversions)
			fmt.Fprintf(w, "Average conversion rate:\t%.1f%%\n", s.AverageConversionRate)
			w.Flush()

			if len(analytics.Distribution) > 0 {
				fmt.Fprintln(a.out, "\nStatus distribution:")
				w = a.table()
				for _, d := range analytics.Distribution {
					fmt.Fprintf(w, "  %s\t%d\n", d.Status, d.Count)
				}
				w.Flush()
			}

			printTimeline(a, analytics.Timeline)
			return nil
		}),
	}
}

func newAdminLeaderboardCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard including rejection counts",
		RunE: adminView(g, func(ctx context.Context, a *app, args []string) error {
			entries, err := a.api.GetAdminLeaderboard(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load leaderboard")
			}
			printLeaderboard(a, entries)
			return nil
		}),
	}
}
