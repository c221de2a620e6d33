package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
)

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of your campaigns and their results",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			identity, err := a.requireAuth(ctx)
			if err != nil {
				return err
			}

			analytics, err := a.api.GetUserAnalytics(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load dashboard")
			}
			campaigns, err := a.api.ListCampaigns(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load campaigns")
			}

			fmt.Fprintf(a.out, "Welcome back, %s\n\n", identity.Email)
			printUserStats(a, analytics.Stats)

			fmt.Fprintln(a.out)
			if len(campaigns) == 0 {
				fmt.Fprintln(a.out, "No campaigns yet.")
				fmt.Fprintln(a.out, "\nCreate one with: seap campaigns create")
			} else {
				fmt.Fprintln(a.out, "Recent campaigns:")
				recent := campaigns
				if len(recent) > 5 {
					recent = recent[:5]
				}
				printCampaignTable(a, recent, false)
			}

			if identity.Role.IsAdmin() {
				fmt.Fprintln(a.out, "\nYou are an administrator. See 'seap admin --help'.")
			}
			return nil
		}),
	}
}

// NewAnalyticsCmd creates the analytics command
func NewAnalyticsCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Detailed results of your campaigns",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}

			analytics, err := a.api.GetUserAnalytics(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load analytics")
			}

			printUserStats(a, analytics.Stats)

			if len(analytics.Campaigns) > 0 {
				fmt.Fprintln(a.out, "\nPer campaign:")
				w := a.table()
				fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCLICKS\tSUBMISSIONS\tAWARENESS")
				fmt.Fprintln(w, "──\t─────\t──────\t──────\t───────────\t─────────")
				for _, c := range analytics.Campaigns {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", c.ID, c.Title, c.Status, c.Clicks, c.Submissions, c.AwarenessViews)
				}
				w.Flush()
			}

			printTimeline(a, analytics.Timeline)
			return nil
		}),
	}
}

// NewLeaderboardCmd creates the leaderboard command
func NewLeaderboardCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank users by campaign effectiveness",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}
			entries, err := a.api.GetLeaderboard(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load leaderboard")
			}
			printLeaderboard(a, entries)
			return nil
		}),
	}
}

func printUserStats(a *app, s client.UserStats) {
	w := a.table()
	fmt.Fprintf(w, "Campaigns:\t%d\t(%d approved, %d pending, %d rejected)\n",
		s.TotalCampaigns, s.ApprovedCampaigns, s.PendingCampaigns, s.RejectedCampaigns)
	fmt.Fprintf(w, "Clicks:\t%d\n", s.TotalClicks)
	fmt.Fprintf(w, "Submissions:\t%d\n", s.TotalSubmissions)
	fmt.Fprintf(w, "Awareness views:\t%d\n", s.TotalAwarenessViews)
	fmt.Fprintf(w, "Conversion rate:\t%.1f%%\n", s.ConversionRate)
	w.Flush()
}

func printTimeline(a *app, timeline []client.TimelineEntry) {
	if len(timeline) == 0 {
		return
	}
	fmt.Fprintln(a.out, "\nActivity:")
	w := a.table()
	for _, e := range timeline {
		fmt.Fprintf(w, "  %s\t%d\n", e.Date, e.Count)
	}
	w.Flush()
}

func printLeaderboard(a *app, entries []client.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No leaderboard entries yet.")
		return
	}
	w := a.table()
	fmt.Fprintln(w, "RANK\tEMAIL\tSCORE\tCAMPAIGNS\tCLICKS\tCONVERSIONS")
	fmt.Fprintln(w, "────\t─────\t─────\t─────────\t──────\t───────────")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\n", i+1, e.Email, e.Score, e.TotalCampaigns, e.TotalClicks, e.TotalConversions)
	}
	w.Flush()
}
