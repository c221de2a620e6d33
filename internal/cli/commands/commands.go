package commands

import "github.com/spf13/cobra"

// AddCommands registers every seap subcommand on root and binds the
// persistent flags to g.
func AddCommands(root *cobra.Command, g *Globals) {
	root.PersistentFlags().StringVar(&g.ServerAlias, "server", "", "Server alias or URL (defaults to the selected server)")
	root.PersistentFlags().BoolVar(&g.Plain, "plain", false, "Disable colors and icons")

	root.AddCommand(NewInitCmd())
	root.AddCommand(NewServersCmd())
	root.AddCommand(NewHealthCmd(g))

	root.AddCommand(NewLoginCmd(g))
	root.AddCommand(NewRegisterCmd(g))
	root.AddCommand(NewVerifyCmd(g))
	root.AddCommand(NewResendOTPCmd(g))
	root.AddCommand(NewLogoutCmd(g))
	root.AddCommand(NewWhoamiCmd(g))

	root.AddCommand(NewDashboardCmd(g))
	root.AddCommand(NewProfileCmd(g))
	root.AddCommand(NewCampaignsCmd(g))
	root.AddCommand(NewAnalyticsCmd(g))
	root.AddCommand(NewLeaderboardCmd(g))
	root.AddCommand(NewAdminCmd(g))

	root.AddCommand(NewSimulateCmd(g))
	root.AddCommand(NewAwarenessCmd(g))
}
