package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the seap command tree
func NewRootCmd() *cobra.Command {
	var globals commands.Globals

	rootCmd := &cobra.Command{
		Use:   "seap",
		Short: "SEAP - Social Engineering Awareness Platform",
		Long: `SEAP CLI - Run phishing awareness campaigns from your terminal.

Log in, create simulated phishing campaigns, follow their results and,
as an administrator, review campaigns and manage users.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seap version %s\n", version)
		},
	})

	commands.AddCommands(rootCmd, &globals)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
