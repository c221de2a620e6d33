package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
)

// NewSimulateCmd creates the simulate command. It walks the recipient side
// of a campaign: the landing page and, with --submit, the simulated form post.
func NewSimulateCmd(g *Globals) *cobra.Command {
	var submit bool
	var email string

	cmd := &cobra.Command{
		Use:   "simulate <tracking-token>",
		Short: "Open a campaign's simulated landing page",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			token := args[0]

			landing, err := a.api.GetSimulation(ctx, token)
			if err != nil {
				return explain(err, "Simulation not found or expired")
			}

			w := a.table()
			fmt.Fprintf(w, "Campaign:\t%s\n", landing.Title)
			if landing.LandingURL != "" {
				fmt.Fprintf(w, "Landing page:\t%s\n", landing.LandingURL)
			}
			w.Flush()

			if !submit {
				fmt.Fprintf(a.out, "\nSubmit the simulated form with: seap simulate %s --submit\n", token)
				return nil
			}

			// The backend records the event and never stores these values
			result, err := a.api.SubmitSimulation(ctx, token, client.SimulationSubmission{
				Email:    email,
				Password: "********",
			})
			if err != nil {
				return explain(err, "Failed to submit")
			}

			a.note.Info("%s", messageOr(result.Message, "This was a phishing simulation"))
			return showAwareness(ctx, a, awarenessToken(result.Redirect, token))
		}),
	}

	cmd.Flags().BoolVar(&submit, "submit", false, "Submit the simulated credentials form")
	cmd.Flags().StringVar(&email, "email", "recipient@example.com", "Email to put in the simulated form")

	return cmd
}

// NewAwarenessCmd creates the awareness command
func NewAwarenessCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "awareness <tracking-token>",
		Short: "Show the awareness page of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			return showAwareness(ctx, a, args[0])
		}),
	}
}

func showAwareness(ctx context.Context, a *app, token string) error {
	awareness, err := a.api.GetAwareness(ctx, token)
	if err != nil {
		return explain(err, "Failed to load awareness content")
	}

	fmt.Fprintln(a.out)
	if awareness.Content.Title != "" {
		fmt.Fprintln(a.out, awareness.Content.Title)
		fmt.Fprintln(a.out, strings.Repeat("─", len([]rune(awareness.Content.Title))))
	}
	if awareness.Message != "" {
		fmt.Fprintf(a.out, "%s\n\n", awareness.Message)
	}
	if awareness.Content.Description != "" {
		fmt.Fprintf(a.out, "%s\n\n", awareness.Content.Description)
	}
	if awareness.Content.Tips != "" {
		fmt.Fprintln(a.out, awareness.Content.Tips)
	}
	return nil
}

// awarenessToken pulls the token out of a "/awareness/<token>" redirect,
// falling back to the token that was submitted.
func awarenessToken(redirect, fallback string) string {
	const prefix = "/awareness/"
	if i := strings.Index(redirect, prefix); i >= 0 {
		if token := strings.Trim(redirect[i+len(prefix):], "/"); token != "" {
			return token
		}
	}
	return fallback
}

// NewHealthCmd creates the health command
func NewHealthCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is reachable",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			health, err := a.api.Health(ctx)
			if err != nil {
				return explain(err, fmt.Sprintf("Server %s is not reachable", a.server.URL))
			}
			a.note.Success("%s (%s) is %s", a.server.Alias, a.server.URL, messageOr(health.Status, "up"))
			fmt.Fprintf(a.out, "  Session: %s\n", a.store.State())
			return nil
		}),
	}
}
