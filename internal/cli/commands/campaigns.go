package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/validate"
)

// NewCampaignsCmd creates the campaigns command group
func NewCampaignsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "campaigns",
		Aliases: []string{"campaign"},
		Short:   "Manage your phishing simulation campaigns",
	}

	cmd.AddCommand(newCampaignsListCmd(g))
	cmd.AddCommand(newCampaignsShowCmd(g))
	cmd.AddCommand(newCampaignsCreateCmd(g))
	cmd.AddCommand(newCampaignsUpdateCmd(g))
	cmd.AddCommand(newCampaignsDeleteCmd(g))
	cmd.AddCommand(newCampaignsShareCmd(g))

	return cmd
}

func newCampaignsListCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your campaigns",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}
			campaigns, err := a.api.ListCampaigns(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to load campaigns")
			}
			if len(campaigns) == 0 {
				fmt.Fprintln(a.out, "No campaigns found.")
				fmt.Fprintln(a.out, "\nCreate one with: seap campaigns create")
				return nil
			}
			printCampaignTable(a, campaigns, false)
			return nil
		}),
	}
}

func newCampaignsShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}
			campaign, err := a.api.GetCampaign(ctx, args[0])
			if err != nil {
				return a.fail(ctx, err, "Failed to load campaign")
			}
			printCampaign(a, campaign)
			return nil
		}),
	}
}

type campaignFlags struct {
	title         string
	description   string
	emailText     string
	emailTextFile string
	landingURL    string
	expires       string
}

func (f *campaignFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Campaign title")
	cmd.Flags().StringVar(&f.description, "description", "", "Internal description")
	cmd.Flags().StringVar(&f.emailText, "email-text", "", "Body of the simulated email")
	cmd.Flags().StringVar(&f.emailTextFile, "email-text-file", "", "Read the email body from a file")
	cmd.Flags().StringVar(&f.landingURL, "landing-url", "", "Landing page URL")
	cmd.Flags().StringVar(&f.expires, "expires", "", "Expiry date (YYYY-MM-DD or RFC3339, 'never' to clear)")
}

// apply copies every flag the user set onto req
func (f *campaignFlags) apply(cmd *cobra.Command, req *client.CampaignRequest) error {
	changed := cmd.Flags().Changed
	if changed("title") {
		req.Title = strings.TrimSpace(f.title)
	}
	if changed("description") {
		req.Description = f.description
	}
	if changed("email-text") {
		req.EmailText = f.emailText
	}
	if changed("email-text-file") {
		data, err := os.ReadFile(f.emailTextFile)
		if err != nil {
			return fmt.Errorf("failed to read email text: %w", err)
		}
		req.EmailText = string(data)
	}
	if changed("landing-url") {
		req.LandingPageURL = strings.TrimSpace(f.landingURL)
	}
	if changed("expires") {
		expiry, err := parseExpiry(f.expires)
		if err != nil {
			return err
		}
		req.ExpiryDate = expiry
	}
	return nil
}

func parseExpiry(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "never") {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date '%s', use YYYY-MM-DD or RFC3339", value)
	}
	return &t, nil
}

func newCampaignsCreateCmd(g *Globals) *cobra.Command {
	var flags campaignFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new campaign for admin review",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}

			var req client.CampaignRequest
			if err := flags.apply(a.cmd, &req); err != nil {
				return err
			}
			if stdinIsTerminal() {
				if err := promptMissingCampaignFields(&req); err != nil {
					return err
				}
			}
			if err := validate.Campaign(&req); err != nil {
				return err
			}

			campaign, err := a.api.CreateCampaign(ctx, req)
			if err != nil {
				return a.fail(ctx, err, "Failed to create campaign")
			}

			a.note.Success("Campaign created and submitted for review")
			printCampaign(a, campaign)
			return nil
		}),
	}

	flags.register(cmd)
	return cmd
}

func promptMissingCampaignFields(req *client.CampaignRequest) error {
	var err error
	if req.Title == "" {
		if req.Title, err = promptText("Title", "", true); err != nil {
			return err
		}
	}
	if req.EmailText == "" {
		if req.EmailText, err = promptText("Email text", "", true); err != nil {
			return err
		}
	}
	return nil
}

func newCampaignsUpdateCmd(g *Globals) *cobra.Command {
	var flags campaignFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a campaign",
		Long: `Edit a campaign. Only the fields passed as flags change; the rest
keep their current values.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}

			current, err := a.api.GetCampaign(ctx, args[0])
			if err != nil {
				return a.fail(ctx, err, "Failed to load campaign")
			}

			req := client.CampaignRequest{
				Title:          current.Title,
				Description:    current.Description,
				EmailText:      current.EmailText,
				LandingPageURL: current.LandingPageURL,
				ExpiryDate:     current.ExpiryDate,
			}
			if err := flags.apply(a.cmd, &req); err != nil {
				return err
			}
			if err := validate.Campaign(&req); err != nil {
				return err
			}

			if err := a.api.UpdateCampaign(ctx, args[0], req); err != nil {
				return a.fail(ctx, err, "Failed to update campaign")
			}
			a.note.Success("Campaign updated")
			return nil
		}),
	}

	flags.register(cmd)
	return cmd
}

func newCampaignsDeleteCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a campaign",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete campaign %s", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}
			if err := a.api.DeleteCampaign(ctx, args[0]); err != nil {
				return a.fail(ctx, err, "Failed to delete campaign")
			}
			a.note.Success("Campaign deleted")
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newCampaignsShareCmd(g *Globals) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Send an approved campaign's simulation link to a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}
			req := client.ShareRequest{Email: strings.TrimSpace(email)}
			if err := validate.Share(&req); err != nil {
				return err
			}
			resp, err := a.api.ShareCampaign(ctx, args[0], req.Email)
			if err != nil {
				return a.fail(ctx, err, "Failed to share campaign")
			}
			a.note.Success("%s", messageOr(resp.Message, "Campaign shared"))
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Recipient email address")
	return cmd
}

func printCampaignTable(a *app, campaigns []client.Campaign, showOwner bool) {
	w := a.table()
	if showOwner {
		fmt.Fprintln(w, "ID\tTITLE\tOWNER\tSTATUS\tCREATED")
		fmt.Fprintln(w, "──\t─────\t─────\t──────\t───────")
	} else {
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCREATED")
		fmt.Fprintln(w, "──\t─────\t──────\t───────")
	}
	for _, c := range campaigns {
		created := formatDate(c.CreatedAt)
		if showOwner {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.UserEmail, c.Status, created)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Status, created)
		}
	}
	w.Flush()
}

func printCampaign(a *app, c *client.Campaign) {
	w := a.table()
	fmt.Fprintf(w, "ID:\t%s\n", c.ID)
	fmt.Fprintf(w, "Title:\t%s\n", c.Title)
	fmt.Fprintf(w, "Status:\t%s\n", c.Status)
	if c.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", c.Description)
	}
	if c.LandingPageURL != "" {
		fmt.Fprintf(w, "Landing page:\t%s\n", c.LandingPageURL)
	}
	if c.ExpiryDate != nil {
		fmt.Fprintf(w, "Expires:\t%s\n", formatDate(*c.ExpiryDate))
	}
	if c.AdminComment != "" {
		fmt.Fprintf(w, "Admin comment:\t%s\n", c.AdminComment)
	}
	if c.Status == client.CampaignApproved && c.TrackingToken != "" {
		fmt.Fprintf(w, "Tracking token:\t%s\n", c.TrackingToken)
	}
	fmt.Fprintf(w, "Created:\t%s\n", formatDate(c.CreatedAt))
	w.Flush()

	if c.EmailText != "" {
		fmt.Fprintf(a.out, "\n%s\n", c.EmailText)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
