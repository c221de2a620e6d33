package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/validate"
)

// NewProfileCmd creates the profile command group. Without a subcommand it shows the profile.
func NewProfileCmd(g *Globals) *cobra.Command {
	show := func(ctx context.Context, a *app, args []string) error {
		if _, err := a.requireAuth(ctx); err != nil {
			return err
		}
		profile, err := a.api.GetProfile(ctx)
		if err != nil {
			return a.fail(ctx, err, "Failed to load profile")
		}
		printUser(a, profile)
		return nil
	}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your account details",
		RunE:  withApp(g, show),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your account details",
		RunE:  withApp(g, show),
	})
	cmd.AddCommand(newProfileUpdateCmd(g))

	return cmd
}

func newProfileUpdateCmd(g *Globals) *cobra.Command {
	var email string
	var changePassword bool
	var password string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your email or password",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			if _, err := a.requireAuth(ctx); err != nil {
				return err
			}

			var req client.UpdateProfileRequest
			if email != "" {
				req.Email = strings.TrimSpace(email)
				if err := validate.Email(req.Email); err != nil {
					return err
				}
			}
			if changePassword || password != "" {
				newPassword := password
				if newPassword == "" {
					var err error
					if newPassword, err = readHidden(a.out, "New password"); err != nil {
						return err
					}
				}
				if err := validate.Password(newPassword); err != nil {
					return err
				}
				req.Password = newPassword
			}
			if req.Email == "" && req.Password == "" {
				return fmt.Errorf("nothing to update (use --email and/or --password)")
			}

			resp, err := a.api.UpdateProfile(ctx, req)
			if err != nil {
				return a.fail(ctx, err, "Failed to update profile")
			}

			a.note.Success("%s", messageOr(resp.Message, "Profile updated"))
			if req.Email != "" {
				// The stored session keeps the old email until the next login
				a.note.Info("Log in again to see your new email in this session")
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().BoolVar(&changePassword, "change-password", false, "Prompt for a new password")
	cmd.Flags().StringVar(&password, "password", "", "New password (at least 6 characters)")

	return cmd
}
