package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/client"
	"github.com/seap-dev/seap/internal/cli/session"
	"github.com/seap-dev/seap/internal/cli/userconfig"
	"github.com/seap-dev/seap/internal/cli/validate"
)

type loginOptions struct {
	email    string
	password string
	otp      string
}

// NewLoginCmd creates the login command
func NewLoginCmd(g *Globals) *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a SEAP server",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			return runLogin(ctx, a, opts)
		}),
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set SEAP_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set SEAP_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.otp, "otp", "", "Passcode, if the server asks for one")

	return cmd
}

func runLogin(ctx context.Context, a *app, opts loginOptions) error {
	email, err := resolveEmail(opts.email)
	if err != nil {
		return err
	}
	password, err := resolvePassword(a.out, opts.password, "Password")
	if err != nil {
		return err
	}
	if err := validate.Login(email, password); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logging in to %s (%s)...\n", a.server.Alias, a.server.URL)

	result, err := a.store.Login(ctx, email, password)
	if err != nil {
		return explain(err, "Login failed")
	}

	identity := result.Identity
	if result.OTPRequired {
		a.note.Info("A passcode was sent to %s", email)
		if result.DevOTP != "" {
			a.note.Detail("Development passcode: %s", result.DevOTP)
		}
		identity, err = completeOTP(ctx, a, email, opts.otp)
		if err != nil {
			return err
		}
	}

	rememberEmail(a, email)
	a.note.Success("Login successful!")
	printIdentity(a, identity)
	return nil
}

type registerOptions struct {
	email    string
	password string
	role     string
	otp      string
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(g *Globals) *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account on a SEAP server.

The server emails a passcode. Enter it when prompted, pass it with --otp,
or run 'seap verify' later. Registering never logs you in by itself.`,
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			return runRegister(ctx, a, opts)
		}),
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set SEAP_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password, at least 6 characters (will prompt if not provided)")
	cmd.Flags().StringVar(&opts.role, "role", string(session.RoleUser), "Account role (user or admin)")
	cmd.Flags().StringVar(&opts.otp, "otp", "", "Passcode to verify right away")

	return cmd
}

func runRegister(ctx context.Context, a *app, opts registerOptions) error {
	role := session.Role(strings.ToLower(opts.role))
	if role != session.RoleUser && role != session.RoleAdmin {
		return fmt.Errorf("invalid role '%s', must be one of: user, admin", opts.role)
	}

	email, err := resolveEmail(opts.email)
	if err != nil {
		return err
	}
	password, err := resolvePassword(a.out, opts.password, "Password")
	if err != nil {
		return err
	}
	if opts.password == "" && stdinIsTerminal() {
		again, err := readHidden(a.out, "Confirm password")
		if err != nil {
			return err
		}
		if again != password {
			return fmt.Errorf("passwords do not match")
		}
	}
	if err := validate.Register(email, password); err != nil {
		return err
	}

	result, err := a.store.Register(ctx, email, password, role)
	if err != nil {
		return explain(err, "Registration failed")
	}

	a.note.Success("%s", messageOr(result.Message, "Registration successful! Please verify your email."))
	if result.DevOTP != "" {
		a.note.Detail("Development passcode: %s", result.DevOTP)
	}

	if opts.otp == "" && !stdinIsTerminal() {
		fmt.Fprintf(a.out, "\nVerify your email with: seap verify --email %s --otp <code>\n", email)
		return nil
	}

	identity, err := completeOTP(ctx, a, email, opts.otp)
	if err != nil {
		return err
	}
	rememberEmail(a, email)
	a.note.Success("Email verified, you are now logged in")
	printIdentity(a, identity)
	return nil
}

type verifyOptions struct {
	email string
	otp   string
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd(g *Globals) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify your email with the passcode you received",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			email, err := resolveEmail(opts.email)
			if err != nil {
				return err
			}
			identity, err := completeOTP(ctx, a, email, opts.otp)
			if err != nil {
				return err
			}
			rememberEmail(a, email)
			a.note.Success("Email verified, you are now logged in")
			printIdentity(a, identity)
			return nil
		}),
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set SEAP_EMAIL)")
	cmd.Flags().StringVar(&opts.otp, "otp", "", "6-digit passcode (will prompt if not provided)")

	return cmd
}

// completeOTP collects a passcode (flag or prompt) and exchanges it for a session
func completeOTP(ctx context.Context, a *app, email, code string) (*session.Identity, error) {
	if code == "" {
		if !stdinIsTerminal() {
			return nil, fmt.Errorf("passcode required. Run 'seap verify --email %s --otp <code>'", email)
		}
		var err error
		code, err = promptOTP()
		if err != nil {
			return nil, err
		}
	}
	code = strings.TrimSpace(code)
	if err := validate.OTP(email, code); err != nil {
		return nil, err
	}

	identity, err := a.store.VerifyOTP(ctx, email, code)
	if err != nil {
		return nil, explain(err, "OTP verification failed")
	}
	return identity, nil
}

// NewResendOTPCmd creates the resend-otp command
func NewResendOTPCmd(g *Globals) *cobra.Command {
	var emailFlag string

	cmd := &cobra.Command{
		Use:   "resend-otp",
		Short: "Send a new passcode to your email",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			email, err := resolveEmail(emailFlag)
			if err != nil {
				return err
			}
			if err := validate.Email(email); err != nil {
				return err
			}

			resp, err := a.api.ResendOTP(ctx, email)
			if err != nil {
				return explain(err, "Failed to resend passcode")
			}
			a.note.Success("%s", messageOr(resp.Message, "A new passcode was sent"))
			if resp.OTP != "" {
				a.note.Detail("Development passcode: %s", resp.OTP)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&emailFlag, "email", "", "Email address (or set SEAP_EMAIL)")

	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on this machine",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			a.store.Logout(ctx)
			a.note.Success("Logged out of %s", a.server.Alias)
			return nil
		}),
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(g *Globals) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: withApp(g, func(ctx context.Context, a *app, args []string) error {
			identity, err := a.requireAuth(ctx)
			if err != nil {
				return err
			}

			if remote {
				profile, err := a.api.GetProfile(ctx)
				if err != nil {
					return a.fail(ctx, err, "Failed to load profile")
				}
				printUser(a, profile)
				return nil
			}

			printIdentity(a, identity)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of using the stored session")

	return cmd
}

func printIdentity(a *app, identity *session.Identity) {
	if identity == nil {
		return
	}
	printUser(a, &client.User{ID: identity.ID, Email: identity.Email, Role: string(identity.Role)})
}

func printUser(a *app, u *client.User) {
	fmt.Fprintf(a.out, "  User:   %s\n", u.Email)
	fmt.Fprintf(a.out, "  Role:   %s\n", u.Role)
	if u.ID != "" {
		fmt.Fprintf(a.out, "  ID:     %s\n", u.ID)
	}
	fmt.Fprintf(a.out, "  Server: %s (%s)\n", a.server.Alias, a.server.URL)
}

func rememberEmail(a *app, email string) {
	if err := userconfig.SetLastEmail(email); err != nil {
		a.log.Debug().Err(err).Msg("Failed to remember email")
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
