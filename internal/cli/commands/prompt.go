package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/seap-dev/seap/internal/cli/userconfig"
	"github.com/seap-dev/seap/internal/cli/validate"
)

// resolveEmail picks the email from the flag, SEAP_EMAIL, or an interactive
// prompt pre-filled with the last email used.
func resolveEmail(flagValue string) (string, error) {
	if flagValue != "" {
		return strings.TrimSpace(flagValue), nil
	}
	if env := os.Getenv("SEAP_EMAIL"); env != "" {
		return strings.TrimSpace(env), nil
	}
	if !stdinIsTerminal() {
		return "", fmt.Errorf("email is required (use --email flag or SEAP_EMAIL env var)")
	}

	last := ""
	if cfg, err := userconfig.Load(); err == nil {
		last = cfg.LastEmail
	}

	prompt := promptui.Prompt{
		Label:     "Email",
		Default:   last,
		AllowEdit: true,
	}
	email, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("email prompt cancelled: %w", err)
	}
	return strings.TrimSpace(email), nil
}

// resolvePassword picks the password from the flag, SEAP_PASSWORD, or a
// hidden terminal prompt.
func resolvePassword(out io.Writer, flagValue, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("SEAP_PASSWORD"); env != "" {
		return env, nil
	}
	if !stdinIsTerminal() {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or SEAP_PASSWORD env var)")
	}
	return readHidden(out, label)
}

// readHidden reads a line from the terminal without echo
func readHidden(out io.Writer, label string) (string, error) {
	if !stdinIsTerminal() {
		return "", fmt.Errorf("%s is required in non-interactive mode", strings.ToLower(label))
	}
	fmt.Fprintf(out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// promptOTP asks for the emailed passcode
func promptOTP() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Passcode",
		Validate: validate.Code,
	}
	code, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("passcode prompt cancelled: %w", err)
	}
	return strings.TrimSpace(code), nil
}

// promptText asks for a free-form value, used for fields not given as flags
func promptText(label, current string, required bool) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   current,
		AllowEdit: true,
		Validate: func(input string) error {
			if required && strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// confirm asks a yes/no question; non-interactive sessions must pass --yes
func confirm(label string) (bool, error) {
	if !stdinIsTerminal() {
		return false, fmt.Errorf("confirmation required in non-interactive mode (use --yes)")
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
