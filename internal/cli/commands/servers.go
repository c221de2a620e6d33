package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seap-dev/seap/internal/cli/config"
	"github.com/seap-dev/seap/internal/cli/serverselect"
	"github.com/seap-dev/seap/internal/cli/userconfig"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <server-url>",
		Short: "Create seap.yaml in the current directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	serverURL, err := normalizeServerURL(args[0])
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, config.ConfigFileName)

	out := cmd.OutOrStdout()
	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = config.DefaultConfig()
		cfg.Servers = nil
		isNewConfig = true
	}

	for _, server := range cfg.Servers {
		if server.URL == serverURL {
			fmt.Fprintf(out, "Server %s already exists in %s\n", serverURL, config.ConfigFileName)
			return nil
		}
	}

	alias := "production"
	if len(cfg.Servers) > 0 {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	cfg.Servers = append(cfg.Servers, config.Server{URL: serverURL, Alias: alias})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created %s\n", config.ConfigFileName)
	} else {
		fmt.Fprintf(out, "✓ Added server to %s\n", config.ConfigFileName)
	}
	fmt.Fprintf(out, "  Server: %s (%s)\n", alias, serverURL)
	fmt.Fprintln(out, "\nNext: seap login")
	return nil
}

// NewServersCmd creates the servers command group
func NewServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List, select and add SEAP servers",
	}

	cmd.AddCommand(newServersListCmd())
	cmd.AddCommand(newServersSelectCmd())
	cmd.AddCommand(newServersAddCmd())

	return cmd
}

func newServersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List configured servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromCurrentDir()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			selected, _ := userconfig.GetSelectedServer()

			out := cmd.OutOrStdout()
			for _, server := range cfg.Servers {
				marker := " "
				if server.URL == selected {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\t%s\n", marker, server.Alias, server.URL)
			}
			return nil
		},
	}
}

func newServersSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ seap servers select                           # Interactive selection
  $ seap servers select https://seap.example.com  # Select by URL
  $ seap servers select production                # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromCurrentDir()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			var server *config.Server
			if len(args) > 0 {
				server, err = serverselect.GetServerByURLOrAlias(cfg, args[0])
			} else {
				server, err = serverselect.PromptServerSelection(cfg)
			}
			if err != nil {
				return err
			}

			if err := userconfig.SetSelectedServer(server.URL); err != nil {
				return fmt.Errorf("failed to save selected server: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Selected server: %s (%s)\n", server.Alias, server.URL)
			return nil
		},
	}
}

func newServersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <alias> <url>",
		Short: "Add a server to the config file in use",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			serverURL, err := normalizeServerURL(args[1])
			if err != nil {
				return err
			}

			path, err := writableConfigPath()
			if err != nil {
				return err
			}

			cfg := config.DefaultConfig()
			cfg.Servers = nil
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}

			if _, err := cfg.GetServerByAlias(alias); err == nil {
				return fmt.Errorf("server with alias '%s' already exists", alias)
			}
			cfg.Servers = append(cfg.Servers, config.Server{Alias: alias, URL: serverURL})

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%s) to %s\n", alias, serverURL, path)
			return nil
		},
	}
}

// writableConfigPath is the project seap.yaml when there is one, otherwise
// the user-level file.
func writableConfigPath() (string, error) {
	path, err := config.FindConfigFile()
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	dir, err := config.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.ConfigFileName), nil
}

func normalizeServerURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid server url '%s', expected e.g. https://seap.example.com", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}
