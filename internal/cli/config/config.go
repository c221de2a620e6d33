package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "seap.yaml"

// Storage backends
const (
	StorageKeyring = "keyring"
	StorageFile    = "file"
	StorageSQLite  = "sqlite"
	StorageMemory  = "memory"
)

// Server represents a SEAP backend
type Server struct {
	URL   string `yaml:"url"`
	Alias string `yaml:"alias"`
}

// StorageConfig selects where sessions are persisted
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path is the session directory for "file" and the database file for "sqlite".
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// HTTPConfig tunes the API client
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig tunes session behaviour
type SessionConfig struct {
	// InvalidateOnUnauthorized logs the user out when the backend rejects the credential.
	InvalidateOnUnauthorized bool `yaml:"invalidate_on_unauthorized"`
}

// Config represents the CLI configuration file
type Config struct {
	Servers []Server      `yaml:"servers"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	HTTP    HTTPConfig    `yaml:"http"`
	Session SessionConfig `yaml:"session"`

	// path is where the config was loaded from; empty for defaults.
	path string `yaml:"-"`
}

// DefaultConfig returns a configuration pointing at a local backend
func DefaultConfig() *Config {
	return &Config{
		Servers: []Server{
			{
				URL:   "http://localhost:8080",
				Alias: "local",
			},
		},
		Storage: StorageConfig{
			Backend: StorageKeyring,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			InvalidateOnUnauthorized: true,
		},
	}
}

// Path returns the file this config was loaded from, or "" for defaults
func (c *Config) Path() string {
	return c.path
}

// UserConfigDir returns ~/.config/seap
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "seap"), nil
}

// FindConfigFile searches for seap.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find seap.yaml or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory: %w", ConfigFileName, currentDir, os.ErrNotExist)
}

// Load reads the configuration file, filling unset fields from DefaultConfig
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Servers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(cfg.Servers) == 0 {
		cfg.Servers = DefaultConfig().Servers
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromCurrentDir resolves the config the CLI should run with: seap.yaml in
// the current or a parent directory, then ~/.config/seap/seap.yaml, then
// defaults. Environment variables (and .env files) are applied last.
func LoadFromCurrentDir() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg, err := loadFile()
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile() (*Config, error) {
	configPath, err := FindConfigFile()
	if err == nil {
		return Load(configPath)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	userDir, err := UserConfigDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	userPath := filepath.Join(userDir, ConfigFileName)
	if _, err := os.Stat(userPath); err == nil {
		return Load(userPath)
	}
	return DefaultConfig(), nil
}

// applyEnv overlays SEAP_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("SEAP_SERVER_URL"); v != "" {
		c.Servers = append([]Server{{URL: v, Alias: "env"}}, c.Servers...)
	}
	if v := os.Getenv("SEAP_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SEAP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SEAP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SEAP_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SEAP_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if v := os.Getenv("SEAP_INVALIDATE_ON_UNAUTHORIZED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SEAP_INVALIDATE_ON_UNAUTHORIZED: %w", err)
		}
		c.Session.InvalidateOnUnauthorized = b
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageKeyring, StorageFile, StorageSQLite, StorageMemory:
	case "":
		c.Storage.Backend = StorageKeyring
	default:
		return fmt.Errorf("unknown storage backend '%s', must be one of: keyring, file, sqlite, memory", c.Storage.Backend)
	}

	for _, server := range c.Servers {
		if server.URL == "" {
			continue
		}
		u, err := url.Parse(server.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server '%s' has invalid url '%s'", server.Alias, server.URL)
		}
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}

// StorageKey turns a server URL into a stable key for durable storage,
// e.g. "https://seap.example.com:8443/" -> "seap.example.com:8443".
func StorageKey(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(serverURL, "/")
	}
	key := u.Host
	if p := strings.Trim(u.Path, "/"); p != "" {
		key += "/" + p
	}
	return key
}
