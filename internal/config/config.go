// ABOUTME: Configuration loading and parsing for git-mcp
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selects how the server speaks MCP.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Session modes for the HTTP transport.
const (
	SessionStateful  = "stateful"
	SessionStateless = "stateless"
	SessionAuto      = "auto"
)

// Auth modes for the HTTP transport.
const (
	AuthNone = "none"
	AuthJWT  = "jwt"
)

// Config represents the complete git-mcp configuration
type Config struct {
	Transport string          `yaml:"transport"`
	Session   SessionConfig   `yaml:"session"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Git       GitConfig       `yaml:"git"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SessionConfig controls the session registry and request routing mode
type SessionConfig struct {
	Mode string `yaml:"mode"`

	StaleTimeout  time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	StaleTimeoutRaw  string `yaml:"stale_timeout"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// HTTPConfig holds the HTTP listener configuration
type HTTPConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Path           string   `yaml:"path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	PortRetries    int      `yaml:"port_retries"`

	PortRetryDelay time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	PortRetryDelayRaw string `yaml:"port_retry_delay"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// GitConfig holds git execution configuration
type GitConfig struct {
	Binary     string `yaml:"binary"`
	WorkingDir string `yaml:"working_dir"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// StorageConfig holds the key-value store configuration.
// An empty path disables the kv_* tools.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration populated with runnable defaults:
// stdio transport, stateful sessions, the system git binary, no auth.
func Default() *Config {
	return &Config{
		Transport: TransportStdio,
		Session: SessionConfig{
			Mode:          SessionStateful,
			StaleTimeout:  30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Host:           "127.0.0.1",
			Port:           3010,
			Path:           "/mcp",
			AllowedOrigins: []string{"*"},
			PortRetries:    3,
			PortRetryDelay: time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthNone,
		},
		Git: GitConfig{
			Binary:  "git",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// File values are layered over Default(), so omitted keys keep their defaults.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment
// variable values. ${VAR_NAME:-fallback} substitutes the fallback when the
// variable is unset or empty; a plain ${VAR_NAME} for an unset variable expands
// to an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} and ${VAR_NAME:-fallback} patterns
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		expr := re.FindStringSubmatch(match)[1]
		name, fallback, hasFallback := strings.Cut(expr, ":-")
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("transport must be %q or %q (got %q)", TransportStdio, TransportHTTP, c.Transport)
	}

	switch c.Session.Mode {
	case SessionStateful, SessionStateless, SessionAuto:
	default:
		return fmt.Errorf("session.mode must be %q, %q or %q (got %q)",
			SessionStateful, SessionStateless, SessionAuto, c.Session.Mode)
	}

	if c.Session.StaleTimeout <= 0 {
		return fmt.Errorf("session.stale_timeout must be positive (got %v)", c.Session.StaleTimeout)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive (got %v)", c.Session.SweepInterval)
	}

	if c.Transport == TransportHTTP {
		// The port is only bound directly when Tailscale isn't serving
		if !c.Tailscale.Enabled && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
			return fmt.Errorf("http.port must be between 1 and 65535 (got %d)", c.HTTP.Port)
		}
		if !strings.HasPrefix(c.HTTP.Path, "/") {
			return fmt.Errorf("http.path must start with / (got %q)", c.HTTP.Path)
		}
		if c.HTTP.PortRetries < 0 {
			return fmt.Errorf("http.port_retries must not be negative (got %d)", c.HTTP.PortRetries)
		}
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Auth.Mode {
	case AuthNone:
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required when auth.mode is %q", AuthJWT)
		}
	default:
		return fmt.Errorf("auth.mode must be %q or %q (got %q)", AuthNone, AuthJWT, c.Auth.Mode)
	}

	if c.Git.Binary == "" {
		return fmt.Errorf("git.binary is required")
	}
	if c.Git.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be positive (got %v)", c.Git.Timeout)
	}
	if c.Git.WorkingDir != "" && !filepath.IsAbs(c.Git.WorkingDir) {
		return fmt.Errorf("git.working_dir must be an absolute path (got %q)", c.Git.WorkingDir)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.StaleTimeoutRaw != "" {
		cfg.Session.StaleTimeout, err = time.ParseDuration(cfg.Session.StaleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing session.stale_timeout %q: %w", cfg.Session.StaleTimeoutRaw, err)
		}
	}

	if cfg.Session.SweepIntervalRaw != "" {
		cfg.Session.SweepInterval, err = time.ParseDuration(cfg.Session.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing session.sweep_interval %q: %w", cfg.Session.SweepIntervalRaw, err)
		}
	}

	if cfg.HTTP.PortRetryDelayRaw != "" {
		cfg.HTTP.PortRetryDelay, err = time.ParseDuration(cfg.HTTP.PortRetryDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing http.port_retry_delay %q: %w", cfg.HTTP.PortRetryDelayRaw, err)
		}
	}

	if cfg.Git.TimeoutRaw != "" {
		cfg.Git.Timeout, err = time.ParseDuration(cfg.Git.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing git.timeout %q: %w", cfg.Git.TimeoutRaw, err)
		}
	}

	return nil
}
