// ABOUTME: Entry point for the git-mcp server
// ABOUTME: Exposes git operations to MCP clients over stdio or HTTP

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/git-mcp/internal/auth"
	"github.com/2389/git-mcp/internal/config"
	"github.com/2389/git-mcp/internal/engine"
	"github.com/2389/git-mcp/internal/gitexec"
	"github.com/2389/git-mcp/internal/httpserver"
	"github.com/2389/git-mcp/internal/kvstore"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
        _ _
   __ _(_) |_      _ __ ___   ___ _ __
  / _' | | __|____| '_ ' _ \ / __| '_ \
 | (_| | | ||_____| | | | | | (__| |_) |
  \__, |_|\__|    |_| |_| |_|\___| .__/
  |___/                          |_|
`

// getConfigPath returns the path to the git-mcp config file.
// Priority: GIT_MCP_CONFIG env var > XDG_CONFIG_HOME/git-mcp/config.yaml > ~/.config/git-mcp/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("GIT_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "git-mcp", "config.yaml")
}

// getDataPath returns the path to the git-mcp data directory.
// Priority: XDG_DATA_HOME/git-mcp > ~/.local/share/git-mcp
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "git-mcp")
}

// usageError marks argument mistakes so main exits 2 instead of 1.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, a ...any) error {
	return usageError{msg: fmt.Sprintf(format, a...)}
}

func printUsage() {
	fmt.Println("Usage: git-mcp <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the MCP server (--config PATH, --transport stdio|http)")
	fmt.Println("  init     Create a new config file interactively")
	fmt.Println("  token    Mint a bearer token (--client ID, --tenant ID, --scopes CSV, --ttl DUR)")
	fmt.Println("  health   Check server health (--url URL)")
	fmt.Println("  status   Show server status (--url URL)")
	fmt.Println("  version  Print the version")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "token":
		err = runToken()
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	case "version":
		fmt.Printf("git-mcp %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file at path. A missing file is only an error
// when the user named the path explicitly; the default location falls back
// to built-in defaults so the server runs with zero setup.
func loadConfig(path string, explicit bool) (cfg *config.Config, loaded bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) && !explicit {
			return config.Default(), false, nil
		}
		return nil, false, fmt.Errorf("reading config file: %w", statErr)
	}

	cfg, err = config.Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func runServe(ctx context.Context) error {
	// Supports both "--flag value" and "--flag=value" formats
	var configPath, transportFlag string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return usageErrorf("--config requires a value")
			}
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--transport" || arg == "-t":
			if i+1 >= len(args) {
				return usageErrorf("--transport requires a value")
			}
			transportFlag = args[i+1]
			i++
		case strings.HasPrefix(arg, "--transport="):
			transportFlag = strings.TrimPrefix(arg, "--transport=")
		default:
			return usageErrorf("unknown flag: %s", arg)
		}
	}

	explicit := configPath != ""
	if !explicit {
		configPath = getConfigPath()
	}

	cfg, loaded, err := loadConfig(configPath, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if transportFlag != "" {
		cfg.Transport = transportFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	stdio := cfg.Transport == config.TransportStdio

	// In stdio mode stdout carries the protocol, so the banner is skipped
	// and logs go to stderr.
	logOut := io.Writer(os.Stdout)
	if stdio {
		logOut = os.Stderr
	}
	logger := setupLogger(cfg.Logging, logOut)

	if !stdio {
		cyan := color.New(color.FgCyan)
		cyan.Print(banner)

		gray := color.New(color.FgHiBlack)
		gray.Printf("    version: %s\n\n", version)

		green := color.New(color.FgGreen)

		configSource := configPath
		if !loaded {
			configSource = "built-in defaults"
		}

		green.Print("    ▶ ")
		fmt.Printf("Config:    %s\n", configSource)
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)))
		green.Print("    ▶ ")
		fmt.Printf("Endpoint:  %s\n", cfg.HTTP.Path)
		green.Print("    ▶ ")
		fmt.Printf("Sessions:  %s\n", cfg.Session.Mode)

		if cfg.Tailscale.Enabled {
			green.Print("    ▶ ")
			fmt.Printf("Tailscale: ")
			cyan.Print(cfg.Tailscale.Hostname)
			if cfg.Tailscale.Ephemeral {
				gray.Print(" (ephemeral)")
			}
			fmt.Println()
		}

		fmt.Println()
	}

	logger.Info("starting git-mcp",
		"version", version,
		"transport", cfg.Transport,
		"session_mode", cfg.Session.Mode,
	)

	runner := gitexec.NewRunner(cfg.Git.Binary, cfg.Git.Timeout, logger)

	var kv *kvstore.Store
	if cfg.Storage.Path != "" {
		kv, err = kvstore.Open(cfg.Storage.Path, logger)
		if err != nil {
			return fmt.Errorf("opening key-value store: %w", err)
		}
		defer kv.Close()
	}

	engineCfg := engine.Config{
		Version:    version,
		WorkingDir: cfg.Git.WorkingDir,
		Git:        runner,
		KV:         kv,
		Logger:     logger,
	}

	if stdio {
		return engine.ServeStdio(ctx, engineCfg)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.Mode == config.AuthJWT {
		v, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		verifier = v
	}

	srv := httpserver.New(cfg, version, engine.NewFactory(engineCfg), verifier, logger)
	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			out:   out,
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(h.out, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		out:    h.out,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		out:    h.out,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// parseClientFlags handles the flags shared by health and status.
func parseClientFlags(args []string) (baseURL, configPath string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--url" || arg == "-u":
			if i+1 >= len(args) {
				return "", "", usageErrorf("--url requires a value")
			}
			baseURL = args[i+1]
			i++
		case strings.HasPrefix(arg, "--url="):
			baseURL = strings.TrimPrefix(arg, "--url=")
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return "", "", usageErrorf("--config requires a value")
			}
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			return "", "", usageErrorf("unknown flag: %s", arg)
		}
	}
	return baseURL, configPath, nil
}

// resolveBaseURL turns the --url flag or the configured listen address into
// a base URL for client commands.
func resolveBaseURL(baseURL string, cfg *config.Config) string {
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s", net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)))
	}
	return strings.TrimRight(baseURL, "/")
}

func runHealth(ctx context.Context) error {
	baseURL, configPath, err := parseClientFlags(os.Args[2:])
	if err != nil {
		return err
	}

	explicit := configPath != ""
	if !explicit {
		configPath = getConfigPath()
	}
	cfg, _, err := loadConfig(configPath, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := resolveBaseURL(baseURL, cfg) + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	baseURL, configPath, err := parseClientFlags(os.Args[2:])
	if err != nil {
		return err
	}

	explicit := configPath != ""
	if !explicit {
		configPath = getConfigPath()
	}
	cfg, _, err := loadConfig(configPath, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The MCP endpoint answers GET with a status document.
	url := resolveBaseURL(baseURL, cfg) + cfg.HTTP.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status check failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

// runToken mints a JWT for a client of the HTTP transport. Requires
// auth.jwt_secret in the config so the token matches what the server
// verifies against. The token goes to stdout; decoration goes to stderr.
func runToken() error {
	var clientID, tenantID, scopesCSV, ttlStr, configPath string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--client":
			if i+1 >= len(args) {
				return usageErrorf("--client requires a value")
			}
			clientID = args[i+1]
			i++
		case strings.HasPrefix(arg, "--client="):
			clientID = strings.TrimPrefix(arg, "--client=")
		case arg == "--tenant":
			if i+1 >= len(args) {
				return usageErrorf("--tenant requires a value")
			}
			tenantID = args[i+1]
			i++
		case strings.HasPrefix(arg, "--tenant="):
			tenantID = strings.TrimPrefix(arg, "--tenant=")
		case arg == "--scopes":
			if i+1 >= len(args) {
				return usageErrorf("--scopes requires a value")
			}
			scopesCSV = args[i+1]
			i++
		case strings.HasPrefix(arg, "--scopes="):
			scopesCSV = strings.TrimPrefix(arg, "--scopes=")
		case arg == "--ttl":
			if i+1 >= len(args) {
				return usageErrorf("--ttl requires a value")
			}
			ttlStr = args[i+1]
			i++
		case strings.HasPrefix(arg, "--ttl="):
			ttlStr = strings.TrimPrefix(arg, "--ttl=")
		case arg == "--config":
			if i+1 >= len(args) {
				return usageErrorf("--config requires a value")
			}
			configPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			return usageErrorf("unknown flag: %s", arg)
		}
	}

	if clientID == "" {
		return usageErrorf("--client flag is required")
	}

	ttl := 30 * 24 * time.Hour
	if ttlStr != "" {
		var err error
		ttl, err = time.ParseDuration(ttlStr)
		if err != nil {
			return usageErrorf("invalid --ttl %q: %v", ttlStr, err)
		}
	}

	var scopes []string
	for _, s := range strings.Split(scopesCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}

	explicit := configPath != ""
	if !explicit {
		configPath = getConfigPath()
	}
	cfg, _, err := loadConfig(configPath, explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured in %s (required for token)", configPath)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	token, err := verifier.Generate(clientID, tenantID, scopes, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	expiresAt := time.Now().Add(ttl).UTC()

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	green.Fprintf(os.Stderr, "  ✓ Token minted for %s\n", clientID)
	gray.Fprintf(os.Stderr, "    expires %s\n", expiresAt.Format("Jan 02, 2006 15:04 MST"))

	fmt.Println(token)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("git-mcp configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultKVPath := filepath.Join(defaultDataPath, "kv.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Transport
	fmt.Println("\n--- Transport ---")
	transportMode := prompt(reader, "Transport (stdio/http)", config.TransportStdio)
	if transportMode != config.TransportStdio && transportMode != config.TransportHTTP {
		return fmt.Errorf("transport must be %q or %q (got %q)", config.TransportStdio, config.TransportHTTP, transportMode)
	}

	// HTTP listener
	host := "127.0.0.1"
	port := 3010
	endpointPath := "/mcp"
	sessionMode := config.SessionStateful
	authEnabled := false
	var jwtSecret string
	tailscaleEnabled := false
	var tsHostname, tsAuthKey string
	var tsEphemeral bool

	if transportMode == config.TransportHTTP {
		fmt.Println("\n--- HTTP Configuration ---")
		host = prompt(reader, "Bind host", host)
		portStr := prompt(reader, "Bind port", strconv.Itoa(port))
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		endpointPath = prompt(reader, "MCP endpoint path", endpointPath)
		sessionMode = prompt(reader, "Session mode (stateful/stateless/auto)", sessionMode)

		fmt.Println("\n--- Authentication ---")
		enableAuth := prompt(reader, "Require bearer tokens?", "no")
		authEnabled = isYes(enableAuth)
		if authEnabled {
			secretBytes := make([]byte, 32)
			if _, err := rand.Read(secretBytes); err != nil {
				return fmt.Errorf("generating JWT secret: %w", err)
			}
			jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
		}

		fmt.Println("\n--- Tailscale Configuration ---")
		enableTailscale := prompt(reader, "Serve on the tailnet?", "no")
		tailscaleEnabled = isYes(enableTailscale)
		if tailscaleEnabled {
			tsHostname = prompt(reader, "Tailscale hostname", "git-mcp")
			tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for TS_AUTHKEY)", "")
			tsEphemeral = isYes(prompt(reader, "Ephemeral node?", "no"))
		}
	}

	// Git
	fmt.Println("\n--- Git Configuration ---")
	gitBinary := prompt(reader, "Git binary", "git")
	workingDir := prompt(reader, "Default repository path (leave empty for none)", "")
	if workingDir != "" && !filepath.IsAbs(workingDir) {
		return fmt.Errorf("repository path must be absolute (got %q)", workingDir)
	}

	// Storage
	fmt.Println("\n--- Storage Configuration ---")
	kvPath := prompt(reader, "Key-value store path (leave empty to disable kv tools)", defaultKVPath)

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# git-mcp configuration\n")
	cfg.WriteString("# Generated by git-mcp init\n\n")

	cfg.WriteString(fmt.Sprintf("transport: \"%s\"\n", transportMode))
	cfg.WriteString("\n")

	if transportMode == config.TransportHTTP {
		cfg.WriteString("http:\n")
		cfg.WriteString(fmt.Sprintf("  host: \"%s\"\n", host))
		cfg.WriteString(fmt.Sprintf("  port: %d\n", port))
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", endpointPath))
		cfg.WriteString("\n")

		cfg.WriteString("session:\n")
		cfg.WriteString(fmt.Sprintf("  mode: \"%s\"\n", sessionMode))
		cfg.WriteString("  stale_timeout: \"30m\"\n")
		cfg.WriteString("  sweep_interval: \"5m\"\n")
		cfg.WriteString("\n")

		cfg.WriteString("auth:\n")
		if authEnabled {
			cfg.WriteString("  mode: \"jwt\"\n")
			cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
		} else {
			cfg.WriteString("  mode: \"none\"\n")
		}
		cfg.WriteString("\n")

		cfg.WriteString("tailscale:\n")
		cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
		if tailscaleEnabled {
			cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", tsHostname))
			if tsAuthKey != "" {
				cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", tsAuthKey))
			}
			cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		}
		cfg.WriteString("\n")
	}

	cfg.WriteString("git:\n")
	cfg.WriteString(fmt.Sprintf("  binary: \"%s\"\n", gitBinary))
	cfg.WriteString("  timeout: \"30s\"\n")
	if workingDir != "" {
		cfg.WriteString(fmt.Sprintf("  working_dir: \"%s\"\n", workingDir))
	}
	cfg.WriteString("\n")

	if kvPath != "" {
		cfg.WriteString("storage:\n")
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", kvPath))
		cfg.WriteString("\n")
	}

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The file holds the JWT secret when auth is on, so tighten permissions
	fileMode := os.FileMode(0644)
	if authEnabled {
		fileMode = os.FileMode(0600)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), fileMode); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	if kvPath != "" {
		if err := os.MkdirAll(filepath.Dir(kvPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  git-mcp serve --config %s\n", outputFile)

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}
