// Package config handles configuration loading for git-mcp.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// File values are layered over Default(), so a config file only needs to name
// the settings it changes. The server also runs with no file at all.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${GIT_MCP_JWT_SECRET}"
//
// Syntax: ${VAR_NAME} or ${VAR_NAME:-fallback}. An unset variable expands to
// the fallback when one is given, otherwise to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  stale_timeout: "30m"
//	  sweep_interval: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Transport selection:
//
//	transport: "stdio"   # stdio, http
//
// Session handling (HTTP transport):
//
//	session:
//	  mode: "stateful"       # stateful, stateless, auto
//	  stale_timeout: "30m"   # idle time before a session expires
//	  sweep_interval: "5m"   # background cleanup cadence
//
// HTTP listener:
//
//	http:
//	  host: "127.0.0.1"
//	  port: 3010
//	  path: "/mcp"
//	  allowed_origins: ["*"]
//	  port_retries: 3
//	  port_retry_delay: "1s"
//
// Authentication:
//
//	auth:
//	  mode: "none"                          # none, jwt
//	  jwt_secret: "${GIT_MCP_JWT_SECRET}"   # required for jwt mode
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "git-mcp"
//	  auth_key: "${TS_AUTHKEY}"
//	  state_dir: ""
//	  ephemeral: false
//
// Git execution:
//
//	git:
//	  binary: "git"
//	  timeout: "30s"
//	  working_dir: ""      # optional initial working directory
//
// Key-value storage (empty path disables the kv_* tools):
//
//	storage:
//	  path: "/var/lib/git-mcp/kv.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - Transport, session mode, and auth mode enum values
//   - Positive session timeouts and git timeout
//   - HTTP port range and endpoint path shape
//   - JWT secret presence when auth.mode is "jwt"
//   - Tailscale hostname when tailscale is enabled
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/git-mcp/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or start from defaults:
//
//	cfg := config.Default()
package config
