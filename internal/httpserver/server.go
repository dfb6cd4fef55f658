// ABOUTME: HTTP front end for the MCP service: listeners, lifecycle, and shutdown.
// ABOUTME: Binds TCP directly or joins a tailnet via tsnet, then serves the router.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/git-mcp/internal/auth"
	"github.com/2389/git-mcp/internal/config"
	"github.com/2389/git-mcp/internal/session"
	"github.com/2389/git-mcp/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP face of the MCP service. It owns the session registry,
// both transport managers, and the listener the router is served on.
type Server struct {
	cfg     *config.Config
	version string
	logger  *slog.Logger

	sessions  *session.Manager
	stateful  *transport.StatefulManager
	stateless *transport.StatelessManager
	verifier  auth.TokenVerifier

	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
}

// New wires the transport managers onto a fresh session registry and builds
// the routing stack. A nil verifier disables authentication.
func New(cfg *config.Config, version string, factory transport.Factory, verifier auth.TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		version:  version,
		logger:   logger.With("component", "http"),
		verifier: verifier,
	}
	s.sessions = session.NewManager(cfg.Session.StaleTimeout, cfg.Session.SweepInterval, logger)
	s.stateful = transport.NewStatefulManager(factory, s.sessions, logger)
	s.stateless = transport.NewStatelessManager(factory, logger)
	s.handler = s.buildRouter()
	return s
}

// Handler exposes the routing stack, mainly for tests driving the server
// through httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run binds the configured listener and serves until the context is
// cancelled or the server fails, then performs a graceful shutdown. The
// session sweep runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	s.sessions.Start()
	errCh := s.startServer(ln)

	runErr := s.waitForShutdownSignal(ctx, errCh)
	s.gracefulShutdown()
	return runErr
}

// setupListener picks the listener for the configured deployment: a tailnet
// listener when Tailscale is enabled, a plain TCP listener otherwise.
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.cfg.Tailscale.Enabled {
		return s.setupTailscaleListener(ctx)
	}
	return s.listenWithRetry()
}

// listenWithRetry binds the configured address, walking forward through the
// port range when the port is taken. Attempts pause for the configured delay
// so a restarting predecessor has a chance to release its socket.
func (s *Server) listenWithRetry() (net.Listener, error) {
	retries := s.cfg.HTTP.PortRetries
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		port := s.cfg.HTTP.Port + attempt
		addr := net.JoinHostPort(s.cfg.HTTP.Host, strconv.Itoa(port))

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if attempt > 0 {
				s.logger.Warn("configured port was taken, bound alternate",
					"addr", ln.Addr().String(), "configured_port", s.cfg.HTTP.Port)
			}
			return ln, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
		lastErr = err
		if attempt < retries {
			s.logger.Warn("port in use, trying next",
				"addr", addr, "attempt", attempt+1, "max_retries", retries)
			time.Sleep(s.cfg.HTTP.PortRetryDelay)
		}
	}

	return nil, fmt.Errorf("no free port in range %d-%d: %w",
		s.cfg.HTTP.Port, s.cfg.HTTP.Port+retries, lastErr)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// setupTailscaleListener brings up an embedded Tailscale node and listens on
// the tailnet instead of a local TCP port.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	stateDir, err := resolveTailscaleStateDir(s.cfg.Tailscale.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	ts := &tsnet.Server{
		Hostname:  s.cfg.Tailscale.Hostname,
		Dir:       stateDir,
		Ephemeral: s.cfg.Tailscale.Ephemeral,
		AuthKey:   resolveTailscaleAuthKey(s.cfg.Tailscale.AuthKey),
	}

	st, err := ts.Up(ctx)
	if err != nil {
		ts.Close()
		return nil, fmt.Errorf("bringing up tailscale node: %w", err)
	}

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, fmt.Errorf("listening on tailnet: %w", err)
	}

	s.tsnetServer = ts
	s.logger.Info("tailscale listener ready",
		"hostname", s.cfg.Tailscale.Hostname, "ips", st.TailscaleIPs)
	return ln, nil
}

// resolveTailscaleStateDir returns the configured state directory, falling
// back to ~/.local/share/git-mcp/tailscale so node identity survives restarts.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory for tailscale state: %w", err)
	}
	return filepath.Join(home, ".local", "share", "git-mcp", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the configured auth key, falling back to
// the TS_AUTHKEY environment variable the tailscale tooling already uses.
func resolveTailscaleAuthKey(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("TS_AUTHKEY")
}

// startServer serves the router on the listener in a goroutine and returns
// the channel a serve failure is reported on.
func (s *Server) startServer(ln net.Listener) <-chan error {
	errCh := make(chan error, 1)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String(), "path", s.cfg.HTTP.Path)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	return errCh
}

// waitForShutdownSignal blocks until the context is cancelled or the server
// reports a failure. Cancellation is the normal path and returns nil.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh <-chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		s.logger.Error("server failed", "error", err)
		return err
	}
}

// gracefulShutdown runs Shutdown under a fresh timeout so teardown proceeds
// even though the run context is already cancelled.
func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("graceful shutdown incomplete", "error", err)
		return
	}
	s.logger.Info("shutdown complete")
}

// Shutdown drains the HTTP server, stops the session sweep, disposes every
// live protocol handler, and closes the tailscale node when one is running.
// The order matters: no new requests, then no new evictions, then teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		errs = appendCloseError(errs, "http server", s.httpServer.Shutdown(ctx))
	}
	s.sessions.Stop()
	s.stateful.Close()
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale node", s.tsnetServer.Close())
	}

	return errors.Join(errs...)
}

func appendCloseError(errs []error, what string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", what, err))
	}
	return errs
}
