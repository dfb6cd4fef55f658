// ABOUTME: Protocol handler bridging transport sessions to an mcp-go server
// ABOUTME: Each Engine owns one MCPServer instance and its per-session state

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/2389/git-mcp/internal/gitexec"
	"github.com/2389/git-mcp/internal/kvstore"
	"github.com/2389/git-mcp/internal/transport"
)

const serverName = "git-mcp"

// ErrEngineClosed is returned for messages arriving after Close.
var ErrEngineClosed = errors.New("engine closed")

// Config carries the collaborators an Engine needs. One Config is shared by
// every engine a factory creates; per-instance state lives on the Engine.
type Config struct {
	// Version is the server version reported to clients during initialize.
	Version string

	// WorkingDir seeds each engine's git working directory. May be empty,
	// in which case clients must call git_set_working_dir first.
	WorkingDir string

	// Git runs git commands. Required.
	Git *gitexec.Runner

	// KV backs the kv_* tools. Nil disables them.
	KV *kvstore.Store

	Logger *slog.Logger
}

// Engine is a single client's protocol handler. It wraps an MCPServer with
// the git and kv tool set and tracks the session's initialize state and
// working directory. Engines are created by the transport layer, one per
// stateful session or one per stateless request, and disposed with Close.
type Engine struct {
	srv     *server.MCPServer
	session *clientSession
	git     *gitexec.Runner
	kv      *kvstore.Store
	logger  *slog.Logger

	mu      sync.Mutex
	workdir string

	done      chan struct{}
	closeOnce sync.Once
}

// clientSession satisfies mcp-go's server.ClientSession so the MCPServer can
// track the initialize handshake for this engine's client.
type clientSession struct {
	id          string
	notifCh     chan mcp.JSONRPCNotification
	initialized atomic.Bool
}

func (s *clientSession) SessionID() string { return s.id }

func (s *clientSession) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifCh }

func (s *clientSession) Initialize() { s.initialized.Store(true) }

func (s *clientSession) Initialized() bool { return s.initialized.Load() }

// New constructs an Engine with its own MCPServer and tool registrations.
// The protocol session id is taken from the request scope when the transport
// layer minted one, otherwise generated here.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Git == nil {
		return nil, fmt.Errorf("engine requires a git runner")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessionID := transport.ScopeFrom(ctx).SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	e := &Engine{
		session: &clientSession{
			id:      sessionID,
			notifCh: make(chan mcp.JSONRPCNotification, 8),
		},
		git:     cfg.Git,
		kv:      cfg.KV,
		logger:  logger.With("component", "engine", "session_id", sessionID),
		workdir: cfg.WorkingDir,
		done:    make(chan struct{}),
	}

	srv := server.NewMCPServer(
		serverName,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions(cfg)),
	)
	for _, t := range e.gitTools() {
		srv.AddTool(t.Tool, t.Handler)
	}
	if e.kv != nil {
		for _, t := range e.kvTools() {
			srv.AddTool(t.Tool, t.Handler)
		}
	}
	e.srv = srv

	if err := srv.RegisterSession(ctx, e.session); err != nil {
		return nil, fmt.Errorf("registering protocol session: %w", err)
	}

	// Nothing serves the notification channel over this transport; drain it
	// so a server-initiated notification can never block.
	go e.drainNotifications()

	return e, nil
}

// instructions describes the server to the connecting agent.
func instructions(cfg Config) string {
	base := `This server exposes git operations as tools.

Call git_set_working_dir with an absolute path to a repository before using
the other git tools; the working directory persists for the session. Tools
that change repository state (git_add, git_commit, git_checkout) operate on
that directory.`
	if cfg.KV != nil {
		base += `

The kv_* tools provide a durable key-value scratch space shared by all
sessions of this server.`
	}
	return base
}

// Handle dispatches one raw JSON-RPC message to the MCPServer and returns
// its reply. A nil reply with a nil error means the message was a
// notification and produced no response body.
func (e *Engine) Handle(ctx context.Context, body []byte) (any, error) {
	select {
	case <-e.done:
		return nil, ErrEngineClosed
	default:
	}

	ctx = e.srv.WithContext(ctx, e.session)
	msg := e.srv.HandleMessage(ctx, body)
	if msg == nil {
		return nil, nil
	}
	return msg, nil
}

// Initialized reports whether the client completed the initialize exchange.
func (e *Engine) Initialized() bool {
	return e.session.Initialized()
}

// Close releases the engine's protocol session. Idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.srv.UnregisterSession(context.Background(), e.session.id)
		close(e.done)
		e.logger.Debug("engine closed")
	})
	return nil
}

func (e *Engine) drainNotifications() {
	for {
		select {
		case <-e.done:
			return
		case <-e.session.notifCh:
		}
	}
}

// workingDir returns the current working directory, which may be empty.
func (e *Engine) workingDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workdir
}

func (e *Engine) setWorkingDir(dir string) {
	e.mu.Lock()
	e.workdir = dir
	e.mu.Unlock()
}

func (e *Engine) clearWorkingDir() {
	e.mu.Lock()
	e.workdir = ""
	e.mu.Unlock()
}

// NewFactory returns a transport.Factory producing one Engine per call.
func NewFactory(cfg Config) transport.Factory {
	return func(ctx context.Context) (transport.Handler, error) {
		return New(ctx, cfg)
	}
}

// ServeStdio runs a single engine over stdin/stdout until the context is
// canceled or stdin closes. Stdout carries JSON-RPC exclusively, so callers
// must route their own logging to stderr before calling this.
func ServeStdio(ctx context.Context, cfg Config) error {
	e, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	stdio := server.NewStdioServer(e.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(e.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}
