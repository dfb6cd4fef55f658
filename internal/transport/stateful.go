// ABOUTME: Stateful transport manager binding long-lived handler instances to sessions.
// ABOUTME: Owns the session-to-handler map and its remove-and-dispose discipline.

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/git-mcp/internal/session"
)

// ErrManagerClosed is returned for requests arriving after shutdown began.
var ErrManagerClosed = errors.New("transport manager closed")

// StatefulManager binds one long-lived protocol handler to each session id.
// It is the sole owner of every handler it creates: any path that removes a
// map entry also disposes the instance, and eviction from the session
// registry (sweep or lazy expiry) is routed through the same path via the
// registry's OnEvict hook. Disposing an already-evicted session is a no-op.
type StatefulManager struct {
	mu       sync.Mutex
	handlers map[string]Handler
	closed   bool

	factory  Factory
	sessions *session.Manager
	logger   *slog.Logger
}

// NewStatefulManager creates a stateful manager on top of the given session
// registry and installs itself as the registry's eviction hook.
func NewStatefulManager(factory Factory, sessions *session.Manager, logger *slog.Logger) *StatefulManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &StatefulManager{
		handlers: make(map[string]Handler),
		factory:  factory,
		sessions: sessions,
		logger:   logger.With("component", "transport"),
	}
	sessions.OnEvict = m.Evict
	return m
}

// InitializeAndHandle constructs a fresh handler, runs the initialize
// exchange on it, and registers the session only once the handler reports
// successful initialization. On failure the partially-constructed handler
// is disposed and nothing is registered anywhere.
//
// The new session id is taken from the request scope when the HTTP layer
// already minted one, otherwise generated here.
func (m *StatefulManager) InitializeAndHandle(ctx context.Context, body []byte) (*Response, error) {
	scope := ScopeFrom(ctx)
	sessionID := scope.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		scope.SessionID = sessionID
		ctx = WithScope(ctx, scope)
	}

	h, err := m.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("constructing protocol handler: %w", err)
	}

	msg, err := m.safeHandle(ctx, h, body)
	if err != nil {
		closeHandler(h, m.logger)
		return nil, fmt.Errorf("initialize exchange: %w", err)
	}
	if !h.Initialized() {
		// The handler replied but did not accept the initialize. Its
		// (error) reply goes back verbatim; no session exists.
		closeHandler(h, m.logger)
		return &Response{Status: http.StatusOK, Body: msg}, nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		closeHandler(h, m.logger)
		return nil, ErrManagerClosed
	}
	m.handlers[sessionID] = h
	m.sessions.Create(sessionID, scope.ClientID, scope.TenantID)
	m.mu.Unlock()

	m.logger.Info("handler bound to session", "session_id", sessionID, "request_id", scope.RequestID)
	return &Response{Status: http.StatusOK, Body: msg, SessionID: sessionID}, nil
}

// HandleRequest validates the session, delegates the body to its stored
// handler, and touches the session on success. A missing or expired
// session yields the protocol's not-found response; a session is never
// created as a side effect here.
func (m *StatefulManager) HandleRequest(ctx context.Context, body []byte, sessionID string) (*Response, error) {
	if sessionID == "" || !m.sessions.IsValid(sessionID) {
		// A stale entry was already evicted (handler included) by the
		// validity check; this covers a handler left behind without a
		// registry entry.
		m.Evict(sessionID)
		return SessionNotFound(), nil
	}

	m.mu.Lock()
	h, ok := m.handlers[sessionID]
	m.mu.Unlock()
	if !ok {
		// Valid session with no handler: the map and the registry fell out
		// of step, so tear the session down rather than serve half a state.
		m.sessions.Terminate(sessionID)
		return SessionNotFound(), nil
	}

	msg, err := m.safeHandle(ctx, h, body)
	if err != nil {
		// A handler-level failure is fatal for the session; terminating it
		// evicts and disposes the handler through the registry hook.
		m.sessions.Terminate(sessionID)
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	m.sessions.Touch(sessionID)
	if msg == nil {
		return &Response{Status: http.StatusNoContent, SessionID: sessionID}, nil
	}
	return newResultResponse(http.StatusOK, msg, sessionID), nil
}

// HandleDelete disposes the session's handler and terminates the session.
// Terminating an unknown or already-gone session is benign and reports
// not-found rather than failing.
func (m *StatefulManager) HandleDelete(ctx context.Context, sessionID string) (*Response, error) {
	existed := m.sessions.Terminate(sessionID)
	m.Evict(sessionID)
	if !existed {
		return SessionNotFound(), nil
	}

	m.logger.Info("session deleted", "session_id", sessionID, "request_id", ScopeFrom(ctx).RequestID)
	return &Response{Status: http.StatusNoContent}, nil
}

// Evict removes and disposes the handler bound to sessionID, if any. It is
// installed as the session registry's OnEvict hook, so sweep and lazy
// expiry dispose handlers through the same path as explicit teardown. Safe
// for ids with no handler; evicting twice is a no-op.
func (m *StatefulManager) Evict(sessionID string) {
	m.mu.Lock()
	h, ok := m.handlers[sessionID]
	if ok {
		delete(m.handlers, sessionID)
	}
	m.mu.Unlock()

	if ok {
		closeHandler(h, m.logger)
		m.logger.Debug("handler disposed", "session_id", sessionID)
	}
}

// HandlerCount returns the number of live handler instances. Diagnostic.
func (m *StatefulManager) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// Close disposes every live handler. Called at shutdown after the HTTP
// server has drained; requests arriving later get ErrManagerClosed.
func (m *StatefulManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	handlers := m.handlers
	m.handlers = make(map[string]Handler)
	m.mu.Unlock()

	for _, h := range handlers {
		closeHandler(h, m.logger)
	}
	if len(handlers) > 0 {
		m.logger.Info("disposed live handlers", "count", len(handlers))
	}
}

// safeHandle delegates to the handler, converting a panic into an error so
// the caller's teardown path runs and the HTTP boundary sees a plain error.
func (m *StatefulManager) safeHandle(ctx context.Context, h Handler, body []byte) (msg any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, body)
}
