// ABOUTME: In-memory registry of active MCP sessions with TTL-based expiry.
// ABOUTME: Sole authority on session existence, staleness, and activity tracking.

package session

import (
	"log/slog"
	"sync"
	"time"
)

// Session holds the metadata tracked for one logical client conversation.
// ClientID and TenantID are copied from the auth context at creation time
// and never change afterward.
type Session struct {
	ID           string
	ClientID     string
	TenantID     string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Manager is the in-memory session registry. All methods are safe for
// concurrent use. Staleness is enforced twice over: lazily (IsValid deletes
// stale entries on sight) and by a background sweep launched with Start, so
// long-idle sessions are reclaimed even when nothing references them again.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	staleTimeout  time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	// OnEvict, if set, is invoked with the session id after any removal:
	// lazy expiry, background sweep, or explicit termination. It is always
	// called without the registry lock held.
	OnEvict func(sessionID string)

	done    chan struct{}
	started bool
	closed  bool
}

// NewManager creates a session registry. The sweep goroutine is not running
// until Start is called; callers own the lifecycle and must call Stop on
// shutdown so the ticker does not delay process exit.
func NewManager(staleTimeout, sweepInterval time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:      make(map[string]*Session),
		staleTimeout:  staleTimeout,
		sweepInterval: sweepInterval,
		logger:        logger.With("component", "session"),
		done:          make(chan struct{}),
	}
}

// Create inserts a session with CreatedAt = LastActivity = now and returns
// its id. Creating an id that already exists overwrites the prior entry;
// the transport layer is responsible for minting fresh ids per initialize.
func (m *Manager) Create(sessionID, clientID, tenantID string) string {
	now := time.Now()
	m.mu.Lock()
	m.sessions[sessionID] = &Session{
		ID:           sessionID,
		ClientID:     clientID,
		TenantID:     tenantID,
		CreatedAt:    now,
		LastActivity: now,
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", sessionID, "active", active)
	return sessionID
}

// IsValid reports whether the session exists and is fresh. A stale entry is
// deleted on sight and reported invalid, so an expired session can never
// serve another request. IsValid does not bump activity; Touch is the
// explicit "use" step so callers can distinguish checking from using.
func (m *Manager) IsValid(sessionID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if time.Since(s.LastActivity) > m.staleTimeout {
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		m.logger.Info("session expired", "session_id", sessionID, "idle", time.Since(s.LastActivity).Round(time.Second))
		m.evict(sessionID)
		return false
	}
	m.mu.Unlock()
	return true
}

// Touch sets LastActivity to now. Missing sessions are a no-op, not an
// error; callers are expected to have validated first. The write is
// monotonic so concurrent touches never move the timestamp backward.
func (m *Manager) Touch(sessionID string) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// Terminate removes the session and reports whether it existed. Safe to
// call repeatedly; the second call returns false.
func (m *Manager) Terminate(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Info("session terminated", "session_id", sessionID)
		m.evict(sessionID)
	}
	return ok
}

// Metadata returns a copy of the session metadata, or nil if the session is
// absent or stale. Staleness handling delegates to IsValid, so asking for
// metadata of an expired session also removes it.
func (m *Manager) Metadata(sessionID string) *Session {
	if !m.IsValid(sessionID) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		// Lost a race with the sweep between the validity check and here.
		return nil
	}
	cp := *s
	return &cp
}

// Count returns the number of live entries. Diagnostic only.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start launches the background sweep goroutine. Calling Start more than
// once, or after Stop, is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	go m.sweep()
}

// Stop halts the background sweep. It is safe to call multiple times and
// must be called on graceful shutdown to release the ticker.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.done)
		m.closed = true
	}
}

// sweep runs in a background goroutine, periodically removing stale entries.
func (m *Manager) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runSweep()
		case <-m.done:
			return
		}
	}
}

// runSweep removes every session idle longer than the stale timeout.
func (m *Manager) runSweep() {
	now := time.Now()
	var removed []string

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.staleTimeout {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	for _, id := range removed {
		m.evict(id)
	}
	if len(removed) > 0 {
		m.logger.Info("swept stale sessions", "removed", len(removed), "active", remaining)
	}
}

func (m *Manager) evict(sessionID string) {
	if m.OnEvict != nil {
		m.OnEvict(sessionID)
	}
}
