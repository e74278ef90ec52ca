package api

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Watchers tracks the websocket connections following each session.
type Watchers struct {
	mu     sync.Mutex
	active map[string]map[*websocket.Conn]struct{}
	logger *slog.Logger
}

// NewWatchers creates an empty watcher set.
func NewWatchers(logger *slog.Logger) *Watchers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchers{
		active: make(map[string]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Register adds a watcher for sessionID.
func (m *Watchers) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[sessionID]; !ok {
		m.active[sessionID] = make(map[*websocket.Conn]struct{})
	}
	m.active[sessionID][conn] = struct{}{}
	m.logger.Info("Session watcher registered", "session_id", sessionID, "watchers", len(m.active[sessionID]))
}

// Unregister removes a watcher for sessionID.
func (m *Watchers) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[sessionID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.active, sessionID)
		}
		m.logger.Info("Session watcher unregistered", "session_id", sessionID)
	}
}

// Count returns the number of watchers for sessionID.
func (m *Watchers) Count(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active[sessionID])
}

// CloseSession disconnects every watcher of sessionID.
func (m *Watchers) CloseSession(sessionID string) {
	m.mu.Lock()
	conns := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()

	// Close waits for the peer handshake, so it runs outside the lock.
	for conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "session closed")
	}
	if len(conns) > 0 {
		m.logger.Info("Session watchers closed", "session_id", sessionID, "count", len(conns))
	}
}
