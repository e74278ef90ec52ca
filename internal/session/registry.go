// Package session keeps the live dialogue sessions of this process.
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ashureev/persona-coach/internal/dialogue"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Defaults used when the registry is built with zero values.
const (
	DefaultMaxSessions = 1000
	DefaultTTL         = 30 * time.Minute
)

// Factory builds a fresh dialogue session for the given ID.
type Factory func(id string) *dialogue.Session

// Registry maps session IDs to sessions. Entries expire after TTL without
// access and the least recently used entry is dropped once MaxSessions is hit.
type Registry struct {
	sessions *expirable.LRU[string, *dialogue.Session]
	factory  Factory
	logger   *slog.Logger
}

// Config configures a Registry.
type Config struct {
	MaxSessions int
	TTL         time.Duration
	Logger      *slog.Logger
	// OnRelease runs in its own goroutine after a session is evicted,
	// expired or deleted.
	OnRelease func(id string)
}

// NewRegistry creates a registry that builds sessions with factory.
func NewRegistry(factory Factory, cfg Config) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{factory: factory, logger: logger}
	// The callback runs under the LRU lock; it must not call back into it.
	r.sessions = expirable.NewLRU[string, *dialogue.Session](cfg.MaxSessions, func(id string, _ *dialogue.Session) {
		logger.Info("Session released", "session_id", id)
		if cfg.OnRelease != nil {
			go cfg.OnRelease(id)
		}
	}, cfg.TTL)

	logger.Info("Session registry ready", "max_sessions", cfg.MaxSessions, "ttl", cfg.TTL)
	return r
}

// Create starts a new session with a random ID.
func (r *Registry) Create() *dialogue.Session {
	id := uuid.NewString()
	s := r.factory(id)
	if evicted := r.sessions.Add(id, s); evicted {
		r.logger.Warn("Session registry full, evicted least recently used session")
	}
	r.logger.Info("Session created", "session_id", id, "active_sessions", r.sessions.Len())
	return s
}

// Get returns the session and refreshes its expiry.
func (r *Registry) Get(id string) (*dialogue.Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	// Get does not extend the TTL; re-adding does.
	r.sessions.Add(id, s)
	return s, nil
}

// Contains reports whether id is live without refreshing its expiry.
func (r *Registry) Contains(id string) bool {
	_, ok := r.sessions.Peek(id)
	return ok
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	if !r.sessions.Remove(id) {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close drops every session.
func (r *Registry) Close() {
	r.sessions.Purge()
}
