package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the live sessions of a server process.
type Registry struct {
	logger *slog.Logger
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. Sessions idle longer than ttl are removed
// by Sweep; ttl <= 0 keeps sessions until discarded.
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new empty session with a random id.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.logger)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	return s
}

// Get looks up a session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Discard clears and removes a session. It reports whether the id existed.
func (r *Registry) Discard(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Discard()
	}
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep discards sessions idle since before now-ttl and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Discard()
	}
	if len(expired) > 0 {
		r.log().Info("expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
