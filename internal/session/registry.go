package session

import (
	"context"
	"sync"

	"casametrix_front/internal/clock"
	"casametrix_front/platform/logger"
)

// Registry hands out one shared Session per browser key, so every view a
// browser mounts sees the same login state.
type Registry struct {
	store TokenStore
	clock clock.Clock
	log   *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store TokenStore, clk clock.Clock, log *logger.Logger) *Registry {
	return &Registry{
		store:    store,
		clock:    clk,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for key, loading it from the store on first use.
func (r *Registry) Get(ctx context.Context, key string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	s := New(key, r.store, r.clock, r.log)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[key]; ok {
		return existing, nil
	}
	r.sessions[key] = s
	return s, nil
}

// Close releases the listeners of every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.sessions {
		s.Close()
		delete(r.sessions, key)
	}
}
