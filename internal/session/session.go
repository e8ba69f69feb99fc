// Package session holds the bearer token a browser obtained from the remote
// API. A Session is passed explicitly to every client that may authenticate
// a request; nothing reads the token from ambient state.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"casametrix_front/internal/clock"
	"casametrix_front/platform/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Session is safe for concurrent use. Listeners are called outside the lock
// and must hand work to their own loop.
type Session struct {
	key   string
	store TokenStore
	clock clock.Clock
	log   *logger.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	subject   string
	listeners map[int]func(authenticated bool)
	nextID    int
	closed    bool
}

// New creates an unauthenticated session bound to key in store.
func New(key string, store TokenStore, clk clock.Clock, log *logger.Logger) *Session {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Session{
		key:       key,
		store:     store,
		clock:     clk,
		log:       log,
		listeners: make(map[int]func(bool)),
	}
}

// Init loads a previously saved token. A store failure leaves the session
// anonymous and is returned to the caller.
func (s *Session) Init(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	token, err := s.store.Load(ctx, s.key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.setLocked(token)
	s.mu.Unlock()
	return nil
}

// Key returns the browser key the session is stored under.
func (s *Session) Key() string { return s.key }

// Token returns the bearer token when one is held and not expired. A nil
// Session is anonymous.
func (s *Session) Token() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && !s.clock.Now().Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

// IsAuthenticated reports whether Token would return a token.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// Subject returns the JWT sub claim, if the token carried one.
func (s *Session) Subject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subject
}

// SetToken stores token and notifies listeners.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if s.store != nil {
		if err := s.store.Save(ctx, s.key, token); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.setLocked(token)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Clear forgets the token and notifies listeners.
func (s *Session) Clear(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.Delete(ctx, s.key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.setLocked("")
	s.mu.Unlock()
	s.notify()
	return nil
}

// OnChange registers fn to be called after every token change. The returned
// func unregisters it.
func (s *Session) OnChange(fn func(authenticated bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close drops all listeners. The stored token is left in place.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.listeners = make(map[int]func(bool))
	s.mu.Unlock()
}

func (s *Session) setLocked(token string) {
	s.token = token
	s.expiresAt = time.Time{}
	s.subject = ""
	if token == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens are still attached as-is.
		s.log.Debug("session token is not a JWT", slog.String("error", err.Error()))
		return
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.expiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.subject = sub
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	authenticated := s.IsAuthenticated()
	for _, fn := range fns {
		fn(authenticated)
	}
}
