package searchview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"casametrix_front/internal/events"
	"casametrix_front/internal/session"
	"casametrix_front/platform/apperr"

	"github.com/google/uuid"
)

// MountRequest describes a view to mount.
type MountRequest struct {
	// ID lets a browser remount a view it already knows. Empty assigns one.
	ID        string
	BrowserID string
	ClientIP  string
	// Container is the map surface, if the browser already rendered it.
	Container string
}

// Manager owns every mounted view.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	views  map[string]*View
	closed bool
}

// NewManager creates an empty manager.
func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{deps: deps, views: make(map[string]*View)}
}

// Mount creates a view. Mounting an id the same browser already holds
// unmounts the previous view first; an id held by another browser is
// refused.
func (m *Manager) Mount(ctx context.Context, req MountRequest) (*View, error) {
	if req.BrowserID == "" {
		return nil, apperr.Unauthorized("missing browser session")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	} else if err := uuid.Validate(req.ID); err != nil {
		return nil, apperr.Validation("invalid view id")
	}

	sess := m.sessionFor(ctx, req.BrowserID)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, apperr.Unavailable("shutting down")
	}
	old, exists := m.views[req.ID]
	if exists && old.browserID != req.BrowserID {
		m.mu.Unlock()
		return nil, apperr.Conflict("view id already in use")
	}
	delete(m.views, req.ID)
	m.mu.Unlock()

	if exists {
		m.release(old, "remount")
	}

	v := newView(m.deps, mountConfig{
		id:        req.ID,
		browserID: req.BrowserID,
		clientIP:  req.ClientIP,
		container: req.Container,
		sess:      sess,
	})

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		v.unmount()
		return nil, apperr.Unavailable("shutting down")
	}
	if raced, ok := m.views[req.ID]; ok {
		// Another mount of the same id won; keep the newest.
		defer m.release(raced, "remount")
	}
	m.views[req.ID] = v
	n := len(m.views)
	m.mu.Unlock()

	m.deps.Metrics.SetActiveViews(n)
	m.deps.Log.Info("view mounted", slog.String("view_id", v.id), slog.String("browser_id", v.browserID))
	m.publish(events.ViewMounted{
		BaseEvent: events.NewBaseEventAt(m.deps.Clock.Now()),
		ViewID:    v.id,
		BrowserID: v.browserID,
	})
	return v, nil
}

// Get returns the view id mounted by browserID. Views of other browsers
// are reported as not found.
func (m *Manager) Get(id, browserID string) (*View, error) {
	m.mu.Lock()
	v, ok := m.views[id]
	m.mu.Unlock()
	if !ok || v.browserID != browserID {
		return nil, ErrUnmounted
	}
	return v, nil
}

// Unmount releases the view id owned by browserID.
func (m *Manager) Unmount(id, browserID string) error {
	m.mu.Lock()
	v, ok := m.views[id]
	if !ok || v.browserID != browserID {
		m.mu.Unlock()
		return ErrUnmounted
	}
	delete(m.views, id)
	m.mu.Unlock()

	m.release(v, "unmount")
	return nil
}

// Len returns the number of mounted views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Sweep unmounts views that have had neither a command nor a subscriber
// for longer than the idle timeout. It returns how many were released.
func (m *Manager) Sweep() int {
	idle := m.deps.Settings.IdleTimeout
	if idle <= 0 {
		return 0
	}
	cutoff := m.deps.Clock.Now().Add(-idle)

	m.mu.Lock()
	var stale []*View
	for id, v := range m.views {
		if v.subscribers() == 0 && v.LastActive().Before(cutoff) {
			stale = append(stale, v)
			delete(m.views, id)
		}
	}
	m.mu.Unlock()

	for _, v := range stale {
		m.release(v, "idle")
	}
	return len(stale)
}

// Run sweeps idle views until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	idle := m.deps.Settings.IdleTimeout
	if idle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(max(idle/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.deps.Log.Info("idle views released", slog.Int("count", n))
			}
		}
	}
}

// Close unmounts every view and refuses new mounts.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	views := make([]*View, 0, len(m.views))
	for id, v := range m.views {
		views = append(views, v)
		delete(m.views, id)
	}
	m.mu.Unlock()

	for _, v := range views {
		m.release(v, "shutdown")
	}
}

func (m *Manager) release(v *View, reason string) {
	v.unmount()

	m.mu.Lock()
	n := len(m.views)
	m.mu.Unlock()
	m.deps.Metrics.SetActiveViews(n)

	m.deps.Log.Info("view unmounted", slog.String("view_id", v.id), slog.String("reason", reason))
	m.publish(events.ViewUnmounted{
		BaseEvent: events.NewBaseEventAt(m.deps.Clock.Now()),
		ViewID:    v.id,
		Reason:    reason,
	})
}

// sessionFor returns the browser's shared session. A store failure mounts
// the view anonymously.
func (m *Manager) sessionFor(ctx context.Context, browserID string) *session.Session {
	if m.deps.Sessions == nil {
		return nil
	}
	sess, err := m.deps.Sessions.Get(ctx, browserID)
	if err != nil {
		m.deps.Log.Warn("session load failed", slog.String("browser_id", browserID), slog.String("error", err.Error()))
		return nil
	}
	return sess
}

func (m *Manager) publish(e events.Event) {
	if m.deps.Bus != nil {
		m.deps.Bus.Publish(context.Background(), e)
	}
}
