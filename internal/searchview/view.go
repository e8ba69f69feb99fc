package searchview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/eventloop"
	"casametrix_front/internal/events"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/search"
	"casametrix_front/internal/selection"
	"casametrix_front/internal/session"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/logger"
)

// ErrUnmounted is returned by every operation on a view that is gone.
var ErrUnmounted = apperr.NotFound("view not found")

// Report is what a browser's own geolocation call produced. A nil Report
// asks the server-side locator instead.
type Report struct {
	Position *geo.Point
	Reason   geolocation.Reason
}

// View is one mounted search view. Its methods may be called from any
// goroutine; they hop onto the view's loop.
type View struct {
	id        string
	browserID string
	deps      Deps
	log       *logger.Logger
	loop      *eventloop.Loop
	sess      *session.Session
	locator   geolocation.Locator

	// Loop-confined.
	toasts      *toast.Queue
	suggest     *autocomplete.Controller
	selection   *selection.Controller
	geolocation *geolocation.Acquirer
	search      *search.Controller
	mapc        *mapsync.Controller
	version     uint64
	publishing  bool
	savedID     string
	position    *geo.Point

	stopSession func()
	lastActive  atomic.Int64
	unmounted   atomic.Bool

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

type mountConfig struct {
	id        string
	browserID string
	clientIP  string
	container string
	sess      *session.Session
}

func newView(deps Deps, cfg mountConfig) *View {
	log := deps.Log.WithView(cfg.id)
	v := &View{
		id:        cfg.id,
		browserID: cfg.browserID,
		deps:      deps,
		log:       log,
		loop:      eventloop.New(log),
		sess:      cfg.sess,
		subs:      make(map[int]chan Snapshot),
	}
	if deps.Locators != nil {
		v.locator = deps.Locators(cfg.clientIP)
	}
	v.touch()

	s := deps.Settings
	v.toasts = toast.NewQueue(toast.Options{
		TTL:      s.ToastTTL,
		MaxDepth: s.ToastMaxDepth,
		Clock:    deps.Clock,
		Post:     v.loop.Post,
		OnChange: v.changed,
		Metrics:  deps.Metrics,
	})
	v.suggest = autocomplete.NewController(autocomplete.Options{
		Provider: deps.Provider,
		Debounce: s.Debounce,
		MinChars: s.MinChars,
		Limit:    s.Limit,
		RPS:      s.RPS,
		Clock:    deps.Clock,
		Post:     v.loop.Post,
		Notifier: v.toasts,
		Messages: deps.Messages,
		OnChange: v.changed,
		Log:      log.WithComponent("autocomplete"),
	})
	v.selection = selection.NewController(selection.Options{
		Saver:    deps.Saver,
		Auth:     v.sess,
		Post:     v.loop.Post,
		Notifier: v.toasts,
		Messages: deps.Messages,
		OnChange: v.sourcesChanged,
		Log:      log.WithComponent("selection"),
	})
	v.geolocation = geolocation.NewAcquirer(geolocation.Options{
		Timeout:  s.GeoTimeout,
		Clock:    deps.Clock,
		Post:     v.loop.Post,
		Notifier: v.toasts,
		Messages: deps.Messages,
		OnChange: v.sourcesChanged,
		Log:      log.WithComponent("geolocation"),
	})
	v.search = search.NewController(search.Options{
		Searcher:  deps.Searcher,
		Auth:      v.sess,
		Post:      v.loop.Post,
		Notifier:  v.toasts,
		Messages:  deps.Messages,
		OnChange:  v.changed,
		OnOutcome: v.searchApplied,
		ViewID:    cfg.id,
		Log:       log.WithComponent("search"),
	})
	v.mapc = mapsync.NewController(mapsync.Options{
		Renderer:   deps.Renderer,
		Container:  cfg.container,
		CloseZoom:  s.CloseZoom,
		FitPadding: s.FitPadding,
		Messages:   deps.Messages,
		OnChange:   v.changed,
		Log:        log.WithComponent("map"),
	})

	if v.sess != nil {
		v.stopSession = v.sess.OnChange(func(authenticated bool) {
			v.loop.Post(func() {
				v.search.SessionChanged(authenticated)
				v.changed()
			})
		})
	}
	return v
}

// ID returns the view id.
func (v *View) ID() string { return v.id }

// BrowserID returns the browser that mounted the view.
func (v *View) BrowserID() string { return v.browserID }

// LastActive returns when the view last received a command.
func (v *View) LastActive() time.Time { return time.Unix(0, v.lastActive.Load()) }

// SetQuery feeds a new autocomplete query.
func (v *View) SetQuery(query string) error {
	return v.do(func() { v.suggest.SetQuery(query) })
}

// Select confirms the suggestion at index and persists it.
func (v *View) Select(index int) error {
	var err error
	ok := v.loop.Call(func() {
		s, found := v.suggest.Suggestion(index)
		if !found {
			err = apperr.Validation("no suggestion at this index")
			return
		}
		v.selection.Confirm(s)
	})
	if !ok {
		return ErrUnmounted
	}
	v.touch()
	return err
}

// Locate triggers one geolocation request. It reports whether a request
// was started; a pending request makes this a no-op.
func (v *View) Locate(report *Report) (bool, error) {
	loc := v.locator
	if report != nil {
		loc = geolocation.Reported(report.Position, report.Reason)
	}
	var started bool
	err := v.do(func() { started = v.geolocation.Request(loc) })
	return started, err
}

// Search submits a golden index search. It reports whether a request was
// sent.
func (v *View) Search(query string) (bool, error) {
	var sent bool
	err := v.do(func() { sent = v.search.Submit(query) })
	return sent, err
}

// ResetQuota clears the quota-exceeded flag.
func (v *View) ResetQuota() error {
	return v.do(v.search.Reset)
}

// DismissToast removes a toast. Unknown ids are ignored.
func (v *View) DismissToast(id int64) error {
	return v.do(func() { v.toasts.Dismiss(id) })
}

// Attach provides the map container once the browser has rendered it.
func (v *View) Attach(container string) error {
	return v.do(func() { v.mapc.Attach(container) })
}

// Snapshot returns the current render state.
func (v *View) Snapshot() (Snapshot, error) {
	var snap Snapshot
	if !v.loop.Call(func() { snap = v.snapshot() }) {
		return Snapshot{}, ErrUnmounted
	}
	return snap, nil
}

// Subscribe returns a channel receiving a snapshot after state changes.
// Slow readers only ever see the latest snapshot. The channel is closed on
// unmount or when cancel is called.
func (v *View) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	v.subMu.Lock()
	if v.unmounted.Load() {
		v.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := v.nextSub
	v.nextSub++
	v.subs[id] = ch
	v.subMu.Unlock()

	// Prime with the current state, unless cancel already closed ch.
	v.loop.Post(func() {
		snap := v.snapshot()
		v.subMu.Lock()
		if c, ok := v.subs[id]; ok {
			offer(c, snap)
		}
		v.subMu.Unlock()
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.subMu.Lock()
			if c, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(c)
			}
			v.subMu.Unlock()
		})
	}
}

func (v *View) subscribers() int {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	return len(v.subs)
}

// unmount cancels autocomplete, disposes the map, stops toast timers and
// closes the loop. Persistence and search calls in flight finish on their
// own and their results are dropped.
func (v *View) unmount() {
	if !v.unmounted.CompareAndSwap(false, true) {
		return
	}
	if v.stopSession != nil {
		v.stopSession()
	}
	v.loop.Call(func() {
		v.suggest.Close()
		v.selection.Close()
		v.search.Close()
		v.geolocation.Close()
		v.mapc.Close()
		v.toasts.Close()
	})
	v.loop.Close()

	v.subMu.Lock()
	for id, ch := range v.subs {
		close(ch)
		delete(v.subs, id)
	}
	v.subMu.Unlock()
}

func (v *View) do(fn func()) error {
	if !v.loop.Call(fn) {
		return ErrUnmounted
	}
	v.touch()
	return nil
}

func (v *View) touch() {
	v.lastActive.Store(v.deps.Clock.Now().UnixNano())
}

// sourcesChanged re-derives the map after the saved address or the device
// position changed.
func (v *View) sourcesChanged() {
	saved := v.selection.State().Saved
	geoState := v.geolocation.State()
	v.mapc.Update(saved, geoState.Position)

	if saved != nil && saved.ID != v.savedID {
		v.savedID = saved.ID
		v.publish(events.AddressSaved{
			BaseEvent: events.NewBaseEventAt(v.deps.Clock.Now()),
			ViewID:    v.id,
			AddressID: saved.ID,
			Address:   saved.Address,
		})
	}
	if p := geoState.Position; p != nil && (v.position == nil || *v.position != *p) {
		v.position = p
		v.publish(events.LocationAcquired{
			BaseEvent: events.NewBaseEventAt(v.deps.Clock.Now()),
			ViewID:    v.id,
			Lat:       p.Lat,
			Lng:       p.Lng,
		})
	}
	v.changed()
}

func (v *View) searchApplied(query string, out golden.SearchOutcome) {
	v.publish(events.SearchCompleted{
		BaseEvent: events.NewBaseEventAt(v.deps.Clock.Now()),
		ViewID:    v.id,
		Query:     query,
		Outcome:   out.Kind.String(),
		Results:   len(out.Results),
	})
	if out.Kind == golden.OutcomeQuotaExceeded {
		v.publish(events.QuotaExceeded{
			BaseEvent: events.NewBaseEventAt(v.deps.Clock.Now()),
			ViewID:    v.id,
			Detail:    out.Message,
		})
	}
}

func (v *View) publish(e events.Event) {
	if v.deps.Bus != nil {
		v.deps.Bus.Publish(context.Background(), e)
	}
}

// changed schedules one snapshot broadcast for however many state changes
// happen before the loop gets to it.
func (v *View) changed() {
	v.version++
	if v.publishing {
		return
	}
	v.publishing = true
	v.loop.Post(func() {
		v.publishing = false
		snap := v.snapshot()
		v.subMu.Lock()
		for _, ch := range v.subs {
			offer(ch, snap)
		}
		v.subMu.Unlock()
	})
}

func (v *View) snapshot() Snapshot {
	authenticated := v.sess.IsAuthenticated()
	snap := Snapshot{
		ViewID:        v.id,
		Version:       v.version,
		Authenticated: authenticated,
		Autocomplete:  v.suggest.State(),
		Selection:     v.selection.State(),
		Geolocation:   v.geolocation.State(),
		Search:        v.search.State(),
		Toasts:        v.toasts.List(),
		Map:           v.mapc.State(),
		TileURL:       v.deps.Settings.TileURL,
	}
	if authenticated {
		snap.QuotaLabel = v.deps.Messages.Get(messages.SearchQuotaLabelMember)
	} else {
		snap.QuotaLabel = v.deps.Messages.Get(messages.SearchQuotaLabelGuest)
	}
	if snap.Search.QuotaExceeded {
		snap.QuotaHint = v.deps.Messages.Get(messages.SearchQuotaBlocked)
	}
	return snap
}

// offer replaces whatever is buffered in ch with snap.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
