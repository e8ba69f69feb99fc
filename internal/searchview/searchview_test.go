package searchview

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/events"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/session"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeSaver struct {
	mu      sync.Mutex
	release chan struct{}
	calls   int
}

func (f *fakeSaver) LogSelection(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return golden.SavedAddress{
		ID:        fmt.Sprintf("addr-%d", n),
		Address:   req.Label,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}, nil
}

type fakeSearcher struct {
	mu    sync.Mutex
	out   golden.SearchOutcome
	auths []bool
}

func (f *fakeSearcher) Search(ctx context.Context, query string, auth apiclient.TokenSource) (golden.SearchOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := auth.Token()
	f.auths = append(f.auths, ok)
	return f.out, nil
}

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

type harness struct {
	clock    *clock.Fake
	scene    *mapsync.Scene
	saver    *fakeSaver
	searcher *fakeSearcher
	sessions *session.Registry
	bus      *events.InMemoryBus
	events   *recorder
	logs     *syncBuffer
	manager  *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		scene:    mapsync.NewScene(geo.Viewport{Width: 800, Height: 320}, 19),
		saver:    &fakeSaver{},
		searcher: &fakeSearcher{out: golden.SearchOutcome{Kind: golden.OutcomeEmpty}},
		events:   &recorder{},
		logs:     &syncBuffer{},
	}
	h.sessions = session.NewRegistry(session.NewMemoryStore(0), h.clock, nil)
	h.bus = events.NewInMemoryBus(nil)
	for _, name := range []string{"view.mounted", "view.unmounted", "search.address.saved", "search.completed", "search.quota_exceeded", "geolocation.acquired"} {
		h.bus.Subscribe(name, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
			h.events.mu.Lock()
			h.events.names = append(h.events.names, e.EventName())
			h.events.mu.Unlock()
			return nil
		}))
	}

	provider := autocomplete.ProviderFunc(func(ctx context.Context, query string, limit int) ([]autocomplete.Suggestion, error) {
		return autocomplete.AssignIDs([]autocomplete.Suggestion{
			{Label: "Rue de Rivoli 75001 Paris", Latitude: fptr(48.8566), Longitude: fptr(2.3522), Source: "ban"},
			{Label: "Rue de Rivoli 75004 Paris", Source: "ban"},
		}), nil
	})

	h.manager = NewManager(Deps{
		Provider: provider,
		Saver:    h.saver,
		Searcher: h.searcher,
		Renderer: h.scene,
		Sessions: h.sessions,
		Clock:    h.clock,
		Messages: messages.Default,
		Bus:      h.bus,
		Log:      logger.NewWithOptions(logger.Options{Env: "production", Output: h.logs}),
		Settings: Settings{
			Debounce:    250 * time.Millisecond,
			MinChars:    3,
			Limit:       8,
			ToastTTL:    5 * time.Second,
			GeoTimeout:  10 * time.Second,
			CloseZoom:   15,
			FitPadding:  40,
			IdleTimeout: 30 * time.Minute,
		},
	})
	t.Cleanup(func() {
		h.manager.Close()
		h.bus.Wait()
		h.sessions.Close()
	})
	return h
}

func (h *harness) mount(t *testing.T, browser string) *View {
	t.Helper()
	v, err := h.manager.Mount(context.Background(), MountRequest{BrowserID: browser, Container: "map"})
	require.NoError(t, err)
	return v
}

func snap(t *testing.T, v *View) Snapshot {
	t.Helper()
	s, err := v.Snapshot()
	require.NoError(t, err)
	return s
}

func TestSelectThenLocateDrivesTheMap(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")

	require.NoError(t, v.SetQuery("rue de rivoli"))
	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(snap(t, v).Autocomplete.Suggestions) == 2 }, time.Second, 5*time.Millisecond)
	require.False(t, snap(t, v).Map.Initialized)

	require.NoError(t, v.Select(0))
	require.Eventually(t, func() bool { return snap(t, v).Selection.Saved != nil }, time.Second, 5*time.Millisecond)

	s := snap(t, v)
	require.True(t, s.Map.Initialized)
	require.Equal(t, mapsync.ModeClose, s.Map.Mode)
	require.Len(t, s.Map.Markers, 1)
	require.Equal(t, geo.Point{Lat: 48.8566, Lng: 2.3522}, *s.Map.Center)
	require.Equal(t, messages.Default.Get(messages.SelectionSaved), s.Toasts[len(s.Toasts)-1].Message)

	started, err := v.Locate(&Report{Position: &geo.Point{Lat: 48.86, Lng: 2.35}})
	require.NoError(t, err)
	require.True(t, started)
	require.Eventually(t, func() bool { return snap(t, v).Geolocation.Status == geolocation.StatusResolved }, time.Second, 5*time.Millisecond)

	s = snap(t, v)
	require.Equal(t, mapsync.ModeFit, s.Map.Mode)
	require.Len(t, s.Map.Markers, 2)
	require.Equal(t, 1, h.scene.Live())

	h.bus.Wait()
	require.True(t, h.events.has("search.address.saved"))
	require.True(t, h.events.has("geolocation.acquired"))
}

func TestSelectOutOfRangeIsValidationError(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")
	err := v.Select(3)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLocateWithoutLocatorIsUnsupported(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")
	started, err := v.Locate(nil)
	require.NoError(t, err)
	require.False(t, started)
	s := snap(t, v)
	require.Equal(t, geolocation.ReasonUnsupported, s.Geolocation.Reason)
	require.False(t, s.Map.Initialized)
}

func TestQuotaBlocksUntilLogin(t *testing.T) {
	h := newHarness(t)
	h.searcher.out = golden.SearchOutcome{Kind: golden.OutcomeQuotaExceeded, Message: "Quota atteint"}
	v := h.mount(t, "browser-1")

	s := snap(t, v)
	require.Equal(t, messages.Default.Get(messages.SearchQuotaLabelGuest), s.QuotaLabel)

	sent, err := v.Search("rivoli")
	require.NoError(t, err)
	require.True(t, sent)
	require.Eventually(t, func() bool { return snap(t, v).Search.QuotaExceeded }, time.Second, 5*time.Millisecond)
	require.Equal(t, messages.Default.Get(messages.SearchQuotaBlocked), snap(t, v).QuotaHint)

	sent, err = v.Search("rivoli")
	require.NoError(t, err)
	require.False(t, sent)

	sess, err := h.sessions.Get(context.Background(), "browser-1")
	require.NoError(t, err)
	require.NoError(t, sess.SetToken(context.Background(), "opaque-token"))

	require.Eventually(t, func() bool { return !snap(t, v).Search.QuotaExceeded }, time.Second, 5*time.Millisecond)
	s = snap(t, v)
	require.Empty(t, s.QuotaHint)
	require.True(t, s.Authenticated)
	require.Equal(t, messages.Default.Get(messages.SearchQuotaLabelMember), s.QuotaLabel)

	h.searcher.mu.Lock()
	require.Equal(t, []bool{false}, h.searcher.auths)
	h.searcher.mu.Unlock()

	h.bus.Wait()
	require.True(t, h.events.has("search.quota_exceeded"))
}

func TestUnmountReleasesMapAndDropsLateResults(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.saver.release = release
	v := h.mount(t, "browser-1")

	require.NoError(t, v.SetQuery("rue de rivoli"))
	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(snap(t, v).Autocomplete.Suggestions) == 2 }, time.Second, 5*time.Millisecond)

	_, err := v.Locate(&Report{Position: &geo.Point{Lat: 48.86, Lng: 2.35}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return snap(t, v).Map.Initialized }, time.Second, 5*time.Millisecond)

	require.NoError(t, v.Select(0))
	require.NoError(t, h.manager.Unmount(v.ID(), "browser-1"))
	require.Zero(t, h.scene.Live())
	require.Zero(t, h.manager.Len())
	require.Zero(t, h.clock.Pending())

	close(release)
	time.Sleep(20 * time.Millisecond)

	_, err = v.Snapshot()
	require.ErrorIs(t, err, ErrUnmounted)
	require.ErrorIs(t, v.SetQuery("x"), ErrUnmounted)
	require.Zero(t, h.scene.Live())
}

func TestRemountSameIDNeverLeaksMaps(t *testing.T) {
	h := newHarness(t)
	id := uuid.NewString()
	var last *View
	for i := 0; i < 3; i++ {
		v, err := h.manager.Mount(context.Background(), MountRequest{ID: id, BrowserID: "browser-1", Container: "map"})
		require.NoError(t, err)
		_, err = v.Locate(&Report{Position: &geo.Point{Lat: 45.76, Lng: 4.83}})
		require.NoError(t, err)
		require.Eventually(t, func() bool { return snap(t, v).Map.Initialized }, time.Second, 5*time.Millisecond)
		require.Equal(t, 1, h.scene.Live())
		if last != nil {
			_, err := last.Snapshot()
			require.ErrorIs(t, err, ErrUnmounted)
		}
		last = v
	}
	require.Equal(t, 1, h.manager.Len())

	_, err := h.manager.Mount(context.Background(), MountRequest{ID: id, BrowserID: "browser-2"})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestViewsAreScopedToTheirBrowser(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")

	_, err := h.manager.Get(v.ID(), "browser-2")
	require.ErrorIs(t, err, ErrUnmounted)
	require.ErrorIs(t, h.manager.Unmount(v.ID(), "browser-2"), ErrUnmounted)

	got, err := h.manager.Get(v.ID(), "browser-1")
	require.NoError(t, err)
	require.Same(t, v, got)
}

func TestSweepReleasesIdleViewsWithoutSubscribers(t *testing.T) {
	h := newHarness(t)
	idle := h.mount(t, "browser-1")
	watched := h.mount(t, "browser-1")
	_, cancel := watched.Subscribe()
	defer cancel()

	h.clock.Advance(31 * time.Minute)
	require.Equal(t, 1, h.manager.Sweep())

	_, err := h.manager.Get(idle.ID(), "browser-1")
	require.ErrorIs(t, err, ErrUnmounted)
	_, err = h.manager.Get(watched.ID(), "browser-1")
	require.NoError(t, err)
}

func TestSubscribeDeliversLatestSnapshotAndClosesOnUnmount(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")
	ch, cancel := v.Subscribe()
	defer cancel()

	first := <-ch
	require.Equal(t, v.ID(), first.ViewID)

	require.NoError(t, v.SetQuery("ab"))
	require.Eventually(t, func() bool {
		select {
		case s := <-ch:
			return s.Autocomplete.Query == "ab"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.manager.Unmount(v.ID(), "browser-1"))
	for range ch {
	}
}

func TestCancelBeforePrimeLeavesLoopQuiet(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")

	release := make(chan struct{})
	require.True(t, v.loop.Post(func() { <-release }))

	ch, cancel := v.Subscribe()
	cancel()
	close(release)

	// Runs after the pending prime.
	require.True(t, v.loop.Call(func() {}))
	_, open := <-ch
	require.False(t, open)
	require.NotContains(t, h.logs.String(), "panicked")

	require.NoError(t, v.SetQuery("ab"))
	require.Equal(t, "ab", snap(t, v).Autocomplete.Query)
}

func TestToastsExpireOnTheViewClock(t *testing.T) {
	h := newHarness(t)
	v := h.mount(t, "browser-1")

	_, err := v.Search("   ")
	require.NoError(t, err)
	require.Len(t, snap(t, v).Toasts, 1)

	h.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return len(snap(t, v).Toasts) == 0 }, time.Second, 5*time.Millisecond)
}
