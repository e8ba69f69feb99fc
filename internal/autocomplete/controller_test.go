package autocomplete

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casametrix_front/internal/clock"
	"casametrix_front/internal/eventloop"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
}

func (r *recordingNotifier) Notify(kind toast.Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, string(kind)+":"+message)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.toasts...)
}

type fakeProvider struct {
	mu      sync.Mutex
	queries []string
	respond func(ctx context.Context, query string) ([]Suggestion, error)
}

func (f *fakeProvider) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return AssignIDs([]Suggestion{{Label: query + " result"}}), nil
	}
	return respond(ctx, query)
}

func (f *fakeProvider) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type harness struct {
	loop     *eventloop.Loop
	clock    *clock.Fake
	ctrl     *Controller
	provider *fakeProvider
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loop:     eventloop.New(nil),
		clock:    clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		provider: &fakeProvider{},
		notifier: &recordingNotifier{},
	}
	h.ctrl = NewController(Options{
		Provider: h.provider,
		Debounce: 250 * time.Millisecond,
		MinChars: 3,
		Limit:    8,
		Clock:    h.clock,
		Post:     h.loop.Post,
		Notifier: h.notifier,
		Messages: messages.Default,
	})
	t.Cleanup(func() {
		h.loop.Call(h.ctrl.Close)
		h.loop.Close()
	})
	return h
}

func (h *harness) setQuery(q string) {
	h.loop.Call(func() { h.ctrl.SetQuery(q) })
}

func (h *harness) state() State {
	var s State
	h.loop.Call(func() { s = h.ctrl.State() })
	return s
}

func labels(list []Suggestion) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Label
	}
	return out
}

func TestShortQueriesNeverHitTheNetwork(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{"", "a", "ab", "  ab  ", "é"} {
		h.setQuery(q)
		h.clock.Advance(time.Second)
		st := h.state()
		require.Empty(t, st.Suggestions)
		require.Empty(t, st.Error)
		require.False(t, st.Loading)
	}
	require.Empty(t, h.provider.calls())
	require.Zero(t, h.clock.Pending())
}

func TestShortQueryClearsPreviousSuggestionsAndError(t *testing.T) {
	h := newHarness(t)
	h.setQuery("rivoli")
	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(h.state().Suggestions) == 1 }, time.Second, 5*time.Millisecond)

	h.setQuery("ri")
	st := h.state()
	require.Empty(t, st.Suggestions)
	require.Equal(t, "ri", st.Query)
}

func TestDebounceCollapsesKeystrokes(t *testing.T) {
	h := newHarness(t)
	h.setQuery("riv")
	h.clock.Advance(100 * time.Millisecond)
	h.setQuery("rivo")
	h.clock.Advance(100 * time.Millisecond)
	h.setQuery("rivol")
	h.clock.Advance(249 * time.Millisecond)
	require.Empty(t, h.provider.calls())

	h.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool {
		return len(h.state().Suggestions) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"rivol"}, h.provider.calls())
	require.Equal(t, []string{"rivol result"}, labels(h.state().Suggestions))
}

func TestStaleResponseNeverOverwritesNewerQuery(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	staleCancelled := make(chan struct{})
	h.provider.respond = func(ctx context.Context, query string) ([]Suggestion, error) {
		if query == "rue de la paix" {
			select {
			case <-ctx.Done():
				close(staleCancelled)
			case <-release:
			}
			return []Suggestion{{Label: "stale"}}, nil
		}
		return []Suggestion{{Label: "fresh"}}, nil
	}

	h.setQuery("rue de la paix")
	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(h.provider.calls()) == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, h.state().Loading)

	h.setQuery("rue de rivoli")
	select {
	case <-staleCancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight request was not cancelled")
	}

	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		st := h.state()
		return !st.Loading && len(st.Suggestions) == 1
	}, time.Second, 5*time.Millisecond)
	close(release)

	// Give any stray completion a chance to land.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []string{"fresh"}, labels(h.state().Suggestions))
	require.Empty(t, h.notifier.all())
}

func TestFailureSurfacesMessageAndToastWithoutRetry(t *testing.T) {
	h := newHarness(t)
	h.provider.respond = func(ctx context.Context, query string) ([]Suggestion, error) {
		return nil, errors.New("boom")
	}

	h.setQuery("avenue foch")
	h.clock.Advance(250 * time.Millisecond)

	msg := messages.Default.Get(messages.AutocompleteFailed)
	require.Eventually(t, func() bool { return h.state().Error == msg }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"error:" + msg}, h.notifier.all())

	h.clock.Advance(10 * time.Second)
	require.Len(t, h.provider.calls(), 1)
}

func TestCloseCancelsInFlightSilently(t *testing.T) {
	h := newHarness(t)
	returned := make(chan error, 1)
	h.provider.respond = func(ctx context.Context, query string) ([]Suggestion, error) {
		<-ctx.Done()
		returned <- ctx.Err()
		return nil, ctx.Err()
	}

	h.setQuery("boulevard haussmann")
	h.clock.Advance(250 * time.Millisecond)
	require.Eventually(t, func() bool { return len(h.provider.calls()) == 1 }, time.Second, 5*time.Millisecond)

	h.loop.Call(h.ctrl.Close)
	require.ErrorIs(t, <-returned, context.Canceled)
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, h.notifier.all())
	require.Empty(t, h.state().Error)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "rue de la paix", Normalize("  rue\tde  la\npaix "))
	require.Equal(t, Normalize("\u00e9vry"), Normalize("e\u0301vry"))
	require.Equal(t, 4, Length(Normalize("e\u0301vry")))
}
