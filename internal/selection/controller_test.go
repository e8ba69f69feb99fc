package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/eventloop"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/apperr"

	"github.com/stretchr/testify/require"
)

type saverFunc func(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error)

func (f saverFunc) LogSelection(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
	return f(ctx, req, auth)
}

type notifications struct {
	mu   sync.Mutex
	list []string
}

func (n *notifications) Notify(kind toast.Kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, string(kind)+":"+msg)
}

func (n *notifications) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.list...)
}

func setup(t *testing.T, saver Saver) (*eventloop.Loop, *Controller, *notifications) {
	t.Helper()
	loop := eventloop.New(nil)
	t.Cleanup(loop.Close)
	n := &notifications{}
	c := NewController(Options{Saver: saver, Post: loop.Post, Notifier: n, Messages: messages.Default})
	return loop, c, n
}

func stateOf(loop *eventloop.Loop, c *Controller) State {
	var s State
	loop.Call(func() { s = c.State() })
	return s
}

func suggestion(label string) autocomplete.Suggestion {
	lat, lng := 48.8566, 2.3522
	return autocomplete.Suggestion{Label: label, City: "Paris", PostalCode: "75004", Latitude: &lat, Longitude: &lng}
}

func TestConfirmReplacesSavedAddress(t *testing.T) {
	loop, c, n := setup(t, saverFunc(func(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
		return golden.SavedAddress{ID: req.Label, Address: req.Label, Latitude: req.Latitude, Longitude: req.Longitude}, nil
	}))

	loop.Call(func() { c.Confirm(suggestion("first")) })
	require.Eventually(t, func() bool {
		s := stateOf(loop, c)
		return s.Saved != nil && s.Saved.ID == "first"
	}, time.Second, 5*time.Millisecond)

	loop.Call(func() { c.Confirm(suggestion("second")) })
	require.Eventually(t, func() bool {
		s := stateOf(loop, c)
		return s.Saved != nil && s.Saved.ID == "second" && !s.Saving
	}, time.Second, 5*time.Millisecond)

	saved := messages.Default.Get(messages.SelectionSaved)
	require.Equal(t, []string{"success:" + saved, "success:" + saved}, n.all())
}

func TestUnauthorizedKeepsPreviousRecord(t *testing.T) {
	fail := make(chan error, 2)
	loop, c, n := setup(t, saverFunc(func(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
		select {
		case err := <-fail:
			return golden.SavedAddress{}, err
		default:
			return golden.SavedAddress{ID: "kept", Address: req.Label}, nil
		}
	}))

	loop.Call(func() { c.Confirm(suggestion("kept")) })
	require.Eventually(t, func() bool { return stateOf(loop, c).Saved != nil }, time.Second, 5*time.Millisecond)

	fail <- apperr.Unauthorized("log selection failed")
	loop.Call(func() { c.Confirm(suggestion("other")) })
	loginRequired := messages.Default.Get(messages.SelectionLoginRequired)
	require.Eventually(t, func() bool { return stateOf(loop, c).Error == loginRequired }, time.Second, 5*time.Millisecond)
	require.Equal(t, "kept", stateOf(loop, c).Saved.ID)

	fail <- errors.New("network down")
	loop.Call(func() { c.Confirm(suggestion("again")) })
	failed := messages.Default.Get(messages.SelectionFailed)
	require.Eventually(t, func() bool { return stateOf(loop, c).Error == failed }, time.Second, 5*time.Millisecond)
	require.Equal(t, "kept", stateOf(loop, c).Saved.ID)

	require.Equal(t, "error:"+loginRequired, n.all()[1])
	require.Equal(t, "error:"+failed, n.all()[2])
}

func TestLateOlderSuccessDoesNotOverwriteNewer(t *testing.T) {
	releaseFirst := make(chan struct{})
	loop, c, _ := setup(t, saverFunc(func(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
		if req.Label == "slow" {
			<-releaseFirst
		}
		return golden.SavedAddress{ID: req.Label}, nil
	}))

	loop.Call(func() { c.Confirm(suggestion("slow")) })
	loop.Call(func() { c.Confirm(suggestion("fast")) })
	require.Eventually(t, func() bool {
		s := stateOf(loop, c)
		return s.Saved != nil && s.Saved.ID == "fast"
	}, time.Second, 5*time.Millisecond)
	require.True(t, stateOf(loop, c).Saving)

	close(releaseFirst)
	require.Eventually(t, func() bool { return !stateOf(loop, c).Saving }, time.Second, 5*time.Millisecond)
	require.Equal(t, "fast", stateOf(loop, c).Saved.ID)
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	loop, c, n := setup(t, saverFunc(func(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error) {
		defer close(done)
		<-release
		require.NoError(t, ctx.Err())
		return golden.SavedAddress{ID: "late"}, nil
	}))

	loop.Call(func() { c.Confirm(suggestion("x")) })
	loop.Call(c.Close)
	close(release)
	<-done
	loop.Call(func() {})
	require.Nil(t, stateOf(loop, c).Saved)
	require.Empty(t, n.all())
}
