// Package selection persists a confirmed suggestion to the golden index and
// holds the resulting SavedAddress.
package selection

import (
	"context"
	"log/slog"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/logger"
)

// Saver is the golden index call this controller needs.
type Saver interface {
	LogSelection(ctx context.Context, req golden.SelectionRequest, auth apiclient.TokenSource) (golden.SavedAddress, error)
}

// State is the render state of the selection.
type State struct {
	Saved  *golden.SavedAddress `json:"saved,omitempty"`
	Saving bool                 `json:"saving"`
	Error  string               `json:"error,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Saver    Saver
	Auth     apiclient.TokenSource
	Post     func(func()) bool
	Notifier toast.Notifier
	Messages *messages.Catalog
	OnChange func()
	Log      *logger.Logger
}

// Controller must be used from its owning event loop.
type Controller struct {
	opts    Options
	state   State
	seq     uint64
	applied uint64
	pending int
	closed  bool
}

// NewController creates a controller with no saved address.
func NewController(opts Options) *Controller {
	if opts.Post == nil {
		opts.Post = func(f func()) bool { f(); return true }
	}
	if opts.Log == nil {
		opts.Log = logger.NewDiscard()
	}
	return &Controller{opts: opts}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	if c.state.Saved != nil {
		saved := *c.state.Saved
		s.Saved = &saved
	}
	return s
}

// Confirm issues one POST for s. The token is attached when the session has
// one; anonymous calls are still attempted. On success the returned record
// replaces any previous SavedAddress. On failure the previous value is kept.
func (c *Controller) Confirm(s autocomplete.Suggestion) {
	if c.closed {
		return
	}
	c.seq++
	seq := c.seq
	c.pending++
	c.state.Saving = true
	c.state.Error = ""
	c.changed()

	req := golden.SelectionRequest{
		Label:      s.Label,
		City:       s.City,
		PostalCode: s.PostalCode,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
	}
	go func() {
		// Not tied to the view: unmount lets this finish and drops the result.
		saved, err := c.opts.Saver.LogSelection(context.Background(), req, c.opts.Auth)
		c.opts.Post(func() { c.complete(seq, saved, err) })
	}()
}

// Close drops any result still in flight.
func (c *Controller) Close() {
	c.closed = true
}

func (c *Controller) complete(seq uint64, saved golden.SavedAddress, err error) {
	if c.closed {
		return
	}
	c.pending--
	c.state.Saving = c.pending > 0

	if err != nil {
		key := messages.SelectionFailed
		if apperr.Is(err, apperr.KindUnauthorized) {
			key = messages.SelectionLoginRequired
		}
		c.opts.Log.Warn("selection not saved", slog.String("error", err.Error()))
		msg := c.opts.Messages.Get(key)
		c.state.Error = msg
		c.notify(toast.KindError, msg)
		c.changed()
		return
	}

	// An older confirmation finishing late must not replace a newer record.
	if seq < c.applied {
		c.changed()
		return
	}
	c.applied = seq
	c.state.Saved = &saved
	c.state.Error = ""
	c.notify(toast.KindSuccess, c.opts.Messages.Get(messages.SelectionSaved))
	c.changed()
}

func (c *Controller) notify(kind toast.Kind, msg string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(kind, msg)
	}
}

func (c *Controller) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
