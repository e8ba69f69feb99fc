package search

import (
	"context"
	"log/slog"
	"strings"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/golden"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/logger"
)

// Searcher is the golden index call this controller needs.
type Searcher interface {
	Search(ctx context.Context, query string, auth apiclient.TokenSource) (golden.SearchOutcome, error)
}

// Options configures a Controller.
type Options struct {
	Searcher Searcher
	Auth     apiclient.TokenSource
	Post     func(func()) bool
	Notifier toast.Notifier
	Messages *messages.Catalog
	OnChange func()
	// OnOutcome observes every applied outcome, for events and metrics.
	OnOutcome func(query string, out golden.SearchOutcome)
	ViewID    string
	Log       *logger.Logger
}

// Controller must be used from its owning event loop.
type Controller struct {
	opts   Options
	state  State
	closed bool
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	if opts.Post == nil {
		opts.Post = func(f func()) bool { f(); return true }
	}
	if opts.Log == nil {
		opts.Log = logger.NewDiscard()
	}
	return &Controller{opts: opts, state: State{Results: []golden.SearchResultAddress{}}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Results = append([]golden.SearchResultAddress(nil), c.state.Results...)
	return s
}

// Submit runs one search. Blank input is rejected locally with an info
// toast. While the quota flag is set, or while a search is in flight,
// Submit does nothing. It reports whether a request was sent.
func (c *Controller) Submit(query string) bool {
	if c.closed || c.state.QuotaExceeded || c.state.Loading {
		return false
	}
	c.state.Query = query

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		msg := c.opts.Messages.Get(messages.SearchEmptyQuery)
		c.state.Error = msg
		c.notify(Notice{Kind: toast.KindInfo, Message: msg})
		c.changed()
		return false
	}

	c.state.Loading = true
	c.state.Error = ""
	c.changed()

	go func() {
		// Not tied to the view: unmount lets this finish and drops the result.
		out, err := c.opts.Searcher.Search(context.Background(), trimmed, c.opts.Auth)
		if err != nil {
			out = golden.SearchOutcome{Kind: golden.OutcomeFailure, Message: err.Error()}
		}
		c.opts.Post(func() { c.complete(trimmed, out) })
	}()
	return true
}

// Reset clears the quota flag and any error. Results are kept.
func (c *Controller) Reset() {
	if !c.state.QuotaExceeded && c.state.Error == "" {
		return
	}
	c.state.QuotaExceeded = false
	c.state.Error = ""
	c.changed()
}

// SessionChanged clears the quota flag when the session becomes
// authenticated. Nothing is re-sent.
func (c *Controller) SessionChanged(authenticated bool) {
	if authenticated && c.state.QuotaExceeded {
		c.Reset()
	}
}

// Close drops any result still in flight.
func (c *Controller) Close() {
	c.closed = true
}

func (c *Controller) complete(query string, out golden.SearchOutcome) {
	if c.closed {
		return
	}
	next, notice := Transition(c.state, out, c.opts.Messages)
	c.state = next

	switch out.Kind {
	case golden.OutcomeQuotaExceeded:
		c.opts.Log.QuotaExceeded(c.opts.ViewID, next.Error)
	case golden.OutcomeFailure:
		c.opts.Log.Warn("golden search failed", slog.String("query", query), slog.String("reason", out.Message))
	}
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(query, out)
	}
	c.notify(notice)
	c.changed()
}

func (c *Controller) notify(n Notice) {
	if c.opts.Notifier != nil && n.Message != "" {
		c.opts.Notifier.Notify(n.Kind, n.Message)
	}
}

func (c *Controller) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
