package autocomplete

import (
	"context"
	"log/slog"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/logger"

	"golang.org/x/time/rate"
)

// State is what the view renders for the suggestion box.
type State struct {
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
}

// Options configures a Controller.
type Options struct {
	Provider Provider
	Debounce time.Duration
	MinChars int
	Limit    int
	// RPS caps outgoing calls per controller. Zero disables the cap.
	RPS      float64
	Clock    clock.Clock
	Post     func(func()) bool
	Notifier toast.Notifier
	Messages *messages.Catalog
	OnChange func()
	Log      *logger.Logger
}

// Controller owns the suggestion state of one view. Every method must be
// called on the owning event loop.
type Controller struct {
	opts    Options
	limiter *rate.Limiter

	baseCtx    context.Context
	baseCancel context.CancelFunc

	state   State
	timer   clock.Timer
	cancel  context.CancelFunc
	current context.Context
	closed  bool
}

// NewController creates an idle controller.
func NewController(opts Options) *Controller {
	if opts.MinChars <= 0 {
		opts.MinChars = 3
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Post == nil {
		opts.Post = func(f func()) bool { f(); return true }
	}
	if opts.Log == nil {
		opts.Log = logger.NewDiscard()
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:       opts,
		limiter:    rate.NewLimiter(limit, 1),
		baseCtx:    ctx,
		baseCancel: cancel,
		state:      State{Suggestions: []Suggestion{}},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Suggestions = append([]Suggestion(nil), c.state.Suggestions...)
	return s
}

// Suggestion returns the suggestion at index in the current list.
func (c *Controller) Suggestion(index int) (Suggestion, bool) {
	if index < 0 || index >= len(c.state.Suggestions) {
		return Suggestion{}, false
	}
	return c.state.Suggestions[index], true
}

// SetQuery records a new input value. Any pending or in-flight request is
// cancelled. Queries shorter than MinChars clear suggestions and error
// without touching the network; longer ones are fetched after the debounce
// delay.
func (c *Controller) SetQuery(query string) {
	if c.closed {
		return
	}
	c.supersede()
	c.state.Query = query
	c.state.Loading = false

	normalized := Normalize(query)
	if Length(normalized) < c.opts.MinChars {
		c.state.Suggestions = []Suggestion{}
		c.state.Error = ""
		c.state.Loading = false
		c.changed()
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.current, c.cancel = ctx, cancel
	c.timer = c.opts.Clock.AfterFunc(c.opts.Debounce, func() {
		c.opts.Post(func() { c.fire(ctx, normalized) })
	})
	c.changed()
}

// Close cancels everything outstanding. Late completions are dropped.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.supersede()
	c.baseCancel()
}

func (c *Controller) supersede() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.current = nil
	}
}

func (c *Controller) fire(ctx context.Context, query string) {
	if ctx.Err() != nil {
		return
	}
	c.timer = nil
	c.state.Loading = true
	c.state.Error = ""
	c.changed()

	go func() {
		var (
			list []Suggestion
			err  error
		)
		if err = c.limiter.Wait(ctx); err == nil {
			list, err = c.opts.Provider.Suggest(ctx, query, c.opts.Limit)
		}
		c.opts.Post(func() { c.complete(ctx, query, list, err) })
	}()
}

func (c *Controller) complete(ctx context.Context, query string, list []Suggestion, err error) {
	// A cancelled context means a newer query or Close took over; the
	// result belongs to nobody.
	if ctx.Err() != nil || ctx != c.current {
		return
	}
	c.cancel()
	c.cancel, c.current = nil, nil
	c.state.Loading = false

	if err != nil {
		if apiclient.IsCanceled(err) {
			c.opts.Log.Debug("autocomplete request cancelled", slog.String("query", query))
			c.changed()
			return
		}
		c.opts.Log.Warn("autocomplete failed", slog.String("query", query), slog.String("error", err.Error()))
		msg := c.opts.Messages.Get(messages.AutocompleteFailed)
		c.state.Suggestions = []Suggestion{}
		c.state.Error = msg
		if c.opts.Notifier != nil {
			c.opts.Notifier.Notify(toast.KindError, msg)
		}
		c.changed()
		return
	}

	if list == nil {
		list = []Suggestion{}
	}
	c.state.Suggestions = list
	c.state.Error = ""
	c.changed()
}

func (c *Controller) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
