package geolocation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"casametrix_front/internal/clock"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/toast"
	"casametrix_front/platform/logger"
)

// Status is the acquirer's state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// State is the render state of the locate button. Position survives a
// failed re-request.
type State struct {
	Status   Status     `json:"status"`
	Position *geo.Point `json:"position,omitempty"`
	Reason   Reason     `json:"reason,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Options configures an Acquirer.
type Options struct {
	// Timeout is the deadline of each request, 10s when zero.
	Timeout  time.Duration
	Clock    clock.Clock
	Post     func(func()) bool
	Notifier toast.Notifier
	Messages *messages.Catalog
	OnChange func()
	Log      *logger.Logger
}

var errTimedOut = errors.New("geolocation timed out")

// Acquirer must be used from its owning event loop.
type Acquirer struct {
	opts   Options
	state  State
	reqID  uint64
	timer  clock.Timer
	cancel context.CancelCauseFunc
	closed bool
}

// NewAcquirer creates an idle acquirer.
func NewAcquirer(opts Options) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
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
	return &Acquirer{opts: opts, state: State{Status: StatusIdle}}
}

// State returns a copy of the current state.
func (a *Acquirer) State() State {
	s := a.state
	if a.state.Position != nil {
		p := *a.state.Position
		s.Position = &p
	}
	return s
}

// Request starts an acquisition through loc. It is ignored while another
// request is pending and reports whether one was started. A nil loc means
// the capability is missing.
func (a *Acquirer) Request(loc Locator) bool {
	if a.closed || a.state.Status == StatusPending {
		return false
	}
	a.reqID++
	id := a.reqID

	if loc == nil {
		a.fail(Fail(ReasonUnsupported, nil))
		return false
	}

	a.state.Status = StatusPending
	a.state.Reason = ""
	a.state.Error = ""
	a.changed()

	ctx, cancel := context.WithCancelCause(context.Background())
	a.cancel = cancel
	a.timer = a.opts.Clock.AfterFunc(a.opts.Timeout, func() {
		cancel(errTimedOut)
		a.opts.Post(func() { a.complete(id, geo.Point{}, Fail(ReasonTimeout, errTimedOut)) })
	})
	go func() {
		p, err := loc.Locate(ctx)
		if err == nil && !p.Valid() {
			err = Fail(ReasonUnavailable, errors.New("invalid coordinates"))
		}
		if err != nil && errors.Is(context.Cause(ctx), errTimedOut) {
			err = Fail(ReasonTimeout, err)
		}
		a.opts.Post(func() { a.complete(id, p, err) })
	}()
	return true
}

// Close stops the timeout timer and drops any pending result.
func (a *Acquirer) Close() {
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	if a.cancel != nil {
		a.cancel(context.Canceled)
	}
}

func (a *Acquirer) complete(id uint64, p geo.Point, err error) {
	if a.closed || id != a.reqID || a.state.Status != StatusPending {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel(context.Canceled)
		a.cancel = nil
	}

	if err != nil {
		a.fail(err)
		return
	}

	a.state.Status = StatusResolved
	a.state.Position = &p
	a.state.Reason = ""
	a.state.Error = ""
	a.notify(toast.KindSuccess, a.opts.Messages.Get(messages.GeolocationFound))
	a.changed()
}

func (a *Acquirer) fail(err error) {
	reason := ReasonOf(err)
	msg := a.opts.Messages.Get(messageKey(reason))
	a.opts.Log.Info("geolocation failed", slog.String("reason", string(reason)), slog.String("error", err.Error()))

	// Position is deliberately left untouched.
	a.state.Status = StatusFailed
	a.state.Reason = reason
	a.state.Error = msg
	a.notify(toast.KindError, msg)
	a.changed()
}

// ReasonOf classifies err.
func ReasonOf(err error) Reason {
	var le *LocateError
	switch {
	case errors.As(err, &le):
		return le.Reason
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonUnexpected
	}
}

func messageKey(r Reason) string {
	switch r {
	case ReasonPermissionDenied:
		return messages.GeolocationPermissionDenied
	case ReasonUnavailable:
		return messages.GeolocationUnavailable
	case ReasonTimeout:
		return messages.GeolocationTimeout
	case ReasonUnsupported:
		return messages.GeolocationUnsupported
	default:
		return messages.GeolocationUnexpected
	}
}

func (a *Acquirer) notify(kind toast.Kind, msg string) {
	if a.opts.Notifier != nil {
		a.opts.Notifier.Notify(kind, msg)
	}
}

func (a *Acquirer) changed() {
	if a.opts.OnChange != nil {
		a.opts.OnChange()
	}
}
