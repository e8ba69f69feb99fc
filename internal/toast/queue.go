// Package toast implements the ordered, self-expiring notification queue a
// view shows to its user.
package toast

import (
	"time"

	"casametrix_front/internal/clock"
	"casametrix_front/platform/metrics"
)

// Kind is the visual category of a toast.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Toast is one transient message. IDs increase monotonically per queue.
type Toast struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is what components use to report user-facing events.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Options configures a Queue.
type Options struct {
	// TTL is how long a toast lives before removing itself.
	TTL time.Duration
	// MaxDepth evicts the oldest toast once exceeded. Zero means unbounded.
	MaxDepth int
	Clock    clock.Clock
	// Post runs a closure on the goroutine that owns the queue. Expiry
	// timers use it to get back onto that goroutine.
	Post func(func()) bool
	// OnChange is called after every mutation.
	OnChange func()
	Metrics  *metrics.Collector
}

type entry struct {
	toast Toast
	timer clock.Timer
}

// Queue is not safe for concurrent use; it belongs to one event loop.
type Queue struct {
	opts    Options
	nextID  int64
	entries []entry
	closed  bool
}

// NewQueue creates an empty queue.
func NewQueue(opts Options) *Queue {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Post == nil {
		opts.Post = func(f func()) bool { f(); return true }
	}
	return &Queue{opts: opts}
}

// Notify implements Notifier.
func (q *Queue) Notify(kind Kind, message string) {
	q.Push(kind, message)
}

// Push appends a toast and starts its expiry timer.
func (q *Queue) Push(kind Kind, message string) Toast {
	q.nextID++
	t := Toast{ID: q.nextID, Kind: kind, Message: message, CreatedAt: q.opts.Clock.Now()}
	if q.closed {
		return t
	}

	id := t.ID
	timer := q.opts.Clock.AfterFunc(q.opts.TTL, func() {
		q.opts.Post(func() { q.expire(id) })
	})
	q.entries = append(q.entries, entry{toast: t, timer: timer})

	if q.opts.MaxDepth > 0 {
		for len(q.entries) > q.opts.MaxDepth {
			q.entries[0].timer.Stop()
			q.entries = q.entries[1:]
		}
	}

	q.opts.Metrics.ToastShown(string(kind))
	q.changed()
	return t
}

// Dismiss removes id and cancels its timer. Removing an unknown or already
// removed id is a no-op that reports false.
func (q *Queue) Dismiss(id int64) bool {
	i := q.indexOf(id)
	if i < 0 {
		return false
	}
	q.entries[i].timer.Stop()
	q.removeAt(i)
	q.changed()
	return true
}

// List returns the live toasts in insertion order.
func (q *Queue) List() []Toast {
	out := make([]Toast, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.toast
	}
	return out
}

// Len returns the number of live toasts.
func (q *Queue) Len() int { return len(q.entries) }

// Close cancels every pending timer and empties the queue.
func (q *Queue) Close() {
	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.closed = true
}

func (q *Queue) expire(id int64) {
	i := q.indexOf(id)
	if i < 0 {
		return
	}
	q.removeAt(i)
	q.changed()
}

func (q *Queue) indexOf(id int64) int {
	for i, e := range q.entries {
		if e.toast.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) removeAt(i int) {
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
}

func (q *Queue) changed() {
	if q.opts.OnChange != nil {
		q.opts.OnChange()
	}
}

var _ Notifier = (*Queue)(nil)
