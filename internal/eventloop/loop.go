// Package eventloop provides the serial executor that owns a view's state.
// Closures posted to a Loop run one at a time, in posting order, on a single
// goroutine. Network calls and timers run elsewhere and Post their results
// back, so state owned by the loop never needs a lock.
package eventloop

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"casametrix_front/platform/logger"
)

// Loop is a FIFO serial executor.
type Loop struct {
	log *logger.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New starts a loop goroutine.
func New(log *logger.Logger) *Loop {
	if log == nil {
		log = logger.NewDiscard()
	}
	l := &Loop{log: log, done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post enqueues fn. It reports false when the loop is already closed, in
// which case fn never runs.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, fn)
	l.cond.Signal()
	return true
}

// Call posts fn and waits for it to finish. It reports false without
// running fn when the loop is closed. Calling it from the loop goroutine
// deadlocks.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		// Close raced with the call; the closure may still have run.
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Close stops accepting work, drops closures not yet started and waits for
// the running closure to return. Safe to call more than once.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.queue = nil
		l.cond.Signal()
	}
	l.mu.Unlock()
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("event loop task panicked",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
