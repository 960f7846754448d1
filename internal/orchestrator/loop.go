package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/willothy/overseer/internal/logging"
)

// Loop runs posted functions one at a time, in post order. Post must not
// block and must not run fn before returning.
type Loop interface {
	Post(fn func())
}

// EventLoop is a Loop backed by an unbounded FIFO queue drained by Run.
type EventLoop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running bool
	logger  *logging.Logger
}

// NewEventLoop creates an idle event loop. Call Run to start draining it.
func NewEventLoop(logger *logging.Logger) *EventLoop {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &EventLoop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post queues fn. Functions posted before Run starts run once it does.
func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done. Only one Run may be active.
func (l *EventLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("event loop already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *EventLoop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.safeCall(fn)
	}
}

func (l *EventLoop) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop callback panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Call posts fn and waits for it to run. It returns ctx.Err() if ctx is
// done first; fn may still run later in that case.
func (l *EventLoop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued functions.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
