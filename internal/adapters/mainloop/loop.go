// Package mainloop provides the serial callback context request
// completions are delivered on.
package mainloop

import (
	"context"
	"log/slog"
	"sync"
)

// Loop runs posted functions one at a time, in FIFO order, on the
// goroutine that called Run. Post never blocks, so callbacks may post
// further callbacks.
type Loop struct {
	log *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
}

func New(log *slog.Logger) *Loop {
	return &Loop{
		log:  log,
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn. After Close it is a no-op.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.log.Debug("mainloop: post after close dropped")
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes callbacks until ctx is done, or until Close was called
// and everything posted before it has run.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.run(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Close stops accepting callbacks; Run drains what is queued and returns.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("mainloop: callback panicked", "panic", r)
		}
	}()
	fn()
}
