package mainloop

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) (*Loop, func()) {
	t.Helper()
	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	return l, func() {
		cancel()
		<-done
	}
}

func TestLoopRunsCallbacksInOrder(t *testing.T) {
	l, stop := newTestLoop(t)
	defer stop()

	var (
		mu  sync.Mutex
		got []int
	)
	finished := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(finished)
			}
		})
	}

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopPostFromCallback(t *testing.T) {
	l, stop := newTestLoop(t)
	defer stop()

	finished := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(finished) })
	})

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("nested post did not run")
	}
}

func TestLoopSurvivesPanickingCallback(t *testing.T) {
	l, stop := newTestLoop(t)
	defer stop()

	finished := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(finished) })

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestLoopCloseDrainsAndDropsLatePosts(t *testing.T) {
	l := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ran := 0
	l.Post(func() { ran++ })
	l.Post(func() { ran++ })
	l.Close()
	l.Post(func() { ran++ })

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, 2, ran)
}
