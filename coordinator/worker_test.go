package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorker_ClearTerminatesGoroutine(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	started := make(chan struct{})
	w := NewGoroutineWorker(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})

	var id uint64
	runOnLoop(t, l, func() {
		var err error
		id, err = m.Worker(w)
		if err != nil {
			t.Fatalf("Worker: %v", err)
		}
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker goroutine never started")
	}

	runOnLoop(t, l, func() {
		if err := m.ClearWorker(id); err != nil {
			t.Fatalf("ClearWorker: %v", err)
		}
	})

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("worker goroutine never terminated")
	}
}

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error { f.closed = true; return nil }

func TestDestroyWorker_FallsBackToCloser(t *testing.T) {
	c := &fakeCloser{}
	if err := destroyWorker(c); err != nil {
		t.Fatalf("destroyWorker: %v", err)
	}
	if !c.closed {
		t.Fatal("expected Close to have been called")
	}
}

func TestDestroyWorker_NoShapeIsConfigurationError(t *testing.T) {
	var cfgErr *ConfigurationError
	if err := destroyWorker(struct{}{}); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
