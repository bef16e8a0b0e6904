package coordinator

import (
	"context"
	"io"
)

// Worker is the shape accepted by [Manager.Worker]: exposes at least one of
// [Terminator], [Destroyer], or [io.Closer]. It is an alias for any because
// the requirement is checked by type assertion, in that order, not by a
// shared method set — the Go analogue of spec.md's "exposes at least one
// of terminate/destroy/close".
type Worker = any

// Terminator is checked first when destroying a [Worker].
type Terminator interface{ Terminate() error }

// Destroyer is checked second when destroying a [Worker].
type Destroyer interface{ Destroy() error }

func destroyWorker(w Worker) error {
	switch impl := w.(type) {
	case Terminator:
		return impl.Terminate()
	case Destroyer:
		return impl.Destroy()
	case io.Closer:
		return impl.Close()
	default:
		return &ConfigurationError{Kind: kindWorker, Message: "worker exposes none of Terminate/Destroy/Close"}
	}
}

// GoroutineWorker is the natural Go analogue of a Web Worker: it wraps a
// function launched on its own goroutine, and its Terminate cancels the
// context passed to that function and waits for it to return.
type GoroutineWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGoroutineWorker launches fn on a new goroutine and returns a handle
// registrable via [Manager.Worker].
func NewGoroutineWorker(fn func(ctx context.Context)) *GoroutineWorker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &GoroutineWorker{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		fn(ctx)
	}()
	return w
}

// Terminate cancels the worker's context and blocks until its goroutine returns.
func (w *GoroutineWorker) Terminate() error {
	w.cancel()
	<-w.done
	return nil
}

// Worker registers w, a persistent worker that never self-removes on
// callback fire (it is interval-like, per spec.md §4.3's table).
func (m *Manager) Worker(w Worker, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:     kindWorker,
		label:    cfg.label,
		group:    cfg.group,
		join:     cfg.join,
		owner:    cfg.owner,
		onClear:  cfg.onClear,
		interval: true,
		obj:      w,
		destroy:  func(uint64, CancelContext) error { return destroyWorker(w) },
	}
	link, _ := m.setAsync(reg)
	return link.ID, nil
}

// ClearWorker terminates the worker registered under id.
func (m *Manager) ClearWorker(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindWorker, ID: id, HasID: true})
}
