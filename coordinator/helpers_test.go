package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/loopctl/loopctl/loop"
)

// newTestLoop starts a Loop on its own goroutine and registers cleanup,
// mirroring the pattern the teacher's own test suite uses for each case
// that needs a live event loop rather than a bare struct.
func newTestLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

// runOnLoop submits fn to l and blocks until it has run, satisfying
// Manager's "registration methods must be called from l's goroutine"
// contract from ordinary test code.
func runOnLoop(t *testing.T, l *loop.Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	if err := l.Submit(func() {
		defer close(done)
		fn()
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runOnLoop: task never ran")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition never became true")
		case <-time.After(time.Millisecond):
		}
	}
}

// fakeEmitter is a minimal [Emitter] test double (it has no Once method, so
// it is not an [OnceEmitter]) that also dispatches events synchronously and
// counts Off calls per event name, so listener tests can assert on
// emitter-call counts the way spec scenarios describe.
type fakeEmitter struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[string]map[ListenerID]EventHandler
	offCalls  map[string]int
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		listeners: make(map[string]map[ListenerID]EventHandler),
		offCalls:  make(map[string]int),
	}
}

func (e *fakeEmitter) On(event string, h EventHandler) (ListenerID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[ListenerID]EventHandler)
	}
	e.listeners[event][id] = h
	return id, nil
}

func (e *fakeEmitter) Off(event string, id ListenerID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners[event], id)
	e.offCalls[event]++
	return nil
}

func (e *fakeEmitter) OffCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offCalls[event]
}

func (e *fakeEmitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Dispatch invokes every handler registered for event, in a stable
// snapshot, so a handler that removes listeners mid-dispatch (as the dnd
// teardown does) never mutates the slice being iterated.
func (e *fakeEmitter) Dispatch(event string, owner any, args ...any) {
	e.mu.Lock()
	handlers := make([]EventHandler, 0, len(e.listeners[event]))
	for _, h := range e.listeners[event] {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(owner, args...)
	}
}

// fakeRequest is a minimal [RequestHandle] test double: Then captures the
// reactions, settle/fail trigger them, and Abort records every reason it
// was called with.
type fakeRequest struct {
	mu       sync.Mutex
	resolve  func(any)
	reject   func(error)
	aborted  []any
}

func newFakeRequest() *fakeRequest { return &fakeRequest{} }

func (r *fakeRequest) Then(onResolve func(any), onReject func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve = onResolve
	r.reject = onReject
}

func (r *fakeRequest) Abort(reason any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = append(r.aborted, reason)
	return nil
}

func (r *fakeRequest) AbortedWith() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any{}, r.aborted...)
}

func (r *fakeRequest) settle(v any) {
	r.mu.Lock()
	fn := r.resolve
	r.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

func (r *fakeRequest) fail(err error) {
	r.mu.Lock()
	fn := r.reject
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
