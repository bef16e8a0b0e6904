package coordinator

import (
	"sync"
	"testing"
)

// Bulk clear ordering: ClearAll tears down listeners, then the timer
// family, then worker/request/proxy, regardless of registration order.
func TestClearAll_OrdersListenersThenTimersThenWorkers(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	e := newFakeEmitter()

	var mu sync.Mutex
	var order []string
	record := func(name string) func(CancelContext) {
		return func(CancelContext) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	runOnLoop(t, l, func() {
		// Registered in the reverse of the expected teardown order, so a
		// pass would only happen if ClearAll enforced its own ordering.
		m.Worker(&fakeCloser{}, WithOnClear(record("worker")))
		m.SetInterval(func(any) {}, 10_000, WithOnClear(record("timer")))
		m.On(e, "click", func(any, ...any) {}, WithOnClear(record("listener")))
	})

	runOnLoop(t, l, func() {
		if err := m.ClearAll(); err != nil {
			t.Fatalf("ClearAll: %v", err)
		}
	})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 onClear hooks, got %d: %v", len(order), order)
	}
	if order[0] != "listener" {
		t.Fatalf("expected listener to clear first, got %v", order)
	}
	if order[1] != "timer" {
		t.Fatalf("expected the timer family to clear before workers, got %v", order)
	}
	if order[2] != "worker" {
		t.Fatalf("expected worker to clear last, got %v", order)
	}
}

func TestClearAll_RestrictedByLabel(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	var keptRan, droppedCleared bool
	runOnLoop(t, l, func() {
		m.SetTimeout(func(any) { keptRan = true }, 50_000, WithLabel("keep"))
		m.SetTimeout(func(any) {}, 50_000, WithLabel("drop"), WithOnClear(func(CancelContext) { droppedCleared = true }))
	})

	runOnLoop(t, l, func() {
		if err := m.ClearAll(WithClearLabel("drop")); err != nil {
			t.Fatalf("ClearAll: %v", err)
		}
	})

	if !droppedCleared {
		t.Fatal("expected the matching label's registration to be cleared")
	}

	cache := m.reg.object(kindTimeout)
	if n := cache.root.links.len(); n != 1 {
		t.Fatalf("expected the non-matching label's registration to survive, got %d live", n)
	}
	_ = keptRan
}
