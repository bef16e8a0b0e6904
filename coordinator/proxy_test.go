package coordinator

import "testing"

func TestProxy_CallProxyInvokesAndClearMakesItInert(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	var calls int
	var id uint64
	runOnLoop(t, l, func() {
		var err error
		id, err = m.Proxy(func(owner any) { calls++ })
		if err != nil {
			t.Fatalf("Proxy: %v", err)
		}
		m.CallProxy(id, nil)
	})

	if calls != 1 {
		t.Fatalf("expected one call before clearing, got %d", calls)
	}

	runOnLoop(t, l, func() {
		if err := m.ClearProxy(id); err != nil {
			t.Fatalf("ClearProxy: %v", err)
		}
		m.CallProxy(id, nil)
	})

	if calls != 1 {
		t.Fatalf("expected CallProxy on a cleared id to be a no-op, got %d calls", calls)
	}
}
