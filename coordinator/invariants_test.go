package coordinator

import "testing"

// Destruction exactly once: clearing an already-cleared Link, by any route,
// never re-runs its destructor or its onClear hooks.
func TestClearLink_DestroysExactlyOnce(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	var destroyCalls, clearCalls int
	var id uint64

	runOnLoop(t, l, func() {
		var err error
		id, err = m.SetTimeout(func(any) {}, 50_000,
			WithLabel("once-only"),
			WithOnClear(func(CancelContext) { clearCalls++ }),
		)
		if err != nil {
			t.Fatalf("SetTimeout: %v", err)
		}
	})

	cache := m.reg.object(kindTimeout)
	link, ok := cache.root.links.get(id)
	if !ok {
		t.Fatal("expected the timeout's link to be registered")
	}
	originalDestroy := link.destroy
	link.destroy = func(id uint64, ctx CancelContext) error {
		destroyCalls++
		return originalDestroy(id, ctx)
	}

	runOnLoop(t, l, func() {
		if err := m.ClearTimeout(id); err != nil {
			t.Fatalf("first ClearTimeout: %v", err)
		}
		if err := m.ClearTimeout(id); err != nil {
			t.Fatalf("second ClearTimeout: %v", err)
		}
		if err := m.ClearAsync(ClearAsyncOptions{Kind: kindTimeout, Label: "once-only"}); err != nil {
			t.Fatalf("ClearAsync by label: %v", err)
		}
	})

	if destroyCalls != 1 {
		t.Fatalf("expected the destructor to run exactly once, ran %d times", destroyCalls)
	}
	if clearCalls != 1 {
		t.Fatalf("expected onClear to run exactly once, ran %d times", clearCalls)
	}
}
