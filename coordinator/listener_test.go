package coordinator

import (
	"testing"
)

// Scenario 3: on(emitter, "a b c", h, {group: "G"}) registers three Links
// (groups "a"/"b"/"c" absent - the caller forced "G" - so all three live
// under group "G"); off({group: "G"}) removes all three and calls the
// emitter's remove function three times.
func TestOn_SpaceSeparatedEventsForcedGroup(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	e := newFakeEmitter()

	var ids []uint64
	var err error

	runOnLoop(t, l, func() {
		ids, err = m.On(e, "a b c", func(any, ...any) {}, WithGroup("G"))
	})
	if err != nil {
		t.Fatalf("On: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	cache := m.reg.object(kindEventListener)
	lc := cache.scope("G")
	if got := lc.links.len(); got != 3 {
		t.Fatalf("expected 3 links grouped under G, got %d", got)
	}
	if _, hasRootA := cache.root.links.get(ids[0]); hasRootA {
		t.Fatal("link incorrectly landed in root instead of the forced group")
	}

	runOnLoop(t, l, func() {
		if err := m.Off(ClearAsyncOptions{Group: "G"}); err != nil {
			t.Errorf("Off: %v", err)
		}
	})

	if got := lc.links.len(); got != 0 {
		t.Fatalf("expected every grouped link removed, got %d", got)
	}
	if n := e.OffCount("a") + e.OffCount("b") + e.OffCount("c"); n != 3 {
		t.Fatalf("expected the emitter's Off to be called 3 times, got %d", n)
	}
}

func TestOn_DispatchInvokesHandler(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	e := newFakeEmitter()

	calls := make(chan any, 4)
	runOnLoop(t, l, func() {
		m.On(e, "click", func(owner any, args ...any) { calls <- owner })
	})

	e.Dispatch("click", "owner-value")
	select {
	case v := <-calls:
		if v != "owner-value" {
			t.Fatalf("expected owner-value, got %v", v)
		}
	default:
		t.Fatal("handler was never invoked")
	}
}

// Once without a native OnceEmitter self-removes after the first dispatch.
func TestOnce_SelfRemovesAfterFirstDispatch(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	e := newFakeEmitter()

	calls := 0
	runOnLoop(t, l, func() {
		m.Once(e, "load", func(any, ...any) { calls++ })
	})

	e.Dispatch("load", nil)
	e.Dispatch("load", nil)

	if calls != 1 {
		t.Fatalf("expected exactly one dispatch to reach the handler, got %d", calls)
	}
	if n := e.ListenerCount("load"); n != 0 {
		t.Fatalf("expected the once-listener to self-remove, got %d still registered", n)
	}
}

func TestOff_UnknownIDIsNoop(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	runOnLoop(t, l, func() {
		if err := m.Off(ClearAsyncOptions{ID: 99999, HasID: true}); err != nil {
			t.Fatalf("Off on an unknown id should be a no-op, got %v", err)
		}
	})
}
