package coordinator

import "testing"

// Scenario 5: request(req, {label: "r", join: "replace"}) followed
// immediately by the same with a new req2: the first req.abort is called
// with the successor's id as the reason; the first promise bridge
// resolves with req2's value.
func TestRequest_JoinReplaceAbortsPriorAndForwards(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)

	req1 := newFakeRequest()
	req2 := newFakeRequest()

	var id2 uint64
	settled := make(chan any, 1)

	runOnLoop(t, l, func() {
		p, resolve, reject := l.NewPromise()
		reg := &registration{
			kind:    kindRequest,
			label:   "r",
			join:    JoinReplace,
			onClear: []func(CancelContext){m.bridgeOnClear(resolve, reject)},
		}
		reg.destroy = func(id uint64, ctx CancelContext) error {
			var reason any = ctx.Reason
			if ctx.ReplacedBy != nil {
				reason = ctx.ReplacedBy.ID
			}
			return req1.Abort(reason)
		}
		link1, _ := m.setAsync(reg)
		req1.Then(
			func(v any) { m.fireRequestComplete(kindRequest, nil, link1, v) },
			func(err error) { m.fireRequestComplete(kindRequest, nil, link1, err) },
		)

		var err error
		id2, err = m.Request(req2, WithLabel("r"), WithJoin(JoinReplace))
		if err != nil {
			t.Fatalf("Request: %v", err)
		}

		p.Then(
			func(v any) (any, error) { settled <- v; return nil, nil },
			func(err error) (any, error) { settled <- err; return nil, nil },
		)

		req2.settle("req2-value")
	})

	got := <-settled
	if got != "req2-value" {
		t.Fatalf("expected the replaced bridge to resolve with req2's value, got %v", got)
	}

	aborted := req1.AbortedWith()
	if len(aborted) != 1 {
		t.Fatalf("expected req1.Abort to be called exactly once, got %d", len(aborted))
	}
	if aborted[0] != id2 {
		t.Fatalf("expected req1 aborted with successor id %d, got %v", id2, aborted[0])
	}
}

func TestRequest_NaturalCompletionRemovesLink(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	req := newFakeRequest()

	var id uint64
	runOnLoop(t, l, func() {
		var err error
		id, err = m.Request(req, WithLabel("solo"))
		if err != nil {
			t.Fatalf("Request: %v", err)
		}
	})

	runOnLoop(t, l, func() { req.settle("done") })

	cache := m.reg.object(kindRequest)
	if _, ok := cache.root.links.get(id); ok {
		t.Fatal("expected the completed request's link to be removed")
	}
}

func TestClearRequest_AbortsWithoutReplacement(t *testing.T) {
	l := newTestLoop(t)
	m := NewManager(l)
	req := newFakeRequest()

	var id uint64
	runOnLoop(t, l, func() {
		var err error
		id, err = m.Request(req, WithLabel("cancel-me"))
		if err != nil {
			t.Fatalf("Request: %v", err)
		}
	})

	runOnLoop(t, l, func() {
		if err := m.ClearRequest(id); err != nil {
			t.Fatalf("ClearRequest: %v", err)
		}
	})

	aborted := req.AbortedWith()
	if len(aborted) != 1 || aborted[0] != nil {
		t.Fatalf("expected a plain abort with nil reason, got %v", aborted)
	}
}
