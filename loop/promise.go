package loop

import "sync"

// PromiseState is the lifecycle state of a [ChainedPromise].
type PromiseState int

const (
	// Pending is the initial state; neither Fulfilled nor Rejected.
	Pending PromiseState = iota
	// Fulfilled means the promise settled with a value.
	Fulfilled
	// Rejected means the promise settled with an error.
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// ChainedPromise is a Promise/A+-flavored future bound to a [Loop]: every
// reaction (Then/Catch/Finally callback) runs as a microtask on the loop
// goroutine, never inline with resolve/reject and never on a caller's
// goroutine.
type ChainedPromise struct {
	loop *Loop

	mu        sync.Mutex
	state     PromiseState
	value     any
	err       error
	reactions []func()
}

// NewPromise creates a pending [ChainedPromise] bound to l, plus its
// resolve and reject functions. Calling either after the first call of
// either is a no-op, matching JavaScript promise semantics.
func (l *Loop) NewPromise() (p *ChainedPromise, resolve func(any), reject func(error)) {
	p = &ChainedPromise{loop: l, state: Pending}
	return p, p.settleFulfilled, p.settleRejected
}

// Resolved returns an already-fulfilled promise, useful as a base case in chains.
func (l *Loop) Resolved(value any) *ChainedPromise {
	p := &ChainedPromise{loop: l, state: Fulfilled, value: value}
	return p
}

// Rejected returns an already-rejected promise.
func (l *Loop) Rejected(err error) *ChainedPromise {
	p := &ChainedPromise{loop: l, state: Rejected, err: err}
	return p
}

func (p *ChainedPromise) settleFulfilled(value any) {
	if inner, ok := value.(*ChainedPromise); ok {
		// Resolving with another promise adopts its eventual state,
		// mirroring the spec's promise-bridge forwarding.
		inner.Then(
			func(v any) (any, error) { p.settleFulfilled(v); return nil, nil },
			func(err error) (any, error) { p.settleRejected(err); return nil, nil },
		)
		return
	}
	p.settle(Fulfilled, value, nil)
}

func (p *ChainedPromise) settleRejected(err error) {
	p.settle(Rejected, nil, err)
}

func (p *ChainedPromise) settle(state PromiseState, value any, err error) {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.value = value
	p.err = err
	reactions := p.reactions
	p.reactions = nil
	p.mu.Unlock()

	for _, fn := range reactions {
		p.loop.ScheduleMicrotask(fn)
	}
}

func (p *ChainedPromise) addReaction(fn func()) {
	p.mu.Lock()
	if p.state == Pending {
		p.reactions = append(p.reactions, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.loop.ScheduleMicrotask(fn)
}

// State reports the promise's current settlement state.
func (p *ChainedPromise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Then attaches fulfillment/rejection reactions and returns a new promise
// settled from whichever reaction runs. A nil onRejected simply forwards
// the rejection; a nil onFulfilled forwards the value.
func (p *ChainedPromise) Then(onFulfilled func(any) (any, error), onRejected func(error) (any, error)) *ChainedPromise {
	next, resolve, reject := p.loop.NewPromise()

	p.addReaction(func() {
		p.mu.Lock()
		state, value, err := p.state, p.value, p.err
		p.mu.Unlock()

		switch state {
		case Fulfilled:
			if onFulfilled == nil {
				resolve(value)
				return
			}
			v, e := onFulfilled(value)
			if e != nil {
				reject(e)
				return
			}
			resolve(v)
		case Rejected:
			if onRejected == nil {
				reject(err)
				return
			}
			v, e := onRejected(err)
			if e != nil {
				reject(e)
				return
			}
			resolve(v)
		}
	})

	return next
}

// Catch is sugar for Then(nil, onRejected).
func (p *ChainedPromise) Catch(onRejected func(error) (any, error)) *ChainedPromise {
	return p.Then(nil, onRejected)
}

// Finally attaches fn to run on settlement regardless of outcome, without
// observing or altering the settled value/error.
func (p *ChainedPromise) Finally(fn func()) *ChainedPromise {
	return p.Then(
		func(v any) (any, error) { fn(); return v, nil },
		func(err error) (any, error) { fn(); return nil, err },
	)
}

// Wait blocks the calling goroutine (which must not be the loop goroutine)
// until p settles, returning its value or error.
func (p *ChainedPromise) Wait() (any, error) {
	done := make(chan struct{})
	var value any
	var err error
	p.Then(
		func(v any) (any, error) { value = v; close(done); return nil, nil },
		func(e error) (any, error) { err = e; close(done); return nil, nil },
	)
	<-done
	return value, err
}
