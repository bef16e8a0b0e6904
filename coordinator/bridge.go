package coordinator

import (
	"time"

	"github.com/loopctl/loopctl/loop"
)

// maxReplacementDepth caps how many consecutive join="replace" cascades a
// promise bridge will forward across before giving up and rejecting,
// preventing a runaway chain under a replacement storm.
const maxReplacementDepth = 25

// bridgeOnClear returns an onClear hook implementing spec.md §4.4's
// replacement semantics: a bridged task cleared with a replacedBy
// successor forwards its (resolve, reject) pair onto that successor,
// instead of rejecting immediately; a plain clear (no successor, or the
// cascade wasn't a join="replace") rejects with a [CancelledError].
func (m *Manager) bridgeOnClear(resolve func(any), reject func(error)) func(CancelContext) {
	return func(ctx CancelContext) { m.forwardOrReject(ctx, resolve, reject, 0) }
}

func (m *Manager) forwardOrReject(ctx CancelContext, resolve func(any), reject func(error), depth int) {
	if ctx.ReplacedBy == nil {
		reject(&CancelledError{Context: ctx})
		return
	}
	if depth >= maxReplacementDepth {
		reject(&ReplacementOverflowError{Depth: depth})
		return
	}

	successor := ctx.ReplacedBy
	successor.onCompleteHook(func(args ...any) {
		if len(args) > 0 {
			resolve(args[0])
		} else {
			resolve(nil)
		}
	})
	successor.onClearHook(func(succCtx CancelContext) {
		m.forwardOrReject(succCtx, resolve, reject, depth+1)
	})
}

// Sleep returns a promise that resolves after ms elapses, the promise-bridge
// form of [Manager.SetTimeout].
func (m *Manager) Sleep(ms int, opts ...TaskOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:  kindTimeout,
		label: cfg.label,
		group: cfg.group,
		join:  cfg.join,
		owner: cfg.owner,
		onClear: append(append([]func(CancelContext){}, cfg.onClear...),
			m.bridgeOnClear(resolve, reject)),
		onMerge: func(prior *Link) { prior.onCompleteHook(func(args ...any) { resolve(firstOrNil(args)) }) },
	}
	m.startTimeout(reg, time.Duration(ms)*time.Millisecond, func(owner any) { resolve(owner) }, reject)
	return p
}

// NextTick returns a promise that resolves on the next loop tick, the
// promise-bridge form of [Manager.SetImmediate].
func (m *Manager) NextTick(opts ...TaskOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:  kindImmediate,
		label: cfg.label,
		group: cfg.group,
		join:  cfg.join,
		owner: cfg.owner,
		onClear: append(append([]func(CancelContext){}, cfg.onClear...),
			m.bridgeOnClear(resolve, reject)),
		onMerge: func(prior *Link) { prior.onCompleteHook(func(args ...any) { resolve(firstOrNil(args)) }) },
	}
	m.startImmediate(reg, func(owner any) { resolve(owner) }, reject)
	return p
}

// AnimationFrame returns a promise that resolves on the next
// animation-frame batch, the promise-bridge form of
// [Manager.RequestAnimationFrame].
func (m *Manager) AnimationFrame(opts ...TaskOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:  kindAnimationFrame,
		label: cfg.label,
		group: cfg.group,
		join:  cfg.join,
		owner: cfg.owner,
		onClear: append(append([]func(CancelContext){}, cfg.onClear...),
			m.bridgeOnClear(resolve, reject)),
		onMerge: func(prior *Link) { prior.onCompleteHook(func(args ...any) { resolve(firstOrNil(args)) }) },
	}
	m.startAnimationFrame(reg, func(owner any) { resolve(owner) })
	return p
}

// Idle returns a promise that resolves once the loop reaches an idle point
// or opts' timeout elapses, the promise-bridge form of
// [Manager.RequestIdleCallback].
func (m *Manager) Idle(opts ...IdleOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:  kindIdleCallback,
		label: cfg.label,
		group: cfg.group,
		join:  cfg.join,
		owner: cfg.owner,
		onClear: append(append([]func(CancelContext){}, cfg.onClear...),
			m.bridgeOnClear(resolve, reject)),
		onMerge: func(prior *Link) { prior.onCompleteHook(func(args ...any) { resolve(firstOrNil(args)) }) },
	}
	m.startIdleCallback(reg, cfg.timeout, func(owner any, deadline IdleDeadline) { resolve(deadline) })
	return p
}

// Promise registers an existing promise with the Manager's registry so it
// participates in labeled dedup/grouping and bulk clear, returning a new
// promise that settles the same way, and whose rejection (if cleared) uses
// the usual cancel-context/replacement forwarding rules instead of p's own.
func (m *Manager) Promise(p *loop.ChainedPromise, opts ...TaskOption) *loop.ChainedPromise {
	cfg := resolveTaskConfig(opts)
	next, resolve, reject := m.loop.NewPromise()

	reg := &registration{
		kind:  kindProxy,
		label: cfg.label,
		group: cfg.group,
		join:  cfg.join,
		owner: cfg.owner,
		onClear: append(append([]func(CancelContext){}, cfg.onClear...),
			m.bridgeOnClear(resolve, reject)),
		obj:     p,
		onMerge: func(prior *Link) { prior.onCompleteHook(func(args ...any) { resolve(firstOrNil(args)) }) },
	}
	link, merged := m.setAsync(reg)
	if merged {
		return next
	}

	k, group := kindProxy, cfg.group
	p.Then(
		func(v any) (any, error) {
			m.completeLink(k, group, link)
			resolve(v)
			link.fireComplete(v)
			return nil, nil
		},
		func(err error) (any, error) {
			m.completeLink(k, group, link)
			reject(err)
			return nil, nil
		},
	)
	return next
}

// PromisifyOnce returns a promise that resolves with the first dispatch of
// events on e, the promise-bridge form of a single-shot [Manager.Once].
func (m *Manager) PromisifyOnce(e Emitter, events string, opts ...ListenOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	handlerOpts := append(append([]TaskOption{}, opts...), WithOnClear(m.bridgeOnClear(resolve, reject)))
	_, err := m.Once(e, events, func(owner any, args ...any) {
		resolve(firstOrOwner(owner, args))
	}, handlerOpts...)
	if err != nil {
		reject(err)
	}
	return p
}

// Wait returns a promise that resolves once predicate() reports true,
// polled every [WithPollInterval] (default 15ms, [WithDefaultPollInterval]
// overrides the Manager-wide default). Clearing the returned promise's
// underlying registration rejects it.
func (m *Manager) Wait(predicate func() bool, opts ...WaitOption) *loop.ChainedPromise {
	p, resolve, reject := m.loop.NewPromise()
	cfg := resolveTaskConfig(opts)
	interval := cfg.interval
	if interval <= 0 {
		interval = m.waitInterval
	}

	var id uint64
	var err error
	id, err = m.SetInterval(func(owner any) {
		if predicate() {
			resolve(owner)
			m.ClearInterval(id)
		}
	}, int(interval/time.Millisecond),
		append(append([]TaskOption{}, opts...), WithOnClear(func(ctx CancelContext) {
			reject(&CancelledError{Context: ctx})
		}))...,
	)
	if err != nil {
		reject(err)
	}
	return p
}

func firstOrNil(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func firstOrOwner(owner any, args []any) any {
	if len(args) > 0 {
		return args[0]
	}
	return owner
}
