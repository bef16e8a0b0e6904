package coordinator

import (
	"time"

	"github.com/loopctl/loopctl/loop"
)

// frameBatcher batches every pending [Manager.RequestAnimationFrame]
// callback onto one timer, firing them together the way a browser batches
// rAF callbacks per repaint, since there is no compositor here to drive it.
// The timer is armed by the first callback of a batch and is not re-armed
// while no callback is pending.
type frameBatcher struct {
	m       *Manager
	pending map[uint64]func()
	armed   bool
}

func newFrameBatcher(m *Manager) *frameBatcher {
	return &frameBatcher{m: m, pending: make(map[uint64]func())}
}

func (b *frameBatcher) schedule(id uint64, fire func()) {
	b.pending[id] = fire
	if !b.armed {
		b.armed = true
		b.m.loop.ScheduleTimer(b.m.frameInterval, b.tick)
	}
}

func (b *frameBatcher) cancel(id uint64) {
	delete(b.pending, id)
}

func (b *frameBatcher) tick() {
	b.armed = false
	due := b.pending
	b.pending = make(map[uint64]func())
	for _, fire := range due {
		fire()
	}
}

// startAnimationFrame installs reg (kind must be kindAnimationFrame) and
// schedules fn on the next frame batch. Shared by
// [Manager.RequestAnimationFrame] and [Manager.AnimationFrame].
func (m *Manager) startAnimationFrame(reg *registration, fn OwnerFunc) (uint64, error) {
	reg.destroy = func(id uint64, _ CancelContext) error {
		m.frame.cancel(id)
		return nil
	}
	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	k, group := reg.kind, reg.group
	m.frame.schedule(link.ID, func() {
		m.fireSingleShot(k, group, link, fn, reg.owner)
	})
	return link.ID, nil
}

// RequestAnimationFrame registers fn to run on the next animation-frame batch.
func (m *Manager) RequestAnimationFrame(fn OwnerFunc, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:    kindAnimationFrame,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     fn,
	}
	return m.startAnimationFrame(reg, fn)
}

// CancelAnimationFrame cancels a pending animation-frame registration.
func (m *Manager) CancelAnimationFrame(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindAnimationFrame, ID: id, HasID: true})
}

// startIdleCallback installs reg (kind must be kindIdleCallback), arms the
// idle hook plus an optional timeout fallback, and invokes fn on whichever
// fires first. Shared by [Manager.RequestIdleCallback] and [Manager.Idle].
func (m *Manager) startIdleCallback(reg *registration, timeout time.Duration, fn IdleFunc) (uint64, error) {
	var timerID loop.TimerID
	var hasTimer bool
	reg.destroy = func(uint64, CancelContext) error {
		if hasTimer {
			return m.loop.CancelTimer(timerID)
		}
		return nil
	}

	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	k, group := reg.kind, reg.group
	fired := false

	fireOnce := func(deadline IdleDeadline) {
		if fired || link.removed {
			return
		}
		fired = true
		m.completeLink(k, group, link)
		fn(reg.owner, deadline)
		link.fireComplete(reg.owner, deadline)
	}

	m.loop.OnIdle(func() { fireOnce(IdleDeadline{}) })

	if timeout > 0 {
		id, err := m.loop.ScheduleTimer(timeout, func() { fireOnce(IdleDeadline{TimedOut: true}) })
		if err == nil {
			timerID = id
			hasTimer = true
		}
	}

	return link.ID, nil
}

// RequestIdleCallback registers fn to run the next time the bound Loop
// reaches an idle point (external/internal queues drained, about to
// block), or once opts' timeout elapses, whichever comes first.
func (m *Manager) RequestIdleCallback(fn IdleFunc, opts ...IdleOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:    kindIdleCallback,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     fn,
	}
	return m.startIdleCallback(reg, cfg.timeout, fn)
}

// CancelIdleCallback cancels a pending idle-callback registration.
func (m *Manager) CancelIdleCallback(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindIdleCallback, ID: id, HasID: true})
}
