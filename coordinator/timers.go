package coordinator

import (
	"time"

	"github.com/loopctl/loopctl/loop"
)

// fireSingleShot implements spec.md §4.1 step 4 for non-interval kinds: the
// Link is removed from the registry before the payload runs, so a
// same-label re-registration inside the callback sees an empty slot.
func (m *Manager) fireSingleShot(k kind, group any, link *Link, fn OwnerFunc, owner any) {
	if link.removed {
		return
	}
	m.completeLink(k, group, link)
	fn(owner)
	link.fireComplete(owner)
}

// startImmediate installs reg (kind must be kindImmediate) and submits fn
// to the loop's external queue. Shared by [Manager.SetImmediate] and
// [Manager.NextTick] so the promise-bridge form reuses the exact same
// scheduling and merge semantics.
func (m *Manager) startImmediate(reg *registration, fn OwnerFunc, reject func(error)) (uint64, error) {
	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	k, group := reg.kind, reg.group
	if err := m.loop.Submit(func() {
		m.fireSingleShot(k, group, link, fn, reg.owner)
	}); err != nil {
		m.clearLink(link, m.reg.object(k).scope(group), CancelContext{Reason: err})
		if reject != nil {
			reject(err)
		}
		return 0, err
	}
	return link.ID, nil
}

// startTimeout installs reg (kind must be kindTimeout) and arms a one-shot
// timer for delay. Shared by [Manager.SetTimeout] and [Manager.Sleep].
func (m *Manager) startTimeout(reg *registration, delay time.Duration, fn OwnerFunc, reject func(error)) (uint64, error) {
	var timerID loop.TimerID
	reg.destroy = func(uint64, CancelContext) error { return m.loop.CancelTimer(timerID) }

	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	k, group := reg.kind, reg.group
	id, err := m.loop.ScheduleTimer(delay, func() {
		m.fireSingleShot(k, group, link, fn, reg.owner)
	})
	if err != nil {
		m.clearLink(link, m.reg.object(k).scope(group), CancelContext{Reason: err})
		if reject != nil {
			reject(err)
		}
		return 0, err
	}
	timerID = id
	return link.ID, nil
}

// SetImmediate schedules fn to run on the next loop tick.
func (m *Manager) SetImmediate(fn OwnerFunc, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:    kindImmediate,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     fn,
	}
	return m.startImmediate(reg, fn, nil)
}

// SetTimeout schedules fn to run once, after delayMs has elapsed.
func (m *Manager) SetTimeout(fn OwnerFunc, delayMs int, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:    kindTimeout,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     fn,
	}
	return m.startTimeout(reg, time.Duration(delayMs)*time.Millisecond, fn, nil)
}

// SetInterval schedules fn to run repeatedly, every delayMs, until cleared.
// Interval-like tasks never self-remove on callback fire.
func (m *Manager) SetInterval(fn OwnerFunc, delayMs int, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)

	var timerID loop.TimerID
	reg := &registration{
		kind:     kindInterval,
		label:    cfg.label,
		group:    cfg.group,
		join:     cfg.join,
		owner:    cfg.owner,
		onClear:  cfg.onClear,
		obj:      fn,
		interval: true,
		destroy:  func(uint64, CancelContext) error { return m.loop.CancelTimer(timerID) },
	}
	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	delay := time.Duration(delayMs) * time.Millisecond
	var armErr error
	var arm func()
	arm = func() {
		id, err := m.loop.ScheduleTimer(delay, func() {
			if link.removed {
				return
			}
			fn(cfg.owner)
			arm()
		})
		if err != nil {
			armErr = err
			return
		}
		timerID = id
	}
	arm()
	if armErr != nil {
		m.clearLink(link, m.reg.object(kindInterval).scope(cfg.group), CancelContext{Reason: armErr})
		return 0, armErr
	}
	return link.ID, nil
}

// ClearImmediate cancels a pending immediate registered via SetImmediate.
func (m *Manager) ClearImmediate(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindImmediate, ID: id, HasID: true})
}

// ClearTimeout cancels a pending timeout registered via SetTimeout.
func (m *Manager) ClearTimeout(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindTimeout, ID: id, HasID: true})
}

// ClearInterval cancels a running interval registered via SetInterval.
func (m *Manager) ClearInterval(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindInterval, ID: id, HasID: true})
}
