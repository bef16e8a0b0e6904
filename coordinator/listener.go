package coordinator

import (
	"sort"
	"strings"
	"sync"
)

// ListenerID identifies one registration with an [Emitter]. Go function
// values cannot be compared, so every Emitter hands one back instead of
// relying on identity, mirroring the teacher's own EventTarget.
type ListenerID uint64

// Emitter is the Go shape listener adapters accept in place of duck-typed
// addEventListener/removeEventListener. Implementations decide internally
// which event names they recognize.
type Emitter interface {
	On(event string, h EventHandler) (ListenerID, error)
	Off(event string, id ListenerID) error
}

// OnceEmitter is an optional refinement an [Emitter] may also satisfy: when
// it does, [Manager.Once] uses the Emitter's own once-semantics instead of
// the coordinator's self-removing wrapper.
type OnceEmitter interface {
	Once(event string, h EventHandler) (ListenerID, error)
}

// DOMEmitter is a ready-to-use [Emitter]/[OnceEmitter] grounded on the
// teacher's EventTarget: one map of event name to listener entries, safe
// for concurrent Dispatch/On/Off even though the coordinator itself only
// ever calls it from the loop goroutine.
type DOMEmitter struct {
	mu        sync.Mutex
	listeners map[string]map[ListenerID]domListenerEntry
	nextID    ListenerID
}

type domListenerEntry struct {
	handler EventHandler
	once    bool
}

// NewDOMEmitter returns an empty [DOMEmitter].
func NewDOMEmitter() *DOMEmitter {
	return &DOMEmitter{listeners: make(map[string]map[ListenerID]domListenerEntry)}
}

func (d *DOMEmitter) addListener(event string, h EventHandler, once bool) (ListenerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	if d.listeners[event] == nil {
		d.listeners[event] = make(map[ListenerID]domListenerEntry)
	}
	d.listeners[event][id] = domListenerEntry{handler: h, once: once}
	return id, nil
}

// On registers h for event, returning an id usable with [DOMEmitter.Off].
func (d *DOMEmitter) On(event string, h EventHandler) (ListenerID, error) {
	return d.addListener(event, h, false)
}

// Once registers h to fire at most once for event.
func (d *DOMEmitter) Once(event string, h EventHandler) (ListenerID, error) {
	return d.addListener(event, h, true)
}

// Off removes the listener registered under id for event.
func (d *DOMEmitter) Off(event string, id ListenerID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners[event], id)
	return nil
}

// Dispatch calls every listener registered for event, in registration
// order. Once-listeners are removed before any handler of this dispatch runs.
func (d *DOMEmitter) Dispatch(event string, owner any, args ...any) {
	d.mu.Lock()
	entries := d.listeners[event]
	ids := make([]ListenerID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fire := make([]domListenerEntry, 0, len(ids))
	for _, id := range ids {
		fire = append(fire, entries[id])
	}
	var expired []ListenerID
	for i, id := range ids {
		if fire[i].once {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(entries, id)
	}
	d.mu.Unlock()

	for _, entry := range fire {
		entry.handler(owner, args...)
	}
}

// on is the shared implementation of [Manager.On] and [Manager.Once]:
// split space-separated event names (spec.md §4.3's ordering rule) and
// register one independent Link per name.
func (m *Manager) on(e Emitter, events string, h EventHandler, opts []ListenOption, forceSingle bool) ([]uint64, error) {
	cfg := resolveTaskConfig(opts)
	single := cfg.single || forceSingle

	names := strings.Fields(events)
	ids := make([]uint64, 0, len(names))
	var firstErr error
	for _, name := range names {
		id, err := m.addListener(e, name, h, cfg, single)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, id)
	}
	return ids, firstErr
}

func (m *Manager) addListener(e Emitter, event string, h EventHandler, cfg *taskConfig, single bool) (uint64, error) {
	group := cfg.group
	if group == nil {
		group = event
	}

	var listenerID ListenerID
	reg := &registration{
		kind:     kindEventListener,
		label:    cfg.label,
		group:    group,
		join:     cfg.join,
		owner:    cfg.owner,
		onClear:  cfg.onClear,
		interval: !single,
		objName:  event,
		destroy:  func(uint64, CancelContext) error { return e.Off(event, listenerID) },
	}

	link, merged := m.setAsync(reg)
	if merged {
		return link.ID, nil
	}

	var usedNativeOnce bool

	wrapped := func(owner any, args ...any) {
		if single {
			if link.removed {
				return
			}
			m.completeLink(kindEventListener, group, link)
			if !usedNativeOnce {
				e.Off(event, listenerID)
			}
			h(owner, args...)
			link.fireComplete(append([]any{owner}, args...)...)
			return
		}
		h(owner, args...)
	}

	var id ListenerID
	var err error
	if single {
		if oe, ok := e.(OnceEmitter); ok {
			usedNativeOnce = true
			id, err = oe.Once(event, wrapped)
		} else {
			id, err = e.On(event, wrapped)
		}
	} else {
		id, err = e.On(event, wrapped)
	}
	if err != nil {
		m.clearLink(link, m.reg.object(kindEventListener).scope(group), CancelContext{Reason: err})
		return 0, err
	}

	listenerID = id
	link.Obj = h
	return link.ID, nil
}

// On registers h to run every time any of events (space-separated) fires
// on e, returning one Link id per event name.
func (m *Manager) On(e Emitter, events string, h EventHandler, opts ...ListenOption) ([]uint64, error) {
	return m.on(e, events, h, opts, false)
}

// Once registers h to run at most once per event name in events; it is
// [Manager.On] with [WithSingle] forced on, using e's native Once when e
// satisfies [OnceEmitter].
func (m *Manager) Once(e Emitter, events string, h EventHandler, opts ...ListenOption) ([]uint64, error) {
	return m.on(e, events, h, opts, true)
}

// Off clears listener Links matching opts; opts.Kind is always overridden
// to the listener kind, so callers need only supply ID, Label, or Group.
func (m *Manager) Off(opts ClearAsyncOptions) error {
	opts.Kind = kindEventListener
	return m.ClearAsync(opts)
}
