package coordinator

import "regexp"

// registration is the generic descriptor [Manager] adapters build and hand
// to setAsync: the tagged variant spec.md's design notes describe in place
// of per-kind subclasses.
type registration struct {
	kind    kind
	label   any
	group   any
	join    JoinPolicy
	owner   any
	onClear []func(CancelContext)

	// interval marks kinds that never self-remove on callback fire.
	interval bool

	obj     any
	objName string

	// destroy is the kind's destructor, called as destroy(id, ctx) when
	// the Link is cleared. nil for kinds with no teardown (proxy).
	destroy func(id uint64, ctx CancelContext) error

	// onMerge, if set, runs when this registration's label already has a
	// live holder and join=JoinMerge: it lets a promise bridge attach its
	// resolve function onto the incumbent's onComplete, since the new
	// payload itself is otherwise simply discarded.
	onMerge func(prior *Link)
}

// setAsync implements spec.md §4.1: resolve the (kind, group) scope,
// reconcile against any prior label holder per the join policy, install
// the new Link, then perform any deferred cascade clear.
//
// It returns the installed (or, for join=merge, the incumbent) Link, and
// whether that Link was a pre-existing merge target rather than freshly
// created.
func (m *Manager) setAsync(reg *registration) (*Link, bool) {
	cache := m.reg.object(reg.kind)
	lc := cache.scope(reg.group)

	var cascadePrior *Link
	if reg.label != nil {
		if priorID, ok := lc.labels[reg.label]; ok {
			if prior, ok2 := lc.links.get(priorID); ok2 {
				if reg.join == JoinMerge {
					for _, fn := range reg.onClear {
						prior.onClearHook(fn)
					}
					if reg.onMerge != nil {
						reg.onMerge(prior)
					}
					return prior, true
				}
				cascadePrior = prior
			}
		}
	}

	id := m.allocID()
	link := newLink(id, reg.kind, reg.obj, reg.owner)
	link.ObjName = reg.objName
	link.Label = reg.label
	link.Group = reg.group
	link.interval = reg.interval
	link.destroy = reg.destroy
	for _, fn := range reg.onClear {
		link.onClearHook(fn)
	}

	lc.links.set(link)
	if reg.label != nil {
		lc.labels[reg.label] = id
	}

	if b := m.logger.Debug(); b.Enabled() {
		b.Str(`kind`, string(reg.kind)).Uint64(`id`, id).Log(`registered`)
	}

	if cascadePrior != nil {
		ctx := CancelContext{Type: ClearAsync}
		if reg.join == JoinReplace {
			ctx.ReplacedBy = link
			cascadePrior.replacedBy = link
		}
		if b := m.logger.Debug(); b.Enabled() {
			b.Str(`kind`, string(reg.kind)).Uint64(`id`, cascadePrior.ID).Uint64(`replacedBy`, id).
				Log(`cascade-clearing prior label holder`)
		}
		m.clearLink(cascadePrior, lc, ctx)
	}

	return link, false
}

// clearLink removes link from lc, runs its onClear hooks, then its
// destructor, matching §4.2's ordering. It is idempotent: clearing an
// already-cleared Link is a no-op.
func (m *Manager) clearLink(link *Link, lc *localCache, ctx CancelContext) error {
	if link.removed {
		return nil
	}
	link.removed = true

	lc.links.delete(link.ID)
	if link.Label != nil {
		if cur, ok := lc.labels[link.Label]; ok && cur == link.ID {
			delete(lc.labels, link.Label)
		}
	}

	ctx.Link = link
	if ctx.Type == "" {
		ctx.Type = ClearAsync
	}

	clearErr := link.fireClear(ctx)

	var destroyErr error
	if link.destroy != nil {
		destroyErr = link.destroy(link.ID, ctx)
	}

	if clearErr != nil {
		m.logger.Err().Str(`kind`, string(link.Kind)).Uint64(`id`, link.ID).Log(`onClear hook failed`)
	}
	if destroyErr != nil {
		m.logger.Warning().Str(`kind`, string(link.Kind)).Uint64(`id`, link.ID).Log(`destructor failed`)
	}

	if clearErr != nil {
		return clearErr
	}
	return destroyErr
}

// completeLink removes a single-shot link's registry entry (label and id)
// without running onClear or the destructor — spec.md §4.1 step 4's
// "removes the Link from links and nulls labels[label] before running the
// user payload" rule, which applies to natural completion, not cancellation.
func (m *Manager) completeLink(k kind, group any, link *Link) {
	if link.removed {
		return
	}
	link.removed = true
	lc := m.reg.object(k).scope(group)
	lc.links.delete(link.ID)
	if link.Label != nil {
		if cur, ok := lc.labels[link.Label]; ok && cur == link.ID {
			delete(lc.labels, link.Label)
		}
	}
}

// ClearAsync implements spec.md §4.2's clearAsync: resolve the target
// Link(s) by id, label, or group (a concrete key or a *regexp.Regexp
// matching many groups), and clear each.
func (m *Manager) ClearAsync(opts ClearAsyncOptions) error {
	cache := m.reg.object(opts.Kind)

	if pattern, ok := opts.Group.(*regexp.Regexp); ok {
		var firstErr error
		for key, lc := range cache.groups {
			name, ok := key.(string)
			if !ok || !pattern.MatchString(name) {
				continue
			}
			if err := m.clearFromCache(lc, opts); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if opts.Group == nil && opts.Label == nil && opts.HasID {
		// ids are allocated globally by the Manager, so a bare-id clear
		// (ClearTimeout, ClearWorker, ...) has no group to scope to —
		// search every scope for this kind instead of assuming root.
		lc, link := cache.findScopeByID(opts.ID)
		if lc == nil {
			return nil
		}
		return m.clearLink(link, lc, CancelContext{Type: ClearAsync, Reason: opts.Reason})
	}

	lc := cache.scope(opts.Group)
	return m.clearFromCache(lc, opts)
}

func (m *Manager) clearFromCache(lc *localCache, opts ClearAsyncOptions) error {
	ctx := CancelContext{Type: ClearAsync, Reason: opts.Reason}

	switch {
	case opts.Label != nil:
		id, ok := lc.labels[opts.Label]
		if !ok {
			return nil
		}
		if opts.HasID && opts.ID != id {
			// Guards against clearing a successor by stale id.
			return nil
		}
		link, ok := lc.links.get(id)
		if !ok {
			return nil
		}
		return m.clearLink(link, lc, ctx)

	case opts.HasID:
		link, ok := lc.links.get(opts.ID)
		if !ok {
			return nil
		}
		return m.clearLink(link, lc, ctx)

	default:
		var firstErr error
		for _, link := range lc.links.snapshot() {
			if err := m.clearLink(link, lc, ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
}

// ClearAllAsync clears the root LocalCache then every group, for a single kind.
func (m *Manager) ClearAllAsync(k kind) error {
	cache := m.reg.object(k)

	var firstErr error
	if err := m.clearFromCache(cache.root, ClearAsyncOptions{Kind: k}); err != nil {
		firstErr = err
	}
	for _, lc := range cache.groups {
		if err := m.clearFromCache(lc, ClearAsyncOptions{Kind: k}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
