package coordinator

// Link is the in-registry record for one live task: identity, owner,
// label, and the ordered hooks run on completion or cancellation.
type Link struct {
	ID      uint64
	Kind    kind
	Obj     any
	ObjName string
	Owner   any
	Label   any
	Group   any

	// interval marks kinds that never self-remove on callback fire
	// (setInterval, worker lifetime, persistent listeners).
	interval bool

	onComplete []func(args ...any)
	onClear    []func(CancelContext)

	// destroy is the kind-specific destructor, invoked with this Link's ID
	// and the cancel context. Left nil for kinds with no teardown (proxy).
	destroy func(id uint64, ctx CancelContext) error

	// replacedBy is set when this Link is cleared as the cascade of a
	// join="replace" successor, so the promise bridge can forward onto it.
	replacedBy *Link

	removed bool
}

func newLink(id uint64, k kind, obj any, owner any) *Link {
	return &Link{ID: id, Kind: k, Obj: obj, Owner: owner}
}

// onCompleteHook appends a completion continuation, run in registration
// order when the wrapped payload finishes naturally.
func (l *Link) onCompleteHook(fn func(args ...any)) {
	if fn != nil {
		l.onComplete = append(l.onComplete, fn)
	}
}

// onClearHook appends a cancel hook, run at most once, in registration
// order, if the task is cleared before natural completion.
func (l *Link) onClearHook(fn func(CancelContext)) {
	if fn != nil {
		l.onClear = append(l.onClear, fn)
	}
}

func (l *Link) fireComplete(args ...any) {
	hooks := l.onComplete
	l.onComplete = nil
	for _, fn := range hooks {
		fn(args...)
	}
}

// fireClear runs every onClear hook, collecting panics as errors so a
// failing hook never prevents the rest from running, then returns the
// first error observed (nil if none).
func (l *Link) fireClear(ctx CancelContext) (firstErr error) {
	hooks := l.onClear
	l.onClear = nil
	for _, fn := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if firstErr == nil {
						if err, ok := r.(error); ok {
							firstErr = err
						} else {
							firstErr = &ConfigurationError{Kind: l.Kind, Message: "onClear hook panicked"}
						}
					}
				}
			}()
			fn(ctx)
		}()
	}
	return firstErr
}

// orderedLinks preserves insertion order alongside O(1) lookup by id, so
// bulk clears iterate a deterministic snapshot.
type orderedLinks struct {
	order []uint64
	byID  map[uint64]*Link
}

func newOrderedLinks() *orderedLinks {
	return &orderedLinks{byID: make(map[uint64]*Link)}
}

func (o *orderedLinks) set(l *Link) {
	if _, exists := o.byID[l.ID]; !exists {
		o.order = append(o.order, l.ID)
	}
	o.byID[l.ID] = l
}

func (o *orderedLinks) get(id uint64) (*Link, bool) {
	l, ok := o.byID[id]
	return l, ok
}

func (o *orderedLinks) delete(id uint64) {
	if _, ok := o.byID[id]; !ok {
		return
	}
	delete(o.byID, id)
	for i, existing := range o.order {
		if existing == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *orderedLinks) len() int { return len(o.byID) }

// snapshot returns every Link in insertion order, safe to iterate while the
// caller mutates the registry (clears, re-registrations) concurrently with
// that iteration — matching §5's "snapshot of insertion order" guarantee.
func (o *orderedLinks) snapshot() []*Link {
	links := make([]*Link, 0, len(o.order))
	for _, id := range o.order {
		if l, ok := o.byID[id]; ok {
			links = append(links, l)
		}
	}
	return links
}

// localCache is one (kind, group) scope: the label index plus the
// insertion-ordered link set.
type localCache struct {
	labels map[any]uint64
	links  *orderedLinks
}

func newLocalCache() *localCache {
	return &localCache{labels: make(map[any]uint64), links: newOrderedLinks()}
}

// cacheObject is the per-kind registry: a default (root) scope plus every
// named group.
type cacheObject struct {
	root   *localCache
	groups map[any]*localCache
}

func newCacheObject() *cacheObject {
	return &cacheObject{root: newLocalCache(), groups: make(map[any]*localCache)}
}

// findScopeByID searches root and every group for id, since ids are
// allocated globally by the Manager and a caller clearing by id alone
// (ClearTimeout, ClearWorker, ...) has no way to name the group a
// grouped registration landed in.
func (c *cacheObject) findScopeByID(id uint64) (*localCache, *Link) {
	if l, ok := c.root.links.get(id); ok {
		return c.root, l
	}
	for _, lc := range c.groups {
		if l, ok := lc.links.get(id); ok {
			return lc, l
		}
	}
	return nil, nil
}

// scope resolves the LocalCache for a group key, creating it on demand. A
// nil group resolves to root.
func (c *cacheObject) scope(group any) *localCache {
	if group == nil {
		return c.root
	}
	lc, ok := c.groups[group]
	if !ok {
		lc = newLocalCache()
		c.groups[group] = lc
	}
	return lc
}

// registry is the full kind -> CacheObject mapping owned by a Manager.
type registry struct {
	kinds map[kind]*cacheObject
}

func newRegistry() *registry {
	return &registry{kinds: make(map[kind]*cacheObject)}
}

func (r *registry) object(k kind) *cacheObject {
	c, ok := r.kinds[k]
	if !ok {
		c = newCacheObject()
		r.kinds[k] = c
	}
	return c
}
