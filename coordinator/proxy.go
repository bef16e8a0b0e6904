package coordinator

// Proxy registers fn as an identity-wrapped callback: no start action, no
// destructor. Clearing it simply removes the registry entry, so a caller
// holding the id learns (via [Manager.CallProxy]) that invoking it further
// is now inert, matching spec.md §4.3's "callback simply becomes inert".
func (m *Manager) Proxy(fn OwnerFunc, opts ...TaskOption) (uint64, error) {
	cfg := resolveTaskConfig(opts)
	reg := &registration{
		kind:    kindProxy,
		label:   cfg.label,
		group:   cfg.group,
		join:    cfg.join,
		owner:   cfg.owner,
		onClear: cfg.onClear,
		obj:     fn,
	}
	link, _ := m.setAsync(reg)
	return link.ID, nil
}

// ClearProxy removes the proxy registered under id, making it inert.
func (m *Manager) ClearProxy(id uint64) error {
	return m.ClearAsync(ClearAsyncOptions{Kind: kindProxy, ID: id, HasID: true})
}

// CallProxy invokes the proxy registered under id with owner. It is a
// no-op if id has already been cleared or never existed.
func (m *Manager) CallProxy(id uint64, owner any) {
	cache := m.reg.object(kindProxy)
	_, link := cache.findScopeByID(id)
	if link == nil {
		return
	}
	if fn, ok := link.Obj.(OwnerFunc); ok {
		fn(owner)
	}
}
