package coordinator

// clearAllOrder is spec.md §4.2's fixed cross-kind teardown order:
// listeners first (so their unsubscriptions run before timers they may
// depend on), then the timer family, then worker/request/proxy.
var clearAllOrder = [][]kind{
	{kindEventListener, kindDnD},
	{kindImmediate, kindTimeout, kindInterval, kindAnimationFrame, kindIdleCallback},
	{kindWorker, kindRequest, kindProxy},
}

// ClearAll fans out clearAsync across every kind in clearAllOrder,
// optionally restricted to a label and/or group (group may be a
// *regexp.Regexp, matching many groups at once).
func (m *Manager) ClearAll(opts ...ClearAllOption) error {
	cfg := resolveClearAllConfig(opts)

	var firstErr error
	for _, bucket := range clearAllOrder {
		for _, k := range bucket {
			if err := m.clearAllForKind(k, cfg); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) clearAllForKind(k kind, cfg *clearAllConfig) error {
	opts := ClearAsyncOptions{Kind: k, Label: cfg.label, Group: cfg.group, Reason: cfg.reason}

	if cfg.label != nil || cfg.group != nil {
		return m.ClearAsync(opts)
	}

	cache := m.reg.object(k)
	var firstErr error
	if err := m.clearFromCache(cache.root, opts); err != nil {
		firstErr = err
	}
	for _, lc := range cache.groups {
		if err := m.clearFromCache(lc, opts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
