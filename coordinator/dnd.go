package coordinator

// DragAndDrop is the composite listener recipe from spec.md §4.3's `dnd`
// row: it registers a persistent `mousedown`/`touchstart` listener on doc,
// and each time it fires, installs a fresh `mousemove`/`touchmove` +
// `mouseup`/`touchend` listener set (grouped under a freshly generated
// [Label] so they can be torn down together), removing them automatically
// the moment the drag session ends.
func (m *Manager) DragAndDrop(doc Emitter, opts ...DnDOption) (uint64, error) {
	start := func(owner any, _ ...any) {
		session := NewLabel("dnd-session")

		m.On(doc, "mousemove touchmove", func(any, ...any) {}, WithGroup(session))

		m.Once(doc, "mouseup touchend", func(any, ...any) {
			m.Off(ClearAsyncOptions{Group: session})
		}, WithGroup(session))
	}

	cfg := resolveTaskConfig(opts)
	startOpts := append(append([]TaskOption{}, opts...), WithGroup(firstNonNil(cfg.group, kindDnD)))

	ids, err := m.On(doc, "mousedown touchstart", start, startOpts...)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func firstNonNil(a, b any) any {
	if a != nil {
		return a
	}
	return b
}
