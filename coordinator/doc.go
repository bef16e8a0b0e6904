// Package coordinator implements an owner-scoped async task manager on top
// of [loop.Loop]: a single registry unifying timers, animation frames, idle
// callbacks, workers, requests, proxies and event listeners behind one
// bookkeeping layer.
//
// Every registration method accepts an optional label and group. At most
// one live task exists per (kind, group, label); a second registration
// under the same label is reconciled according to its join policy (replace
// the default, merge with join=true, or supersede-and-forward with
// join="replace"). [Manager.ClearAll] and its per-kind siblings provide
// bulk and targeted cancellation; every cancellation path runs the task's
// onClear hooks exactly once and invokes the primitive's destructor.
//
// A Manager is not safe for concurrent use from multiple goroutines: its
// registry is touched only from the bound [loop.Loop]'s goroutine, the same
// restriction the loop itself places on its own queues. Use
// [loop.Loop.Submit] to get onto that goroutine from elsewhere.
//
//	l := loop.New()
//	go l.Run(ctx)
//	m := coordinator.NewManager(l)
//	l.Submit(func() {
//	    m.SetTimeout(func(owner any) {
//	        fmt.Println("fired")
//	    }, 100, coordinator.WithLabel("greet"))
//	})
package coordinator
