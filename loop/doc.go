// Package loop provides a small, single-goroutine cooperative scheduler:
// timers, microtasks, and Promise/A+ compatible promises, plus a bridge for
// running blocking work on its own goroutine and resolving back onto the
// loop thread ([Loop.Promisify]).
//
// # Architecture
//
// [Loop] is the scheduling core. It runs a single goroutine that drains,
// per tick, expired timers (earliest deadline first), the internal priority
// queue, the external queue (submitted from other goroutines), and the
// microtask queue, in that order. The entry points safe to call from other
// goroutines are [Loop.Submit], [Loop.SubmitInternal],
// [Loop.ScheduleMicrotask], [Loop.ScheduleTimer], [Loop.CancelTimer] and
// [Loop.OnIdle], plus promise resolve/reject and reaction registration.
//
// [Promise] and [ChainedPromise] implement enough of Promise/A+ to support
// then/catch/finally chaining and the combinators [Loop.All], [Loop.Race],
// [Loop.AllSettled], and [Loop.Any]. Resolution always happens via a
// microtask scheduled on the owning Loop, so handlers never run
// synchronously inside Resolve/Reject.
//
// # Usage
//
//	l := loop.New()
//	defer l.Close()
//
//	l.Submit(func() {
//	    l.ScheduleTimer(100*time.Millisecond, func() {
//	        fmt.Println("fired")
//	        l.Close()
//	    })
//	})
//
//	if err := l.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package loop
