package loop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

var loopIDCounter atomic.Uint64

// Loop is a single-goroutine cooperative scheduler providing timers,
// microtasks, and a promise bridge for off-loop work ([Loop.Promisify]).
//
// Task priority within a tick, matching the teacher's ordering:
//  1. Expired timers (earliest deadline first)
//  2. Internal queue tasks ([Loop.SubmitInternal])
//  3. External queue tasks ([Loop.Submit])
//  4. Microtasks, drained after every task when [WithStrictMicrotaskOrdering]
//     is set, otherwise once per tick.
type Loop struct {
	id uint64

	state      *atomicState
	external   *taskQueue
	internal   *taskQueue
	microtasks *taskQueue
	timers     *timerSet

	logger                  *logiface.Logger[logiface.Event]
	strictMicrotaskOrdering bool

	idleMu    sync.Mutex
	idleHooks []func()

	wake        chan struct{}
	wakePending atomic.Bool

	loopDone      chan struct{}
	stopOnce      sync.Once
	loopGoroutine atomic.Uint64

	promisifyMu sync.Mutex
	promisifyWg sync.WaitGroup
	inflight    atomic.Int64

	tickAnchor  time.Time
	tickElapsed atomic.Int64
}

// New creates a [Loop] in [StateAwake]. Call [Loop.Run] to start it.
func New(opts ...Option) *Loop {
	c := resolveOptions(opts)
	return &Loop{
		id:                      loopIDCounter.Add(1),
		state:                   newAtomicState(),
		external:                newTaskQueue(),
		internal:                newTaskQueue(),
		microtasks:              newTaskQueue(),
		timers:                  newTimerSet(),
		logger:                  c.logger,
		strictMicrotaskOrdering: c.strictMicrotaskOrdering,
		wake:                    make(chan struct{}, 1),
		loopDone:                make(chan struct{}),
	}
}

// ID returns a process-unique identifier for this loop, useful for log correlation.
func (l *Loop) ID() uint64 { return l.id }

// State returns the current loop state.
func (l *Loop) State() State { return l.state.Load() }

// Run starts the loop and blocks until it terminates via [Loop.Shutdown],
// [Loop.Close], or ctx cancellation. Run from its own goroutine to use the
// loop concurrently with the rest of the program.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopGoroutine() {
		return ErrReentrantRun
	}
	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.Load() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	defer close(l.loopDone)

	l.tickAnchor = time.Now()
	l.tickElapsed.Store(0)

	return l.run(ctx)
}

func (l *Loop) run(ctx context.Context) error {
	l.loopGoroutine.Store(getGoroutineID())
	defer l.loopGoroutine.Store(0)

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.requestWake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	var runErr error
	for {
		if ctx.Err() != nil && l.state.Load() != StateTerminating && l.state.Load() != StateTerminated {
			l.beginTerminating()
			runErr = ctx.Err()
		}
		if l.state.Load() == StateTerminating {
			l.drainForShutdown()
			l.state.Store(StateTerminated)
			return runErr
		}

		l.tick()
		l.sleepUntilWork(ctx)
	}
}

// tick runs one full pass: timers, internal queue, external queue, then microtasks.
func (l *Loop) tick() {
	l.tickElapsed.Store(int64(time.Since(l.tickAnchor)))

	now := l.CurrentTickTime()
	for _, e := range l.timers.popExpired(now) {
		l.safeExecute(e.task)
		if l.strictMicrotaskOrdering {
			l.drainMicrotasks()
		}
	}

	for _, t := range l.internal.drain() {
		l.safeExecute(t)
		if l.strictMicrotaskOrdering {
			l.drainMicrotasks()
		}
	}

	for _, t := range l.external.drain() {
		l.safeExecute(t)
		if l.strictMicrotaskOrdering {
			l.drainMicrotasks()
		}
	}

	l.drainMicrotasks()

	if l.isIdle() {
		l.fireIdleHooks()
		l.drainMicrotasks()
	}
}

func (l *Loop) isIdle() bool {
	return l.external.len() == 0 && l.internal.len() == 0
}

func (l *Loop) fireIdleHooks() {
	l.idleMu.Lock()
	hooks := l.idleHooks
	l.idleHooks = nil
	l.idleMu.Unlock()
	for _, fn := range hooks {
		l.safeExecute(fn)
	}
}

// OnIdle registers fn to run once, the next time the loop has drained its
// external and internal queues and is otherwise about to block. It is the
// primitive the coordinator's idleCallback adapter is built on; direct
// callers should prefer a coordinator Manager instead.
func (l *Loop) OnIdle(fn func()) {
	if fn == nil {
		return
	}
	l.idleMu.Lock()
	l.idleHooks = append(l.idleHooks, fn)
	l.idleMu.Unlock()
}

// sleepUntilWork blocks until there is a timer to fire, a task to run, or
// ctx is done, then returns so the caller can tick again.
func (l *Loop) sleepUntilWork(ctx context.Context) {
	if l.external.len() > 0 || l.internal.len() > 0 || l.microtasks.len() > 0 {
		return
	}

	if !l.state.TryTransition(StateRunning, StateSleeping) {
		return
	}
	defer l.state.TryTransition(StateSleeping, StateRunning)

	var timerC <-chan time.Time
	if when, ok := l.timers.nextDeadline(); ok {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-l.wake:
		l.wakePending.Store(false)
	case <-timerC:
	case <-ctx.Done():
	}
}

func (l *Loop) requestWake() {
	if l.wakePending.CompareAndSwap(false, true) {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
}

func (l *Loop) beginTerminating() {
	for {
		cur := l.state.Load()
		if cur == StateTerminating || cur == StateTerminated {
			return
		}
		if cur == StateAwake {
			// Run has not started, so nothing will drain the queues or close
			// loopDone: terminate outright.
			if l.state.TryTransition(StateAwake, StateTerminated) {
				close(l.loopDone)
				return
			}
			continue
		}
		if l.state.TryTransition(cur, StateTerminating) {
			l.requestWake()
			return
		}
	}
}

// drainForShutdown runs every remaining queued task (but not new timers)
// so Shutdown callers observe a clean, fully-drained loop.
func (l *Loop) drainForShutdown() {
	done := make(chan struct{})
	go func() {
		l.promisifyWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
	}

	for {
		drained := false
		for _, t := range l.internal.drain() {
			l.safeExecute(t)
			drained = true
		}
		for _, t := range l.external.drain() {
			l.safeExecute(t)
			drained = true
		}
		for _, t := range l.microtasks.drain() {
			l.safeExecute(t)
			drained = true
		}
		if !drained && l.inflight.Load() == 0 {
			break
		}
		runtime.Gosched()
	}
}

// Shutdown gracefully stops the loop: already-queued work runs to
// completion before termination. It blocks until the loop has stopped or
// ctx expires. A loop that was never Run terminates at once and its queued
// tasks do not run.
func (l *Loop) Shutdown(ctx context.Context) error {
	var result error
	l.stopOnce.Do(func() {
		l.beginTerminating()
		select {
		case <-l.loopDone:
		case <-ctx.Done():
			result = ctx.Err()
		}
	})
	return result
}

// Close immediately requests termination without waiting. Use [Loop.Shutdown]
// to block for completion.
func (l *Loop) Close() error {
	l.beginTerminating()
	return nil
}

// Submit queues a task on the external queue. Safe to call from any goroutine.
func (l *Loop) Submit(task func()) error {
	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	l.external.push(task)
	l.requestWake()
	return nil
}

// SubmitInternal queues a task on the internal (priority) queue, processed
// before the external queue within a tick. Safe to call from any goroutine.
func (l *Loop) SubmitInternal(task func()) error {
	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	l.internal.push(task)
	l.requestWake()
	return nil
}

// ScheduleMicrotask queues fn on the microtask queue, drained after every
// task when [WithStrictMicrotaskOrdering] is set, otherwise at the end of
// the current tick. Safe to call from any goroutine; it wakes a sleeping loop.
func (l *Loop) ScheduleMicrotask(fn func()) error {
	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}
	l.microtasks.push(fn)
	l.requestWake()
	return nil
}

func (l *Loop) drainMicrotasks() {
	for {
		tasks := l.microtasks.drain()
		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			l.safeExecute(fn)
		}
	}
}

// ScheduleTimer arranges for fn to run once, after delay has elapsed, on
// the loop goroutine. The returned [TimerID] may be passed to
// [Loop.CancelTimer] to cancel it before it fires.
//
// Called from the loop goroutine itself (e.g. from a coordinator Manager's
// own adapters), this installs the timer synchronously; called from any
// other goroutine, it hands the work to the internal queue and blocks for
// the result, since the timer heap is otherwise touched only by the loop.
func (l *Loop) ScheduleTimer(delay time.Duration, fn func()) (TimerID, error) {
	if l.state.Load() == StateTerminated {
		return 0, ErrLoopTerminated
	}

	if l.isLoopGoroutine() {
		when := l.CurrentTickTime().Add(delay)
		return l.timers.schedule(when, fn), nil
	}

	idCh := make(chan TimerID, 1)
	err := l.SubmitInternal(func() {
		when := l.CurrentTickTime().Add(delay)
		idCh <- l.timers.schedule(when, fn)
	})
	if err != nil {
		return 0, err
	}
	return <-idCh, nil
}

// CancelTimer cancels a pending timer scheduled via [Loop.ScheduleTimer].
// Returns [ErrTimerNotFound] if id is unknown or already fired.
func (l *Loop) CancelTimer(id TimerID) error {
	if id == 0 {
		return ErrTimerNotFound
	}

	if l.isLoopGoroutine() {
		if l.timers.cancel(id) {
			return nil
		}
		return ErrTimerNotFound
	}

	errCh := make(chan error, 1)
	err := l.SubmitInternal(func() {
		if l.timers.cancel(id) {
			errCh <- nil
		} else {
			errCh <- ErrTimerNotFound
		}
	})
	if err != nil {
		return err
	}
	return <-errCh
}

// CurrentTickTime returns the monotonic time recorded at the start of the
// current tick, stable for the duration of the tick even if callbacks take
// a while to run.
func (l *Loop) CurrentTickTime() time.Time {
	if l.tickAnchor.IsZero() {
		return time.Now()
	}
	return l.tickAnchor.Add(time.Duration(l.tickElapsed.Load()))
}

// safeExecute runs fn, recovering and logging any panic rather than
// crashing the loop goroutine.
func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logPanic(r)
		}
	}()
	fn()
}

func (l *Loop) logPanic(r any) {
	if b := l.logger.Err(); b.Enabled() {
		b.Any(`panic`, r).Uint64(`loopID`, l.id).Log(`task panicked`)
	}
}

func (l *Loop) isLoopGoroutine() bool {
	id := l.loopGoroutine.Load()
	return id != 0 && id == getGoroutineID()
}

// getGoroutineID extracts the numeric goroutine id from the runtime stack
// trace header, used by isLoopGoroutine to detect reentrant Run calls and
// to take the synchronous ScheduleTimer/CancelTimer path.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
