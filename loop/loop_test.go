package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T, l *Loop) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestLoop_SubmitRunsTask(t *testing.T) {
	l := New()
	runLoop(t, l)

	done := make(chan struct{})
	if err := l.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestLoop_InternalRunsBeforeExternal(t *testing.T) {
	l := New()

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	l.Submit(func() { record("external") })
	l.SubmitInternal(func() { record("internal") })

	runLoop(t, l)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("tasks never ran")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "internal" || order[1] != "external" {
		t.Fatalf("expected internal before external, got %v", order)
	}
}

func TestLoop_ScheduleTimerFiresAfterDelay(t *testing.T) {
	l := New()
	runLoop(t, l)

	start := time.Now()
	fired := make(chan time.Time, 1)
	if _, err := l.ScheduleTimer(20*time.Millisecond, func() { fired <- time.Now() }); err != nil {
		t.Fatalf("ScheduleTimer: %v", err)
	}

	select {
	case when := <-fired:
		if when.Sub(start) < 10*time.Millisecond {
			t.Errorf("timer fired too early: %v", when.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLoop_CancelTimerPreventsFiring(t *testing.T) {
	l := New()
	runLoop(t, l)

	fired := make(chan struct{}, 1)
	id, err := l.ScheduleTimer(30*time.Millisecond, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("ScheduleTimer: %v", err)
	}
	if err := l.CancelTimer(id); err != nil {
		t.Fatalf("CancelTimer: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestLoop_CancelTimerUnknownID(t *testing.T) {
	l := New()
	runLoop(t, l)

	require.ErrorIs(t, l.CancelTimer(999), ErrTimerNotFound)
}

// TestLoop_ScheduleTimerFromLoopGoroutine exercises the fast path that
// avoids a self-deadlock when a task already running on the loop goroutine
// (as every coordinator adapter does) schedules another timer.
func TestLoop_ScheduleTimerFromLoopGoroutine(t *testing.T) {
	l := New()
	runLoop(t, l)

	fired := make(chan struct{}, 1)
	submitted := make(chan struct{})
	l.Submit(func() {
		defer close(submitted)
		if _, err := l.ScheduleTimer(5*time.Millisecond, func() { fired <- struct{}{} }); err != nil {
			t.Errorf("nested ScheduleTimer: %v", err)
		}
	})

	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("outer task never completed — nested ScheduleTimer deadlocked")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("nested timer never fired")
	}
}

func TestLoop_OnIdleFiresOnceQueuesDrain(t *testing.T) {
	l := New()
	runLoop(t, l)

	idle := make(chan struct{}, 1)
	l.OnIdle(func() {
		select {
		case idle <- struct{}{}:
		default:
		}
	})
	l.Submit(func() {})

	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("OnIdle never fired")
	}
}

func TestLoop_SubmitAfterTerminatedFails(t *testing.T) {
	l := New()
	runLoop(t, l)
	l.Close()

	deadline := time.After(time.Second)
	for l.State() != StateTerminated {
		select {
		case <-deadline:
			t.Fatal("loop never reached StateTerminated")
		case <-time.After(time.Millisecond):
		}
	}

	require.ErrorIs(t, l.Submit(func() {}), ErrLoopTerminated)
}

func TestLoop_ReentrantRunRejected(t *testing.T) {
	l := New()
	runLoop(t, l)

	errCh := make(chan error, 1)
	l.Submit(func() {
		errCh <- l.Run(context.Background())
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrReentrantRun) {
			t.Fatalf("expected ErrReentrantRun, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reentrant Run never returned")
	}
}

func TestLoop_PanicInTaskIsRecovered(t *testing.T) {
	l := New()
	runLoop(t, l)

	done := make(chan struct{})
	l.Submit(func() { panic("boom") })
	l.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stalled after a panicking task")
	}
}
