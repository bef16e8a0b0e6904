package loop

import "sync/atomic"

// State represents the current state of a [Loop].
//
// State Machine:
//
//	StateAwake (0) → StateRunning (3)       [Run()]
//	StateAwake (0) → StateTerminated (1)    [Shutdown()/Close() before Run()]
//	StateRunning (3) → StateSleeping (2)    [sleepUntilWork() via CAS]
//	StateRunning (3) → StateTerminating (4) [Shutdown()/Close()]
//	StateSleeping (2) → StateRunning (3)    [wake via CAS]
//	StateSleeping (2) → StateTerminating (4) [Shutdown()/Close()]
//	StateTerminating (4) → StateTerminated (1) [shutdown complete]
//	StateTerminated (1) → (terminal)
type State uint32

const (
	// StateAwake indicates the loop has been created but Run has not been called.
	StateAwake State = 0
	// StateTerminated indicates the loop has fully stopped.
	StateTerminated State = 1
	// StateSleeping indicates the loop is blocked waiting for the next timer or wakeup.
	StateSleeping State = 2
	// StateRunning indicates the loop is actively draining queues.
	StateRunning State = 3
	// StateTerminating indicates shutdown has been requested but not completed.
	StateTerminating State = 4
)

func (s State) String() string {
	switch s {
	case StateAwake:
		return "awake"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// atomicState is a lock-free state machine, guarded entirely by CAS so the
// loop goroutine and Submit/Shutdown callers from other goroutines never
// block on each other just to observe or transition state.
type atomicState struct {
	v atomic.Uint32
}

func newAtomicState() *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(StateAwake))
	return s
}

func (s *atomicState) Load() State { return State(s.v.Load()) }

func (s *atomicState) Store(state State) { s.v.Store(uint32(state)) }

func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
