package coordinator

import (
	"time"

	"github.com/joeycumines/logiface"

	"github.com/loopctl/loopctl/loop"
)

// Manager is an owner-scoped instance holding the full task registry: one
// per host object. Different Managers never share state; within a Manager
// the registry is touched only from the bound [loop.Loop]'s goroutine.
type Manager struct {
	loop *loop.Loop
	reg  *registry

	nextID uint64

	logger *logiface.Logger[logiface.Event]

	frameInterval time.Duration
	waitInterval  time.Duration

	frame *frameBatcher
}

// NewManager creates a Manager bound to l. Registration methods must be
// called from l's goroutine (e.g. from within a task submitted via
// [loop.Loop.Submit]), matching the bound Loop's own concurrency contract.
func NewManager(l *loop.Loop, opts ...ManagerOption) *Manager {
	c := resolveManagerConfig(opts)
	m := &Manager{
		loop:          l,
		reg:           newRegistry(),
		logger:        c.logger,
		frameInterval: c.frameInterval,
		waitInterval:  c.waitInterval,
	}
	m.frame = newFrameBatcher(m)
	return m
}

func (m *Manager) allocID() uint64 {
	m.nextID++
	return m.nextID
}
