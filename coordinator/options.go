package coordinator

import (
	"time"

	"github.com/joeycumines/logiface"
)

// JoinPolicy governs how a registration under an already-occupied label is
// reconciled with the incumbent.
type JoinPolicy int

const (
	// JoinNone (the default) replaces the incumbent: it is cascade-cleared
	// once the new Link is installed.
	JoinNone JoinPolicy = iota
	// JoinMerge (join=true) returns the incumbent's id; the new payload is
	// discarded and observes the incumbent's completion via onComplete.
	JoinMerge
	// JoinReplace (join="replace") supersedes the incumbent: its onClear
	// hooks fire with ReplacedBy set, and promise bridges forward onto the
	// new Link.
	JoinReplace
)

// taskConfig is the resolved form of a registration's options, mirroring
// spec languages' {join, label, group, onClear} options object.
type taskConfig struct {
	join     JoinPolicy
	label    any
	group    any
	owner    any
	onClear  []func(CancelContext)
	single   bool // listener-only: remove after first dispatch
	timeout  time.Duration
	interval time.Duration
}

func resolveTaskConfig(opts []TaskOption) *taskConfig {
	c := &taskConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// TaskOption configures a single registration call.
type TaskOption func(*taskConfig)

// WithJoin sets the join policy for a registration, overriding the default JoinNone.
func WithJoin(policy JoinPolicy) TaskOption {
	return func(c *taskConfig) { c.join = policy }
}

// WithLabel sets the registration's dedup key within (kind, group). Pass a
// string or a *[Label].
func WithLabel(label any) TaskOption {
	return func(c *taskConfig) { c.label = label }
}

// WithGroup sets the registration's bulk-cancellation scope within kind.
// Pass a string or a *[Label].
func WithGroup(group any) TaskOption {
	return func(c *taskConfig) { c.group = group }
}

// WithOwner sets the value passed as the first argument to the
// registration's callback, replacing JavaScript's implicit this.
func WithOwner(owner any) TaskOption {
	return func(c *taskConfig) { c.owner = owner }
}

// WithOnClear appends a cancel hook, run if the task is cleared before
// completing naturally.
func WithOnClear(fn func(CancelContext)) TaskOption {
	return func(c *taskConfig) {
		if fn != nil {
			c.onClear = append(c.onClear, fn)
		}
	}
}

// ListenOption configures [Manager.On]/[Manager.Once].
type ListenOption = TaskOption

// WithSingle marks a listener registration to remove itself after its
// first dispatch, the primitive spec.md's adapters use to implement Once
// when the Emitter has no native once.
func WithSingle() TaskOption {
	return func(c *taskConfig) { c.single = true }
}

// IdleOption configures [Manager.RequestIdleCallback]/[Manager.Idle].
type IdleOption = TaskOption

// WithTimeout sets the fallback deadline after which an idle callback
// fires even if the loop never reaches an idle point.
func WithTimeout(d time.Duration) TaskOption {
	return func(c *taskConfig) { c.timeout = d }
}

// WaitOption configures [Manager.Wait].
type WaitOption = TaskOption

// WithPollInterval overrides Wait's default 15ms predicate poll interval.
func WithPollInterval(d time.Duration) TaskOption {
	return func(c *taskConfig) { c.interval = d }
}

// DnDOption configures [Manager.DragAndDrop].
type DnDOption = TaskOption

// ClearAsyncOptions selects which Link(s) a call to [Manager.Off] or the
// internal clearAsync engine should remove.
type ClearAsyncOptions struct {
	Kind   kind
	ID     uint64
	HasID  bool
	Label  any
	Group  any // a concrete group key, or a *regexp.Regexp to match many
	Reason any
}

// ClearAllOption configures [Manager.ClearAll].
type ClearAllOption func(*clearAllConfig)

type clearAllConfig struct {
	label  any
	group  any
	reason any
}

func resolveClearAllConfig(opts []ClearAllOption) *clearAllConfig {
	c := &clearAllConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithClearLabel restricts ClearAll to links matching this label.
func WithClearLabel(label any) ClearAllOption {
	return func(c *clearAllConfig) { c.label = label }
}

// WithClearGroup restricts ClearAll to links in this group (or groups
// matching it, if it is a *regexp.Regexp).
func WithClearGroup(group any) ClearAllOption {
	return func(c *clearAllConfig) { c.group = group }
}

// WithClearReason sets the cancel context's Reason field for this ClearAll pass.
func WithClearReason(reason any) ClearAllOption {
	return func(c *clearAllConfig) { c.reason = reason }
}

// ManagerOption configures a [Manager] at construction time.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	logger         *logiface.Logger[logiface.Event]
	frameInterval  time.Duration
	waitInterval   time.Duration
}

func resolveManagerConfig(opts []ManagerOption) *managerConfig {
	c := &managerConfig{
		logger:        logiface.New[logiface.Event](),
		frameInterval: 16666667 * time.Nanosecond, // ~60Hz, matching requestAnimationFrame
		waitInterval:  15 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithManagerLogger attaches a structured logger to the Manager.
func WithManagerLogger(logger *logiface.Logger[logiface.Event]) ManagerOption {
	return func(c *managerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFrameInterval overrides the default ~16.6ms animation-frame batching interval.
func WithFrameInterval(d time.Duration) ManagerOption {
	return func(c *managerConfig) {
		if d > 0 {
			c.frameInterval = d
		}
	}
}

// WithDefaultPollInterval overrides the default 15ms Wait predicate poll interval.
func WithDefaultPollInterval(d time.Duration) ManagerOption {
	return func(c *managerConfig) {
		if d > 0 {
			c.waitInterval = d
		}
	}
}
