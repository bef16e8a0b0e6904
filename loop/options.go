package loop

import "github.com/joeycumines/logiface"

// Option configures a [Loop] at construction time.
type Option func(*config)

type config struct {
	strictMicrotaskOrdering bool
	logger                  *logiface.Logger[logiface.Event]
}

func resolveOptions(opts []Option) *config {
	c := &config{
		logger: logiface.New[logiface.Event](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithStrictMicrotaskOrdering, when enabled, drains the microtask queue
// after every single external/internal/timer task instead of once per tick.
// Disabled by default for throughput; enable it when callers rely on
// JavaScript-style "microtasks always run before the next macrotask".
func WithStrictMicrotaskOrdering(enabled bool) Option {
	return func(c *config) { c.strictMicrotaskOrdering = enabled }
}

// WithLogger attaches a structured logger. Panics recovered from tasks are
// logged through it. A nil logger, or
// omitting this option, leaves logging disabled (a no-op logiface.Logger).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
