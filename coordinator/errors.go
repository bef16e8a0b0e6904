package coordinator

import "fmt"

// ConfigurationError indicates a programmer error discovered at clear time:
// a worker or event emitter exposed none of the methods its adapter needs
// to tear it down. The registry entry is still removed — leaking is worse
// than shouting.
type ConfigurationError struct {
	Kind    kind
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("coordinator: configuration error (%s): %s", e.Kind, e.Message)
}

// CancelledError is the rejection reason attached to a promise-bridged task
// when it is cleared before completing naturally. It is never thrown by
// the coordinator itself; it is only ever the content of a cancel context.
type CancelledError struct {
	Context CancelContext
}

func (e *CancelledError) Error() string {
	if e.Context.ReplacedBy != nil {
		return "coordinator: task cancelled (replaced)"
	}
	return "coordinator: task cancelled"
}

// ReplacementOverflowError is returned, and used as a promise-bridge
// rejection reason, when a join="replace" forwarding chain exceeds
// [maxReplacementDepth] consecutive replacements.
type ReplacementOverflowError struct {
	Depth int
}

func (e *ReplacementOverflowError) Error() string {
	return fmt.Sprintf("coordinator: replacement chain exceeded depth %d", e.Depth)
}
