package coordinator

// kind enumerates the primitive categories a Link can belong to. Each kind
// has its own namespace within the registry: a label is unique only within
// (kind, group), never across kinds.
type kind string

const (
	kindImmediate      kind = "immediate"
	kindTimeout        kind = "timeout"
	kindInterval       kind = "interval"
	kindAnimationFrame kind = "animationFrame"
	kindIdleCallback   kind = "idleCallback"
	kindWorker         kind = "worker"
	kindRequest        kind = "request"
	kindProxy          kind = "proxy"
	kindEventListener  kind = "eventListener"
	kindDnD            kind = "dnd"
)

// OwnerFunc is the callback shape accepted by every adapter that does not
// need extra invocation arguments (timers, frames, proxies). owner is the
// value supplied via [WithOwner], or nil if none was given — Go has no
// implicit receiver to fall back to.
type OwnerFunc func(owner any)

// IdleFunc is the callback shape for [Manager.RequestIdleCallback]. deadline
// reports whether the callback fired because the registration's timeout was
// reached (deadline.TimedOut), matching requestIdleCallback's
// IdleDeadline.didTimeout.
type IdleFunc func(owner any, deadline IdleDeadline)

// IdleDeadline describes why an idleCallback invocation fired. It carries no
// estimate of the remaining idle time.
type IdleDeadline struct {
	// TimedOut is true if the callback fired because its timeout elapsed
	// rather than because the loop actually went idle.
	TimedOut bool
}

// EventHandler is the callback shape for listener adapters. args carries
// whatever the Emitter passed to the event; owner is the registration's
// bound owner, if any.
type EventHandler func(owner any, args ...any)

// Label is an opaque, comparable uniqueness key for the "unique symbol"
// case spec languages express via a runtime Symbol. Two calls to NewLabel
// never compare equal, even with identical call sites, mirroring Symbol().
// Most callers should simply pass a string instead.
type Label struct{ name string }

// NewLabel returns a fresh [Label], distinct from every other Label ever
// created, suitable for passing as a registration's label or group key.
// name is retained only for diagnostics.
func NewLabel(name string) *Label { return &Label{name: name} }

func (l *Label) String() string {
	if l == nil {
		return "<nil label>"
	}
	return l.name
}

// ReasonType describes why a Link was cleared, carried in [CancelContext].
type ReasonType string

// ClearAsync is the ReasonType used for every clear invoked through
// [Manager.ClearAsync] or one of its per-kind wrappers, mirroring the
// "type: clearAsync" field spec languages attach to their cancel context.
const ClearAsync ReasonType = "clearAsync"

// CancelContext is passed to every onClear hook and to promise-bridge
// rejections, describing which Link was cleared, why, and what (if
// anything) replaced it.
type CancelContext struct {
	Link       *Link
	Type       ReasonType
	ReplacedBy *Link
	Reason     any
}
