package app

import "github.com/oval-labs/simtap/internal/ports"

// EventKind discriminates engine events.
type EventKind int

const (
	// EventAttached is emitted once per session after a successful attach.
	EventAttached EventKind = iota

	// EventError is a deduplicated transient error notification. The engine
	// keeps running after emitting it.
	EventError

	// EventDetached is the terminal event of a session: the target process
	// exited. Emitted exactly once; the engine stops afterwards.
	EventDetached
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case EventAttached:
		return "Attached"
	case EventError:
		return "Error"
	case EventDetached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// Event is an out-of-band notification from the engine worker. Snapshots
// travel on their own channel; events carry attach results, transient errors,
// and the terminal detach.
type Event struct {
	Kind EventKind

	// Err is set for EventError and EventDetached.
	Err error

	// Window and Base are set for EventAttached.
	Window ports.WindowInfo
	Base   uintptr
}
