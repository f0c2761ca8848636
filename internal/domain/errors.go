package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the public API. Check with errors.Is.
var (
	// ErrProcessNotFound is returned when no window matches the keyword set.
	ErrProcessNotFound = errors.New("simtap: process not found")

	// ErrSignatureNotFound is returned when the version signature does not
	// occur in any readable region of the target process.
	ErrSignatureNotFound = errors.New("simtap: signature not found")

	// ErrAmbiguousSignature is returned when the scan policy requires a
	// unique match and the signature occurs more than once.
	ErrAmbiguousSignature = errors.New("simtap: ambiguous signature")

	// ErrProcessExited is fatal to the session: the target process handle
	// is dead and the engine must be reattached.
	ErrProcessExited = errors.New("simtap: process exited")

	// ErrNotAttached is returned for operations on a closed or never-opened
	// accessor.
	ErrNotAttached = errors.New("simtap: not attached")

	// ErrWritesDisabled is returned by write operations unless the accessor
	// was constructed with writes explicitly enabled.
	ErrWritesDisabled = errors.New("simtap: writes disabled")

	// ErrAlreadyRunning is returned when Start() is called on a running engine.
	ErrAlreadyRunning = errors.New("simtap: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped engine.
	ErrNotRunning = errors.New("simtap: not running")
)

// MemoryAccessError wraps a failed process-memory read or write. It is
// transient: the next tick retries the same access.
type MemoryAccessError struct {
	Op     string // "read" or "write"
	Offset uint32 // exe-relative offset
	Len    int
	Err    error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("simtap: %s %d bytes at 0x%X: %v", e.Op, e.Len, e.Offset, e.Err)
}

func (e *MemoryAccessError) Unwrap() error { return e.Err }

// DecodeError reports a slot-local decode failure. The affected slot is
// downgraded to StatusInvalid; the rest of the snapshot is unaffected.
type DecodeError struct {
	Slot  int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("simtap: decode slot %d field %s: %v", e.Slot, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
