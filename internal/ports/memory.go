package ports

// Region describes one readable, committed region of the target's address
// space, as reported by the OS.
type Region struct {
	Base uintptr
	Size uint
}

// ProcessMemory is the raw OS-level view of the target process. Addresses are
// absolute within the target's address space; exe-relative translation is the
// accessor's job, not the handle's.
//
// Implementations must return domain.ErrProcessExited once the target process
// is gone, from every method, so callers can tell a dead session from a
// transient short read.
type ProcessMemory interface {
	// ReadAt fills buf from the given absolute address. Returns the number
	// of bytes read; a short read is an error.
	ReadAt(addr uintptr, buf []byte) (int, error)

	// WriteAt copies data to the given absolute address.
	WriteAt(addr uintptr, data []byte) (int, error)

	// Regions enumerates the readable committed regions, in address order.
	// Used only by the signature scan at attach time.
	Regions() ([]Region, error)

	// Close releases the handle. Idempotent: closing twice is a no-op.
	Close() error
}

// MemoryOpener opens a raw memory handle for a located process.
type MemoryOpener interface {
	Open(pid uint32) (ProcessMemory, error)
}
