package memio

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/ports"
)

// Accessor is the sole owner of the process-memory handle for a session. All
// reads and writes funnel through it so the handle lifecycle stays in one
// place: created at attach, released exactly once at detach.
//
// Offsets are exe-relative; the accessor adds the base resolved by the
// signature scan. All multi-byte values are little-endian.
type Accessor struct {
	mu       sync.Mutex
	mem      ports.ProcessMemory
	base     uintptr
	writable bool
	closed   bool
}

// AccessorOption configures optional accessor behavior.
type AccessorOption func(*Accessor)

// WithWrites enables the write path. Writes are off by default because the
// polling path must never mutate the target; only editor-style collaborators
// opt in.
func WithWrites() AccessorOption {
	return func(a *Accessor) { a.writable = true }
}

// NewAccessor wraps a raw handle and a resolved load base.
func NewAccessor(mem ports.ProcessMemory, base uintptr, opts ...AccessorOption) *Accessor {
	a := &Accessor{mem: mem, base: base}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Base returns the resolved load base.
func (a *Accessor) Base() uintptr { return a.base }

// ReadBytes reads n bytes at the exe-relative offset. This is the bulk
// primitive: one syscall regardless of n, which is what keeps a full-grid
// decode cheap at tens-of-milliseconds poll intervals.
func (a *Accessor) ReadBytes(offset uint32, n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, domain.ErrNotAttached
	}
	buf := make([]byte, n)
	read, err := a.mem.ReadAt(a.base+uintptr(offset), buf)
	if err != nil {
		return nil, wrapAccess("read", offset, n, err)
	}
	if read < n {
		return nil, &domain.MemoryAccessError{Op: "read", Offset: offset, Len: n, Err: io.ErrUnexpectedEOF}
	}
	return buf, nil
}

// ReadU32 reads one little-endian uint32 at the exe-relative offset.
func (a *Accessor) ReadU32(offset uint32) (uint32, error) {
	b, err := a.ReadBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads one little-endian int32 at the exe-relative offset.
func (a *Accessor) ReadI32(offset uint32) (int32, error) {
	v, err := a.ReadU32(offset)
	return int32(v), err
}

// ReadU16 reads one little-endian uint16 at the exe-relative offset.
func (a *Accessor) ReadU16(offset uint32) (uint16, error) {
	b, err := a.ReadBytes(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32s reads count contiguous little-endian uint32 values in one read.
func (a *Accessor) ReadU32s(offset uint32, count int) ([]uint32, error) {
	b, err := a.ReadBytes(offset, count*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

// ReadCString reads up to max bytes and returns the leading NUL-terminated
// ASCII string, trimmed.
func (a *Accessor) ReadCString(offset uint32, max int) (string, error) {
	b, err := a.ReadBytes(offset, max)
	if err != nil {
		return "", err
	}
	return TrimCString(b), nil
}

// WriteBytes writes data at the exe-relative offset. Fails with
// ErrWritesDisabled unless the accessor was built with WithWrites.
func (a *Accessor) WriteBytes(offset uint32, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return domain.ErrNotAttached
	}
	if !a.writable {
		return domain.ErrWritesDisabled
	}
	n, err := a.mem.WriteAt(a.base+uintptr(offset), data)
	if err != nil {
		return wrapAccess("write", offset, len(data), err)
	}
	if n < len(data) {
		return &domain.MemoryAccessError{Op: "write", Offset: offset, Len: len(data), Err: io.ErrShortWrite}
	}
	return nil
}

// WriteU32 writes one little-endian uint32 at the exe-relative offset.
func (a *Accessor) WriteU32(offset uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return a.WriteBytes(offset, b[:])
}

// Close releases the underlying handle. Idempotent: the second and later
// calls are no-ops, never errors.
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.mem.Close()
}

// wrapAccess preserves ErrProcessExited unwrapped semantics while tagging the
// failing access.
func wrapAccess(op string, offset uint32, n int, err error) error {
	return &domain.MemoryAccessError{Op: op, Offset: offset, Len: n, Err: err}
}

// TrimCString returns the ASCII string before the first NUL, with
// surrounding whitespace and non-ASCII bytes removed.
func TrimCString(b []byte) string {
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	out := make([]byte, 0, end)
	for _, c := range b[:end] {
		if c >= 0x20 && c < 0x7F {
			out = append(out, c)
		}
	}
	// trim spaces
	start, stop := 0, len(out)
	for start < stop && out[start] == ' ' {
		start++
	}
	for stop > start && out[stop-1] == ' ' {
		stop--
	}
	return string(out[start:stop])
}
