package proc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/ports"
)

// Image is an in-memory ports.ProcessMemory: one contiguous mapped region
// at a fixed base. It backs tests on every platform and can replay a dumped
// process image against the real decoder.
type Image struct {
	mu     sync.Mutex
	base   uintptr
	data   []byte
	exited bool
	closed bool

	// Closes counts Close calls, for asserting idempotent release.
	Closes int
}

// NewImage maps data at the given absolute base address.
func NewImage(base uintptr, data []byte) *Image {
	return &Image{base: base, data: data}
}

// SetExited makes every subsequent access fail with ErrProcessExited,
// simulating the target process going away mid-session.
func (im *Image) SetExited() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.exited = true
}

// Poke rewrites part of the image in place, simulating the game updating its
// state between polls.
func (im *Image) Poke(addr uintptr, data []byte) {
	im.mu.Lock()
	defer im.mu.Unlock()
	copy(im.data[addr-im.base:], data)
}

func (im *Image) ReadAt(addr uintptr, buf []byte) (int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.aliveLocked(); err != nil {
		return 0, err
	}
	if addr < im.base || addr >= im.base+uintptr(len(im.data)) {
		return 0, fmt.Errorf("read at 0x%X: outside mapped region", addr)
	}
	n := copy(buf, im.data[addr-im.base:])
	if n < len(buf) {
		return n, fmt.Errorf("read at 0x%X: short read %d of %d", addr, n, len(buf))
	}
	return n, nil
}

func (im *Image) WriteAt(addr uintptr, data []byte) (int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.aliveLocked(); err != nil {
		return 0, err
	}
	if addr < im.base || addr >= im.base+uintptr(len(im.data)) {
		return 0, fmt.Errorf("write at 0x%X: outside mapped region", addr)
	}
	n := copy(im.data[addr-im.base:], data)
	if n < len(data) {
		return n, fmt.Errorf("write at 0x%X: short write %d of %d", addr, n, len(data))
	}
	return n, nil
}

func (im *Image) Regions() ([]ports.Region, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if err := im.aliveLocked(); err != nil {
		return nil, err
	}
	return []ports.Region{{Base: im.base, Size: uint(len(im.data))}}, nil
}

func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.Closes++
	im.closed = true
	return nil
}

func (im *Image) aliveLocked() error {
	if im.exited {
		return domain.ErrProcessExited
	}
	if im.closed {
		return domain.ErrNotAttached
	}
	return nil
}

// ImageOpener is a ports.MemoryOpener that always hands out the same Image.
type ImageOpener struct {
	Image *Image
}

func (o ImageOpener) Open(pid uint32) (ports.ProcessMemory, error) {
	return o.Image, nil
}

// StaticLocator is a ports.Locator over a fixed window list, matching with
// the same all-keywords, case-insensitive, first-match rule as the Win32
// locator.
type StaticLocator struct {
	Windows []ports.WindowInfo
}

func (l StaticLocator) Locate(ctx context.Context, keywords []string) (ports.WindowInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.WindowInfo{}, err
	}
	for _, w := range l.Windows {
		title := strings.ToLower(w.Title)
		ok := true
		for _, k := range keywords {
			if !strings.Contains(title, strings.ToLower(k)) {
				ok = false
				break
			}
		}
		if ok {
			return w, nil
		}
	}
	return ports.WindowInfo{}, fmt.Errorf("%w: no window matching %v", domain.ErrProcessNotFound, keywords)
}
