//go:build windows

package proc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/ports"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows            = user32.NewProc("EnumWindows")
	procGetWindowTextW         = user32.NewProc("GetWindowTextW")
	procIsWindowVisible        = user32.NewProc("IsWindowVisible")
	procGetWindowThreadProcess = user32.NewProc("GetWindowThreadProcessId")
)

// WindowLocator finds the target process by enumerating top-level windows.
type WindowLocator struct{}

// NewWindowLocator creates a Win32-backed locator.
func NewWindowLocator() *WindowLocator { return &WindowLocator{} }

// Locate returns the first visible window whose title contains every keyword,
// case-insensitive, in enumeration order.
func (l *WindowLocator) Locate(ctx context.Context, keywords []string) (ports.WindowInfo, error) {
	if err := ctx.Err(); err != nil {
		return ports.WindowInfo{}, err
	}

	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	var found ports.WindowInfo
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1 // continue
		}
		var buf [512]uint16
		n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if n == 0 {
			return 1
		}
		title := windows.UTF16ToString(buf[:n])
		lt := strings.ToLower(title)
		for _, k := range lowered {
			if !strings.Contains(lt, k) {
				return 1
			}
		}
		var pid uint32
		procGetWindowThreadProcess.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		if pid == 0 {
			return 1
		}
		found = ports.WindowInfo{Title: title, PID: pid}
		return 0 // stop enumeration
	})
	// EnumWindows reports failure when the callback stops it early; ignore
	// the return and judge by whether a window was captured.
	procEnumWindows.Call(cb, 0)

	if found.PID == 0 {
		return ports.WindowInfo{}, fmt.Errorf("%w: no window matching %v", domain.ErrProcessNotFound, keywords)
	}
	return found, nil
}

// MemoryOpener opens Win32 process-memory handles.
type MemoryOpener struct{}

// NewMemoryOpener creates a Win32-backed opener.
func NewMemoryOpener() *MemoryOpener { return &MemoryOpener{} }

// Open opens the process for virtual-memory access.
func (MemoryOpener) Open(pid uint32) (ports.ProcessMemory, error) {
	const access = windows.PROCESS_VM_READ | windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_OPERATION | windows.PROCESS_QUERY_INFORMATION
	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return nil, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	return &processMemory{handle: h}, nil
}

// processMemory implements ports.ProcessMemory over a Win32 process handle.
type processMemory struct {
	mu     sync.Mutex
	handle windows.Handle
	closed bool
}

func (p *processMemory) ReadAt(addr uintptr, buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, domain.ErrNotAttached
	}
	var read uintptr
	err := windows.ReadProcessMemory(p.handle, addr, &buf[0], uintptr(len(buf)), &read)
	if err != nil {
		if p.exitedLocked() {
			return int(read), domain.ErrProcessExited
		}
		return int(read), err
	}
	return int(read), nil
}

func (p *processMemory) WriteAt(addr uintptr, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, domain.ErrNotAttached
	}
	var written uintptr
	err := windows.WriteProcessMemory(p.handle, addr, &data[0], uintptr(len(data)), &written)
	if err != nil {
		if p.exitedLocked() {
			return int(written), domain.ErrProcessExited
		}
		return int(written), err
	}
	return int(written), nil
}

// readableProtect covers the page protections a scan may read through.
const readableProtect = windows.PAGE_READONLY | windows.PAGE_READWRITE |
	windows.PAGE_WRITECOPY | windows.PAGE_EXECUTE_READ | windows.PAGE_EXECUTE_READWRITE

func (p *processMemory) Regions() ([]ports.Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, domain.ErrNotAttached
	}

	var out []ports.Region
	var addr uintptr
	for {
		var mbi windows.MemoryBasicInformation
		err := windows.VirtualQueryEx(p.handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			break
		}
		size := uintptr(mbi.RegionSize)
		if size == 0 {
			break
		}
		if mbi.State == windows.MEM_COMMIT && mbi.Protect&readableProtect != 0 &&
			mbi.Protect&windows.PAGE_GUARD == 0 {
			out = append(out, ports.Region{Base: mbi.BaseAddress, Size: uint(size)})
		}
		addr = mbi.BaseAddress + size
	}
	if len(out) == 0 && p.exitedLocked() {
		return nil, domain.ErrProcessExited
	}
	return out, nil
}

func (p *processMemory) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return windows.CloseHandle(p.handle)
}

// exitedLocked reports whether the target process has terminated.
func (p *processMemory) exitedLocked() bool {
	var code uint32
	if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
		return true
	}
	return code != windows.STILL_ACTIVE
}
