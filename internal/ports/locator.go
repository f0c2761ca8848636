package ports

import "context"

// WindowInfo identifies one candidate window and its owning process.
type WindowInfo struct {
	Title string
	PID   uint32
}

// Locator finds the target process by window title.
//
// Locate returns the first visible window whose title contains every keyword,
// case-insensitive, in OS enumeration order. First-match selection is
// deterministic but coarse; callers needing disambiguation must narrow the
// keyword set. Returns domain.ErrProcessNotFound when nothing matches.
type Locator interface {
	Locate(ctx context.Context, keywords []string) (WindowInfo, error)
}
