//go:build !windows

package simtap

import "github.com/oval-labs/simtap/internal/ports"

// Process attach only exists on Windows; other platforms must inject
// adapters (used for replaying dumped images in tests and tooling).
func platformLocator() ports.Locator     { return nil }
func platformOpener() ports.MemoryOpener { return nil }
