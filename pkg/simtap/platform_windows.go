//go:build windows

package simtap

import (
	"github.com/oval-labs/simtap/internal/adapters/proc"
	"github.com/oval-labs/simtap/internal/ports"
)

func platformLocator() ports.Locator     { return proc.NewWindowLocator() }
func platformOpener() ports.MemoryOpener { return proc.NewMemoryOpener() }
