// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// Ports are the boundary between the engine core and the operating system.
// They define what the engine needs from the outside world without saying how
// those needs are fulfilled.
//
// # Port interfaces
//
//   - [Locator]: Finds the target process from window-title keywords
//   - [MemoryOpener]: Opens a raw process-memory handle for a PID
//   - [ProcessMemory]: Raw absolute-address reads/writes plus region enumeration
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app, internal/decode, internal/memio)
// depends only on these interfaces. Infrastructure adapters
// (internal/adapters) implement them with Win32 syscalls, zerolog, or
// in-memory fakes for tests.
package ports
