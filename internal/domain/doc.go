// Package domain contains the core entities and value objects for simtap.
//
// This package represents the innermost layer of the module. It has no
// dependencies on infrastructure concerns (syscalls, logging, config) and
// contains only the telemetry model and its invariants.
//
// # Entities
//
//   - [Snapshot]: One immutable, fully-assembled telemetry result for a poll tick
//   - [EntityState]: Per-slot decoded car state, rebuilt every tick
//   - [Identity]: Slow-changing driver name and car number for a slot
//   - [SessionInfo]: Track identity and length, resolved once per session
//
// # Design principles
//
// Snapshots and everything reachable from them are immutable after
// construction. A snapshot may be handed across goroutine boundaries without
// synchronization; no field is written after the decoder returns it.
package domain
