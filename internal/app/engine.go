// Package app contains the engine core: the lifecycle state machine and the
// polling scheduler that drives the decoder on a dedicated worker goroutine.
//
// # Concurrency model
//
// One background worker executes the attach sequence and the poll loop; it is
// the only goroutine that touches the process handle or raw memory. Consumers
// receive snapshots and events over one-way channels. The worker never blocks
// on consumer readiness: the snapshot channel is bounded and delivery is
// drop-oldest, so a slow consumer observes a gap in sequence numbers but
// always eventually observes the latest snapshot, in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oval-labs/simtap/internal/decode"
	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/memio"
	"github.com/oval-labs/simtap/internal/offsets"
	"github.com/oval-labs/simtap/internal/ports"
)

// MinPollInterval bounds how fast the engine will poll regardless of
// configuration.
const MinPollInterval = 20 * time.Millisecond

// DefaultSnapshotBuffer is the snapshot channel capacity when the config
// leaves it zero.
const DefaultSnapshotBuffer = 8

// eventBuffer is the event channel capacity. Events are deduplicated before
// emission, so the buffer only needs to absorb short consumer stalls.
const eventBuffer = 16

// Config holds the engine's static session configuration. It is copied at
// construction; the engine holds no reference to caller-mutable state.
type Config struct {
	// Table is the offset table for the detected build.
	Table offsets.Table

	// WindowKeywords overrides the table's default window-title keywords
	// when non-empty.
	WindowKeywords []string

	// PollInterval is the tick period. Clamped to MinPollInterval.
	PollInterval time.Duration

	// AttachBackoffInitial and AttachBackoffMax bound the attach-retry
	// cadence. Zero values take the defaults.
	AttachBackoffInitial time.Duration
	AttachBackoffMax     time.Duration

	// SnapshotBuffer is the snapshot channel capacity.
	SnapshotBuffer int

	// ScanPolicy resolves multiple signature matches.
	ScanPolicy memio.ScanPolicy

	// TrackNamer resolves track indices for builds that need it.
	TrackNamer decode.TrackNamer
}

// Engine is the polling scheduler: it attaches to the target process and
// delivers snapshots at the configured interval until cancelled or the
// process exits.
type Engine struct {
	cfg     Config
	locator ports.Locator
	opener  ports.MemoryOpener
	log     ports.Logger

	lifecycle *Lifecycle
	snapshots chan *domain.Snapshot
	events    chan Event

	pollNanos atomic.Int64
	dropped   atomic.Uint64
}

// NewEngine wires an engine from its ports. The observer may be nil.
func NewEngine(cfg Config, locator ports.Locator, opener ports.MemoryOpener, log ports.Logger, observer StateObserver) *Engine {
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	if cfg.AttachBackoffInitial <= 0 {
		cfg.AttachBackoffInitial = DefaultBackoffInitial
	}
	if cfg.AttachBackoffMax <= 0 {
		cfg.AttachBackoffMax = DefaultBackoffMax
	}
	if cfg.SnapshotBuffer <= 0 {
		cfg.SnapshotBuffer = DefaultSnapshotBuffer
	}
	if len(cfg.WindowKeywords) == 0 {
		cfg.WindowKeywords = cfg.Table.WindowKeywords
	}
	e := &Engine{
		cfg:       cfg,
		locator:   locator,
		opener:    opener,
		log:       log,
		lifecycle: NewLifecycle(log, observer),
		snapshots: make(chan *domain.Snapshot, cfg.SnapshotBuffer),
		events:    make(chan Event, eventBuffer),
	}
	e.pollNanos.Store(int64(cfg.PollInterval))
	return e
}

// Snapshots returns the snapshot stream. Delivery is in strictly increasing
// sequence order; under consumer pressure the oldest undelivered snapshot is
// dropped, never reordered or duplicated.
func (e *Engine) Snapshots() <-chan *domain.Snapshot { return e.snapshots }

// Events returns the event stream: attach results, deduplicated transient
// errors, and the single terminal detach event.
func (e *Engine) Events() <-chan Event { return e.events }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.lifecycle.State() }

// Dropped returns how many snapshots were discarded because the consumer
// lagged behind the poll interval.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// SetPollInterval adjusts the tick period of a running engine. Takes effect
// on the next tick.
func (e *Engine) SetPollInterval(d time.Duration) {
	if d < MinPollInterval {
		d = MinPollInterval
	}
	e.pollNanos.Store(int64(d))
	e.log.Info("poll interval updated", ports.Duration("interval", d))
}

// PollInterval returns the current tick period.
func (e *Engine) PollInterval() time.Duration {
	return time.Duration(e.pollNanos.Load())
}

// Run executes one full session on the calling goroutine: attach (retrying
// until success or cancellation), then poll until cancellation or process
// exit. The process handle is guaranteed released before Run returns.
//
// Returns ctx.Err() when cancelled, nil when the session ended because the
// target process exited (the Detached terminal event has been emitted).
func (e *Engine) Run(ctx context.Context) error {
	if err := e.lifecycle.TransitionTo(StateAttaching, "session start"); err != nil {
		return err
	}

	acc, info, err := e.attach(ctx)
	if err != nil {
		_ = e.lifecycle.TransitionTo(StateStopped, "cancelled while attaching")
		return err
	}
	defer acc.Close()

	e.emitEvent(Event{Kind: EventAttached, Window: info, Base: acc.Base()})
	if err := e.lifecycle.TransitionTo(StatePolling, "attached"); err != nil {
		return err
	}

	dec := decode.New(acc, e.cfg.Table, e.log, decode.WithTrackNamer(e.cfg.TrackNamer))
	return e.poll(ctx, acc, dec)
}

// attach runs the locate → open → scan sequence, retrying with backoff until
// it succeeds or the context is cancelled. Each distinct failure is surfaced
// once; identical consecutive failures are coalesced.
func (e *Engine) attach(ctx context.Context) (*memio.Accessor, ports.WindowInfo, error) {
	back := newBackoff(e.cfg.AttachBackoffInitial, e.cfg.AttachBackoffMax)
	var dedup errorDeduper

	for {
		if err := ctx.Err(); err != nil {
			return nil, ports.WindowInfo{}, err
		}
		acc, info, err := e.attachOnce(ctx)
		if err == nil {
			e.log.Info("attached",
				ports.String("window", info.Title),
				ports.Int("pid", int(info.PID)),
				ports.Hex("base", uint64(acc.Base())))
			return acc, info, nil
		}
		if dedup.Changed(err) {
			e.log.Warn("attach failed", ports.Err(err))
			e.emitEvent(Event{Kind: EventError, Err: err})
		}
		if serr := back.Sleep(ctx); serr != nil {
			return nil, ports.WindowInfo{}, serr
		}
	}
}

// attachOnce performs a single attach attempt.
func (e *Engine) attachOnce(ctx context.Context) (*memio.Accessor, ports.WindowInfo, error) {
	info, err := e.locator.Locate(ctx, e.cfg.WindowKeywords)
	if err != nil {
		return nil, ports.WindowInfo{}, err
	}

	mem, err := e.opener.Open(info.PID)
	if err != nil {
		return nil, ports.WindowInfo{}, fmt.Errorf("open process %d: %w", info.PID, err)
	}

	hit, err := memio.FindSignature(ctx, mem, e.cfg.Table.Signature, e.cfg.ScanPolicy)
	if err != nil {
		mem.Close()
		return nil, ports.WindowInfo{}, err
	}

	base := memio.ResolveBase(hit, e.cfg.Table.SignatureOffset)
	e.log.Debug("signature found",
		ports.Hex("match", uint64(hit)),
		ports.Hex("base", uint64(base)))

	return memio.NewAccessor(mem, base), info, nil
}

// poll is the tick loop. Cancellation is checked at the top of every
// iteration, so stop latency is bounded by one poll interval.
func (e *Engine) poll(ctx context.Context, acc *memio.Accessor, dec *decode.Decoder) error {
	var dedup errorDeduper
	timer := time.NewTimer(e.PollInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = e.lifecycle.TransitionTo(StateStopped, "cancelled")
			return ctx.Err()
		case <-timer.C:
		}

		snap, err := dec.Decode()
		switch {
		case err == nil:
			dedup.Reset()
			e.publish(snap)
		case errors.Is(err, domain.ErrProcessExited):
			// Fatal to the session: release the handle, then report exactly
			// one terminal event.
			_ = e.lifecycle.TransitionTo(StateDetached, "process exited")
			acc.Close()
			e.emitEvent(Event{Kind: EventDetached, Err: err})
			return nil
		default:
			if dedup.Changed(err) {
				e.emitEvent(Event{Kind: EventError, Err: err})
			}
		}

		timer.Reset(e.PollInterval())
	}
}

// publish delivers a snapshot without ever blocking the worker. When the
// buffer is full the oldest undelivered snapshot is dropped, which preserves
// ordering and keeps the newest data flowing.
func (e *Engine) publish(snap *domain.Snapshot) {
	for {
		select {
		case e.snapshots <- snap:
			return
		default:
		}
		select {
		case <-e.snapshots:
			e.dropped.Add(1)
		default:
		}
	}
}

// emitEvent delivers an event without blocking. Events are deduplicated
// upstream, so dropping on a saturated buffer loses repetition, not
// information; the terminal detach event is retried against the drop path so
// it is never lost.
func (e *Engine) emitEvent(ev Event) {
	for {
		select {
		case e.events <- ev:
			return
		default:
		}
		if ev.Kind != EventDetached {
			return
		}
		select {
		case <-e.events:
		default:
		}
	}
}
