package simtap

import (
	"context"
	"sync"
	"time"

	"github.com/oval-labs/simtap/internal/app"
	"github.com/oval-labs/simtap/internal/decode"
	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/memio"
	"github.com/oval-labs/simtap/internal/offsets"
)

// Re-export domain types so embedding applications only import this package.
type (
	// Snapshot is one decoded frame of session state.
	Snapshot = domain.Snapshot

	// EntityState is one car's decoded state within a snapshot.
	EntityState = domain.EntityState

	// Identity is a car's stable slot/name/number binding.
	Identity = domain.Identity

	// Gap describes a car's standing relative to the leader.
	Gap = domain.Gap

	// SessionInfo holds per-session constants such as the track.
	SessionInfo = domain.SessionInfo

	// Status is a car's activity classification.
	Status = domain.Status

	// Event is an engine notification: attach, error, or detach.
	Event = app.Event

	// EventKind discriminates Event values.
	EventKind = app.EventKind

	// State is the tap's lifecycle state.
	State = app.State
)

// Lifecycle states.
const (
	StateIdle      = app.StateIdle
	StateAttaching = app.StateAttaching
	StatePolling   = app.StatePolling
	StateStopped   = app.StateStopped
	StateDetached  = app.StateDetached
)

// Event kinds.
const (
	EventAttached = app.EventAttached
	EventError    = app.EventError
	EventDetached = app.EventDetached
)

// Re-exported sentinel errors.
var (
	ErrProcessNotFound   = domain.ErrProcessNotFound
	ErrSignatureNotFound = domain.ErrSignatureNotFound
	ErrProcessExited     = domain.ErrProcessExited
	ErrAlreadyRunning    = domain.ErrAlreadyRunning
	ErrNotRunning        = domain.ErrNotRunning
)

// Config holds the tap's session configuration.
type Config struct {
	// Version selects the game build: "DOS", "REND32A" or "WINDY".
	Version string

	// WindowKeywords overrides the build's default window-title match.
	WindowKeywords []string

	// PollInterval is the snapshot cadence. Default 250ms, floor 20ms.
	PollInterval time.Duration

	// AttachRetryInitial and AttachRetryMax bound the attach backoff.
	AttachRetryInitial time.Duration
	AttachRetryMax     time.Duration

	// SnapshotBuffer is the snapshot channel capacity. Default 8.
	SnapshotBuffer int

	// UniqueSignature fails attach when the signature matches more than
	// once instead of taking the first hit.
	UniqueSignature bool

	// TrackNamer resolves a track index to a name for builds that publish
	// an index instead of a string. Optional.
	TrackNamer func(index int) (string, error)
}

// Tap is the embeddable telemetry engine. Use New to create one, then Start
// to begin streaming snapshots.
type Tap struct {
	cfg    Config
	engine *app.Engine

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a Tap in StateIdle. Returns an error if the configuration is
// invalid or no process adapter exists for this platform.
func New(cfg Config, opts ...Option) (*Tap, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}

	version, err := offsets.ParseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}
	table, err := offsets.ForVersion(version)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.locator == nil || o.opener == nil {
		return nil, errNoPlatformAdapter
	}

	policy := memio.FirstMatch
	if cfg.UniqueSignature {
		policy = memio.UniqueMatch
	}

	engineCfg := app.Config{
		Table:                table,
		WindowKeywords:       cfg.WindowKeywords,
		PollInterval:         cfg.PollInterval,
		AttachBackoffInitial: cfg.AttachRetryInitial,
		AttachBackoffMax:     cfg.AttachRetryMax,
		SnapshotBuffer:       cfg.SnapshotBuffer,
		ScanPolicy:           policy,
		TrackNamer:           decode.TrackNamer(cfg.TrackNamer),
	}

	engine := app.NewEngine(engineCfg, o.locator, o.opener, o.logger, o.observer)
	return &Tap{cfg: cfg, engine: engine}, nil
}

// Start begins the attach-and-poll session in the background. Returns
// immediately; progress is reported via Events and State. Returns
// ErrAlreadyRunning if a session is active.
func (t *Tap) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.engine.Run(runCtx)

		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	return nil
}

// Stop cancels the session and waits for the worker to release the process
// handle. Safe to call more than once; returns ErrNotRunning after the first
// successful stop or if Start was never called.
func (t *Tap) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return domain.ErrNotRunning
	}
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	t.wg.Wait()
	return nil
}

// Snapshots returns the snapshot stream. See the package documentation for
// the delivery guarantees.
func (t *Tap) Snapshots() <-chan *Snapshot { return t.engine.Snapshots() }

// Events returns the event stream.
func (t *Tap) Events() <-chan Event { return t.engine.Events() }

// State returns the current lifecycle state.
func (t *Tap) State() State { return t.engine.State() }

// Dropped reports how many snapshots were discarded because the consumer
// fell behind.
func (t *Tap) Dropped() uint64 { return t.engine.Dropped() }

// SetPollInterval retunes the snapshot cadence of a running session.
func (t *Tap) SetPollInterval(d time.Duration) { t.engine.SetPollInterval(d) }

// PollInterval returns the current snapshot cadence.
func (t *Tap) PollInterval() time.Duration { return t.engine.PollInterval() }
