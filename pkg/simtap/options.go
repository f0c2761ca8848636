package simtap

import (
	"errors"

	logAdapter "github.com/oval-labs/simtap/internal/adapters/log"
	"github.com/oval-labs/simtap/internal/app"
	"github.com/oval-labs/simtap/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// StateObserver receives lifecycle transitions.
type StateObserver = app.StateObserver

// Locator finds the target process window.
type Locator = ports.Locator

// MemoryOpener opens a process-memory handle for a located PID.
type MemoryOpener = ports.MemoryOpener

var errNoPlatformAdapter = errors.New(
	"no process adapter for this platform: inject WithLocator and WithMemoryOpener")

// Option configures optional behavior of a Tap.
type Option func(*options)

type options struct {
	logger   ports.Logger
	locator  ports.Locator
	opener   ports.MemoryOpener
	observer app.StateObserver
}

func defaultOptions() options {
	return options{
		logger:  logAdapter.NewNoopLogger(),
		locator: platformLocator(),
		opener:  platformOpener(),
	}
}

// WithLogger sets a custom logger. If not provided, logging is discarded.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLocator replaces the platform window locator. Required on non-Windows
// platforms.
func WithLocator(l Locator) Option {
	return func(o *options) {
		o.locator = l
	}
}

// WithMemoryOpener replaces the platform process-memory opener. Required on
// non-Windows platforms.
func WithMemoryOpener(m MemoryOpener) Option {
	return func(o *options) {
		o.opener = m
	}
}

// WithStateObserver registers a callback for lifecycle transitions. Called
// synchronously from the worker goroutine; implementations must return
// quickly.
func WithStateObserver(obs StateObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}
