package app

import (
	"sync"

	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/internal/ports"
)

// State represents the lifecycle state of the engine.
type State int

const (
	// StateIdle means the engine has not been started.
	StateIdle State = iota

	// StateAttaching means the engine is locating the process and resolving
	// its base; it stays here, retrying, until attach succeeds or the caller
	// cancels.
	StateAttaching

	// StatePolling means the engine is attached and producing snapshots.
	StatePolling

	// StateStopped means the caller cancelled; the handle has been released.
	StateStopped

	// StateDetached means the target process exited; the handle has been
	// released and exactly one terminal event was emitted.
	StateDetached
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAttaching:
		return "Attaching"
	case StatePolling:
		return "Polling"
	case StateStopped:
		return "Stopped"
	case StateDetached:
		return "Detached"
	default:
		return "Unknown"
	}
}

// StateObserver is called when the lifecycle state changes.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle manages the engine's state machine. Transitions are validated;
// an invalid transition leaves the state untouched.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	logger   ports.Logger
	observer StateObserver
}

// NewLifecycle creates a lifecycle manager in StateIdle.
func NewLifecycle(logger ports.Logger, observer StateObserver) *Lifecycle {
	return &Lifecycle{state: StateIdle, logger: logger, observer: observer}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to move to a new state.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !validTransition(oldState, newState) {
		l.mu.Unlock()
		if oldState == StateIdle || oldState == StateStopped || oldState == StateDetached {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}

	l.state = newState
	l.mu.Unlock()

	// Notify outside of the lock.
	if l.observer != nil {
		l.observer.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
	return nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateAttaching
	case StateAttaching:
		return to == StatePolling || to == StateStopped
	case StatePolling:
		return to == StateStopped || to == StateDetached
	case StateStopped, StateDetached:
		// A fresh session may be started after either terminal state.
		return to == StateAttaching
	default:
		return false
	}
}

// CanStart returns true if a new session may begin.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateIdle || l.state == StateStopped || l.state == StateDetached
}

// Running returns true while a session is attaching or polling.
func (l *Lifecycle) Running() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateAttaching || l.state == StatePolling
}
