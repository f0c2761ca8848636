// Package simtap provides an embeddable telemetry tap for IndyCar Racing II
// running under DOSBox or Windows.
//
// Simtap attaches to the running game process, locates the game's data
// segment by signature scan, and decodes live session state into immutable
// snapshots delivered over a channel.
//
// # Basic Usage
//
//	cfg := simtap.Config{
//	    Version: "REND32A",
//	}
//
//	tap, err := simtap.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := tap.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for snap := range tap.Snapshots() {
//	    // consume telemetry
//	    _ = snap
//	}
//
//	_ = tap.Stop()
//
// # Configuration
//
// Create a [Config] with at minimum the game Version (DOS, REND32A or
// WINDY). All other fields have working defaults.
//
// # Snapshots and Events
//
// [Tap.Snapshots] yields decoded frames in strictly increasing sequence
// order; when the consumer lags, the oldest undelivered frame is dropped,
// never reordered. [Tap.Events] reports attach results, transient decode
// errors (deduplicated), and a single terminal event when the game exits.
//
// # Dependency Injection
//
// For testing or replay, inject custom process adapters:
//
//	tap, err := simtap.New(cfg,
//	    simtap.WithLocator(myLocator),
//	    simtap.WithMemoryOpener(myOpener),
//	    simtap.WithLogger(myLogger),
//	)
//
// # Lifecycle States
//
// A Tap moves through [StateIdle], [StateAttaching], [StatePolling] and ends
// in [StateStopped] (cancelled) or [StateDetached] (game exited). Use
// [Tap.State] to query the current state and [WithStateObserver] to watch
// transitions.
package simtap
