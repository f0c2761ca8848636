// Package simtap provides a lightweight telemetry tap for IndyCar Racing II.
//
// Example usage:
//
//	cfg := simtap.Config{Version: "REND32A"}
//	err := simtap.Run(context.Background(), cfg, func(snap *simtap.Snapshot) {
//	    fmt.Println(snap.Seq, snap.Count)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// This is the convenience entry point; embedding applications that need
// lifecycle control, events, or dependency injection should use
// github.com/oval-labs/simtap/pkg/simtap directly.
package simtap

import (
	"context"

	tap "github.com/oval-labs/simtap/pkg/simtap"
)

// Config holds the tap's session configuration.
type Config = tap.Config

// Snapshot is one decoded frame of session state.
type Snapshot = tap.Snapshot

// Run attaches to the running game and invokes handle for every snapshot.
// It blocks until the context is cancelled or the game exits; the handle
// callback runs on the caller's goroutine.
func Run(ctx context.Context, cfg Config, handle func(*Snapshot)) error {
	t, err := tap.New(cfg)
	if err != nil {
		return err
	}
	if err := t.Start(ctx); err != nil {
		return err
	}
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-t.Snapshots():
			if handle != nil {
				handle(snap)
			}
		case ev := <-t.Events():
			if ev.Kind == tap.EventDetached {
				return nil
			}
		}
	}
}
