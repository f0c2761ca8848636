package simtap_test

import (
	"context"
	"fmt"
	"time"

	"github.com/oval-labs/simtap/internal/adapters/proc"
	"github.com/oval-labs/simtap/internal/ports"
	"github.com/oval-labs/simtap/pkg/simtap"
)

// ExampleNew demonstrates creating and running a tap against an injected
// process image. Production code on Windows omits the locator and opener
// options and attaches to the live game.
func ExampleNew() {
	// A stand-in for the game process: one mapped region and a window.
	img := proc.NewImage(0x400000, make([]byte, 1<<16))
	windows := []ports.WindowInfo{{Title: "DOSBox 0.74, Cpu speed: max", PID: 1234}}

	cfg := simtap.Config{
		Version:      "DOS",
		PollInterval: 50 * time.Millisecond,
	}

	tap, err := simtap.New(cfg,
		simtap.WithLocator(proc.StaticLocator{Windows: windows}),
		simtap.WithMemoryOpener(proc.ImageOpener{Image: img}),
	)
	if err != nil {
		fmt.Printf("failed to create tap: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := tap.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	// The image above has no signature, so the tap keeps retrying the
	// attach until stopped.
	state := tap.State()
	fmt.Printf("running: %v\n", state == simtap.StateIdle || state == simtap.StateAttaching)

	_ = tap.Stop()

	// Output: running: true
}

// Example_consumeSnapshots shows the standard consumption loop.
func Example_consumeSnapshots() {
	cfg := simtap.Config{Version: "REND32A"}

	tap, err := simtap.New(cfg,
		simtap.WithLocator(proc.StaticLocator{}),
		simtap.WithMemoryOpener(proc.ImageOpener{}),
	)
	if err != nil {
		fmt.Printf("failed to create tap: %v\n", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tap.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case snap := <-tap.Snapshots():
				_ = snap // consume telemetry
			case ev := <-tap.Events():
				if ev.Kind == simtap.EventDetached {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel()
	<-done
	_ = tap.Stop()

	fmt.Println("done")
	// Output: done
}
