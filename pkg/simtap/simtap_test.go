package simtap_test

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/oval-labs/simtap/internal/adapters/proc"
	"github.com/oval-labs/simtap/internal/offsets"
	"github.com/oval-labs/simtap/internal/ports"
	"github.com/oval-labs/simtap/pkg/simtap"
)

const imageBase = 0x00300000

// liveImage builds a REND32A process image with a pace car and two drivers.
func liveImage(t *testing.T) *proc.Image {
	t.Helper()
	tab, err := offsets.ForVersion(offsets.VersionREND32A)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 0x100000)
	putU32 := func(off uint32, v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
	}

	copy(buf[tab.SignatureOffset:], "license with Bob")
	putU32(tab.CarsAddr, 3)
	putU32(tab.LapsAddr, 40)
	putU32(tab.TrackLengthAddr, 31680000)
	copy(buf[tab.CurrentTrackAddr:], "MICHIGAN\x00")
	copy(buf[tab.DriverNamesBase:], "Driver A\x00")
	copy(buf[tab.DriverNamesBase+uint32(tab.NameEntryBytes):], "Driver B\x00")
	putU32(tab.CarNumbersBase, 31)
	putU32(tab.CarNumbersBase+4, 2)

	car := func(slot, lap int, start, end uint32) {
		base := tab.CarStateBase + uint32(slot*tab.CarStateSize)
		putU32(base+tab.FieldCurrentLap, uint32(lap+1))
		putU32(base+tab.FieldLapClockStart, start)
		putU32(base+tab.FieldLapClockEnd, end)
	}
	car(0, 5, 100000, 160000)
	car(1, 12, 540000, 600000)
	car(2, 12, 541500, 601500)

	putU32(tab.RunOrderBase, 0)
	putU32(tab.RunOrderBase+4, 1)
	putU32(tab.RunOrderBase+8, 2)

	return proc.NewImage(imageBase, buf)
}

func injected(img *proc.Image) []simtap.Option {
	return []simtap.Option{
		simtap.WithLocator(proc.StaticLocator{Windows: []ports.WindowInfo{
			{Title: "DOSBox 0.74 - CART Racing", PID: 99},
		}}),
		simtap.WithMemoryOpener(proc.ImageOpener{Image: img}),
	}
}

func TestNewRejectsBadVersion(t *testing.T) {
	_, err := simtap.New(simtap.Config{Version: "NASCAR"}, injected(liveImage(t))...)
	if err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestTapStreamsSnapshots(t *testing.T) {
	img := liveImage(t)
	tap, err := simtap.New(simtap.Config{
		Version:      "REND32A",
		PollInterval: 20 * time.Millisecond,
	}, injected(img)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := tap.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case snap := <-tap.Snapshots():
		if snap.Count != 3 || snap.TotalLaps != 40 {
			t.Errorf("snapshot Count/TotalLaps = %d/%d", snap.Count, snap.TotalLaps)
		}
		if snap.Session.TrackName != "MICHIGAN" {
			t.Errorf("TrackName = %q", snap.Session.TrackName)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
	}

	if err := tap.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st := tap.State(); st != simtap.StateStopped {
		t.Errorf("state after Stop = %v, want Stopped", st)
	}
}

func TestTapDoubleStart(t *testing.T) {
	tap, err := simtap.New(simtap.Config{Version: "REND32A"}, injected(liveImage(t))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := tap.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tap.Start(ctx); !errors.Is(err, simtap.ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	_ = tap.Stop()
}

func TestTapStopWithoutStart(t *testing.T) {
	tap, err := simtap.New(simtap.Config{Version: "REND32A"}, injected(liveImage(t))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tap.Stop(); !errors.Is(err, simtap.ErrNotRunning) {
		t.Errorf("Stop = %v, want ErrNotRunning", err)
	}
}

func TestTapDetachesOnGameExit(t *testing.T) {
	img := liveImage(t)
	tap, err := simtap.New(simtap.Config{
		Version:      "REND32A",
		PollInterval: 20 * time.Millisecond,
	}, injected(img)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-tap.Snapshots():
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
	}
	img.SetExited()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-tap.Events():
			if ev.Kind == simtap.EventDetached {
				if !errors.Is(ev.Err, simtap.ErrProcessExited) {
					t.Errorf("detach err = %v", ev.Err)
				}
				// Worker winds down on its own; the tap ends Detached.
				for tap.State() != simtap.StateDetached {
					time.Sleep(5 * time.Millisecond)
				}
				return
			}
		case <-deadline:
			t.Fatal("no detach event")
		}
	}
}

func TestTapStateObserver(t *testing.T) {
	img := liveImage(t)

	transitions := make(chan simtap.State, 16)
	obs := observerFunc(func(_, cur simtap.State, _ string) { transitions <- cur })

	tap, err := simtap.New(simtap.Config{
		Version:      "REND32A",
		PollInterval: 20 * time.Millisecond,
	}, append(injected(img), simtap.WithStateObserver(obs))...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []simtap.State{simtap.StateAttaching, simtap.StatePolling}
	for _, w := range want {
		select {
		case got := <-transitions:
			if got != w {
				t.Fatalf("transition = %v, want %v", got, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("missing transition to %v", w)
		}
	}
	_ = tap.Stop()
}

// observerFunc adapts a function to the StateObserver interface.
type observerFunc func(prev, cur simtap.State, reason string)

func (f observerFunc) OnStateChange(prev, cur simtap.State, reason string) { f(prev, cur, reason) }
