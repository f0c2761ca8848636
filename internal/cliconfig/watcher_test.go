package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oval-labs/simtap/internal/ports"
)

type quietLogger struct{}

func (quietLogger) Debug(string, ...ports.Field) {}
func (quietLogger) Info(string, ...ports.Field)  {}
func (quietLogger) Warn(string, ...ports.Field)  {}
func (quietLogger) Error(string, ...ports.Field) {}

func TestWatcherReloadsPollInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "250ms"`), 0o644); err != nil {
		t.Fatal(err)
	}

	got := make(chan time.Duration, 4)
	w := NewWatcher(path, quietLogger{}, func(d time.Duration) { got <- d })
	w.debounceDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Give the directory watch a moment to establish before rewriting.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`poll_interval = "100ms"`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-got:
		if d != 100*time.Millisecond {
			t.Errorf("reloaded interval = %v, want 100ms", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload callback")
	}
}

func TestWatcherIgnoresInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "250ms"`), 0o644); err != nil {
		t.Fatal(err)
	}

	got := make(chan time.Duration, 4)
	w := NewWatcher(path, quietLogger{}, func(d time.Duration) { got <- d })
	w.debounceDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`poll_interval = "-5s"`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-got:
		t.Errorf("invalid interval %v was applied", d)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherMissingFileIsNoop(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "absent.toml"), quietLogger{},
		func(time.Duration) { t.Error("callback for missing file") })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
}
