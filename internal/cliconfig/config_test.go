package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/oval-labs/simtap/internal/offsets"
)

// writeExe creates a file of exactly size bytes and returns its path.
func writeExe(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "INDYCAR.EXE")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown version",
			mutate:  func(c *Config) { c.GameVersion = "NASCAR" },
			wantErr: "unsupported version",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.PollInterval = 0 },
			wantErr: "poll interval",
		},
		{
			name:    "negative attach retry",
			mutate:  func(c *Config) { c.AttachRetry = -time.Second },
			wantErr: "attach retry",
		},
		{
			name:    "missing exe",
			mutate:  func(c *Config) { c.GameExe = "/no/such/file.exe" },
			wantErr: "not accessible",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExeSize(t *testing.T) {
	t.Run("matching version", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GameVersion = "DOS"
		cfg.GameExe = writeExe(t, 1142387)
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("version mismatch", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GameVersion = "REND32A"
		cfg.GameExe = writeExe(t, 1142387) // DOS-sized
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "does not match") {
			t.Errorf("err = %v, want version mismatch", err)
		}
	})

	t.Run("unknown size", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GameExe = writeExe(t, 999)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "unrecognized") {
			t.Errorf("err = %v, want unrecognized size", err)
		}
	})
}

func TestConfigTable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GameVersion = "windy"
	tab, err := cfg.Table()
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if tab.Version != offsets.VersionWINDY {
		t.Errorf("Version = %v, want WINDY", tab.Version)
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"dosbox,cart", []string{"dosbox", "cart"}},
		{" dosbox , cart ", []string{"dosbox", "cart"}},
		{"solo", []string{"solo"}},
		{",,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitKeywords(tt.input)); diff != "" {
			t.Errorf("SplitKeywords(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}
