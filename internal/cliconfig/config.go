// Package cliconfig holds the CLI-facing configuration for simtap: defaults,
// TOML file loading, environment overrides, and flag precedence. The engine
// itself never reads configuration; it receives an immutable value.
package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oval-labs/simtap/internal/offsets"
)

// Config holds CLI configuration for simtap.
type Config struct {
	// GameVersion selects the offset table: DOS, REND32A or WINDY.
	GameVersion string

	// GameExe optionally points at the installed executable; when set, its
	// file size must match the configured version.
	GameExe string

	// WindowKeywords overrides the table's window-title keywords.
	WindowKeywords []string

	PollInterval time.Duration
	AttachRetry  time.Duration

	// SnapshotBuffer is the snapshot channel capacity.
	SnapshotBuffer int

	// UniqueSignature makes the base scan fail on a duplicated signature
	// instead of taking the first match.
	UniqueSignature bool

	// Once attaches, prints a single snapshot, and exits.
	Once bool

	// Debug enables debug-level logging.
	Debug bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		GameVersion:    "REND32A",
		PollInterval:   250 * time.Millisecond,
		AttachRetry:    500 * time.Millisecond,
		SnapshotBuffer: 8,
	}
}

// Validate checks the configuration and verifies the configured version
// against the installed executable when a path is given.
func (c *Config) Validate() error {
	v, err := offsets.ParseVersion(c.GameVersion)
	if err != nil {
		return err
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.AttachRetry <= 0 {
		return fmt.Errorf("attach retry interval must be positive")
	}

	if c.GameExe != "" {
		fi, err := os.Stat(c.GameExe)
		if err != nil {
			return fmt.Errorf("game exe %q is not accessible: %w", c.GameExe, err)
		}
		detected, ok := offsets.VersionForExeSize(fi.Size())
		if !ok {
			return fmt.Errorf("unrecognized game exe %q size %d bytes (known: %s)",
				c.GameExe, fi.Size(), knownSizes())
		}
		if detected != v {
			return fmt.Errorf("configured version %s does not match executable %q (detected %s)",
				v, c.GameExe, detected)
		}
	}
	return nil
}

// Table resolves the offset table for the configured version. Call after
// Validate.
func (c *Config) Table() (offsets.Table, error) {
	v, err := offsets.ParseVersion(c.GameVersion)
	if err != nil {
		return offsets.Table{}, err
	}
	return offsets.ForVersion(v)
}

func knownSizes() string {
	var parts []string
	for size, v := range offsets.KnownExeSizes() {
		parts = append(parts, fmt.Sprintf("%s=%d", v, size))
	}
	return strings.Join(parts, ", ")
}

// SplitKeywords parses a comma-separated keyword list, dropping empties.
func SplitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// configSetter helps apply configuration values while respecting flag
// precedence: it only applies a value if the corresponding flag has not been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if n > 0 {
		*dst = n
	}
	return nil
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

func (s *configSetter) setKeywords(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	if kw := SplitKeywords(value); len(kw) > 0 {
		*dst = kw
	}
}
