package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	GameVersion     string `toml:"game_version"`
	GameExe         string `toml:"game_exe"`
	WindowKeywords  string `toml:"window_keywords"`
	PollInterval    string `toml:"poll_interval"`
	AttachRetry     string `toml:"attach_retry"`
	SnapshotBuffer  int    `toml:"snapshot_buffer"`
	UniqueSignature *bool  `toml:"unique_signature"`
	Once            *bool  `toml:"once"`
	Debug           *bool  `toml:"debug"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.simtap/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".simtap", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("game-version", fc.GameVersion, &cfg.GameVersion)
	s.setString("game-exe", fc.GameExe, &cfg.GameExe)
	s.setKeywords("keywords", fc.WindowKeywords, &cfg.WindowKeywords)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("attach-retry", fc.AttachRetry, &cfg.AttachRetry); err != nil {
		return err
	}

	s.setInt("snapshot-buffer", fc.SnapshotBuffer, &cfg.SnapshotBuffer)

	s.setBool("unique-signature", fc.UniqueSignature, &cfg.UniqueSignature)
	s.setBool("once", fc.Once, &cfg.Once)
	s.setBool("debug", fc.Debug, &cfg.Debug)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
