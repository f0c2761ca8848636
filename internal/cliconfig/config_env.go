package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (SIMTAP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("game-version", os.Getenv("SIMTAP_GAME_VERSION"), &cfg.GameVersion)
	s.setString("game-exe", os.Getenv("SIMTAP_GAME_EXE"), &cfg.GameExe)
	s.setKeywords("keywords", os.Getenv("SIMTAP_WINDOW_KEYWORDS"), &cfg.WindowKeywords)

	if err := s.setDuration("poll", os.Getenv("SIMTAP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("attach-retry", os.Getenv("SIMTAP_ATTACH_RETRY"), &cfg.AttachRetry); err != nil {
		return err
	}

	if err := s.setIntFromString("snapshot-buffer", os.Getenv("SIMTAP_SNAPSHOT_BUFFER"), &cfg.SnapshotBuffer); err != nil {
		return err
	}

	s.setBoolFromString("unique-signature", os.Getenv("SIMTAP_UNIQUE_SIGNATURE"), &cfg.UniqueSignature)
	s.setBoolFromString("once", os.Getenv("SIMTAP_ONCE"), &cfg.Once)
	s.setBoolFromString("debug", os.Getenv("SIMTAP_DEBUG"), &cfg.Debug)

	return nil
}
