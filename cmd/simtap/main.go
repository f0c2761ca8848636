package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/oval-labs/simtap/internal/adapters/log"
	"github.com/oval-labs/simtap/internal/cliconfig"
	"github.com/oval-labs/simtap/internal/domain"
	"github.com/oval-labs/simtap/pkg/simtap"
)

const longHelp = `simtap - live telemetry tap for IndyCar Racing II

Attaches to a running game process (DOSBox or native Windows build), locates
the data segment by signature scan, and streams decoded session state:
running order, lap times, gaps, pit and retirement status.

Configure via file ($HOME/.simtap/config.toml), environment (SIMTAP_*), or
flags; flags win over environment, environment wins over file.`

var exampleUsage = strings.TrimSpace(`
  simtap --game-version DOS
  simtap --game-version WINDY --poll 100ms
  simtap --config ./simtap.toml --once
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var keywords string

	root := &cobra.Command{
		Use:     "simtap",
		Short:   "Live telemetry tap for IndyCar Racing II",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags: explicitly set flags win over
			// file and environment values.
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if keywords != "" {
				cfg.WindowKeywords = cliconfig.SplitKeywords(keywords)
			}

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, cfgFile)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.simtap/config.toml)")
	root.Flags().StringVar(&cfg.GameVersion, "game-version", cfg.GameVersion, "game build: DOS, REND32A or WINDY")
	root.Flags().StringVar(&cfg.GameExe, "game-exe", cfg.GameExe, "path to the installed game executable, for version verification")
	root.Flags().StringVar(&keywords, "keywords", "", "comma-separated window title keywords (overrides build default)")
	root.Flags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "snapshot poll interval")
	root.Flags().DurationVar(&cfg.AttachRetry, "attach-retry", cfg.AttachRetry, "initial retry interval while waiting for the game")
	root.Flags().IntVar(&cfg.SnapshotBuffer, "snapshot-buffer", cfg.SnapshotBuffer, "snapshot channel capacity")
	root.Flags().BoolVar(&cfg.UniqueSignature, "unique-signature", cfg.UniqueSignature, "fail attach on ambiguous signature instead of taking the first match")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "print one snapshot and exit")
	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "simtap: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile string) error {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	logger := logAdapter.NewZerologAdapterWithLogger(zl)

	tapCfg := simtap.Config{
		Version:            cfg.GameVersion,
		WindowKeywords:     cfg.WindowKeywords,
		PollInterval:       cfg.PollInterval,
		AttachRetryInitial: cfg.AttachRetry,
		SnapshotBuffer:     cfg.SnapshotBuffer,
		UniqueSignature:    cfg.UniqueSignature,
	}

	tap, err := simtap.New(tapCfg, simtap.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create tap: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := tap.Start(runCtx); err != nil {
		return fmt.Errorf("start tap: %w", err)
	}

	// Live retuning of the poll interval from the config file.
	if cfgFile != "" {
		watcher := cliconfig.NewWatcher(cfgFile, logger, tap.SetPollInterval)
		if err := watcher.Start(runCtx); err != nil {
			zl.Warn().Err(err).Msg("config watcher failed to start")
		} else {
			defer watcher.Stop()
		}
	}

	for {
		select {
		case <-sigCh:
			zl.Info().Msg("received signal, stopping")
			cancel()
			return stopTap(tap)

		case snap := <-tap.Snapshots():
			printSnapshot(snap)
			if cfg.Once {
				cancel()
				return stopTap(tap)
			}

		case ev := <-tap.Events():
			switch ev.Kind {
			case simtap.EventAttached:
				zl.Info().
					Str("window", ev.Window.Title).
					Uint32("pid", ev.Window.PID).
					Str("base", fmt.Sprintf("0x%X", uint64(ev.Base))).
					Msg("attached")
			case simtap.EventError:
				zl.Warn().Err(ev.Err).Msg("session error")
			case simtap.EventDetached:
				zl.Info().Msg("game exited")
				return stopTap(tap)
			}
		}
	}
}

// stopTap stops the tap, treating "already stopped" as success: the worker
// may have exited on its own when the game went away.
func stopTap(tap *simtap.Tap) error {
	if err := tap.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	return nil
}

// printSnapshot renders one frame as a standings table on stdout.
func printSnapshot(snap *simtap.Snapshot) {
	fmt.Printf("--- seq %d  %s  cars %d  laps %d",
		snap.Seq, snap.Timestamp.Format("15:04:05.000"), snap.Count, snap.TotalLaps)
	if snap.Session.TrackName != "" {
		fmt.Printf("  %s (%.3f mi)", snap.Session.TrackName, snap.Session.TrackLengthMiles)
	}
	fmt.Println()

	for pos, slot := range snap.Order {
		if slot < 0 {
			continue
		}
		id := snap.Identities[slot]
		st := snap.Entities[slot]
		fmt.Printf("%3d  #%-3d %-24s lap %-4d %-8s %s\n",
			pos+1, id.CarNumber, id.Name, st.LapsCompleted, st.Status, formatGap(st.Gap))
	}
}

func formatGap(g simtap.Gap) string {
	switch g.Kind {
	case domain.GapLeader:
		return "Leader"
	case domain.GapTime:
		return fmt.Sprintf("%+.3fs", float64(g.TimeMS)/1000)
	case domain.GapLaps:
		if g.Laps == 1 {
			return "+1 lap"
		}
		return fmt.Sprintf("+%d laps", g.Laps)
	case domain.GapPitting:
		return "PIT"
	case domain.GapRetired:
		return g.Reason
	default:
		return ""
	}
}
