package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oval-labs/simtap/internal/ports"
)

// Watcher monitors a TOML config file and re-reads the poll interval when the
// file changes, so a running session can be retuned without a restart. Only
// poll_interval is applied live; everything else requires a restart.
type Watcher struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	logger        ports.Logger
	onInterval    func(time.Duration)

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// NewWatcher creates a watcher over the given config file. onInterval is
// called with each valid new poll interval.
func NewWatcher(path string, logger ports.Logger, onInterval func(time.Duration)) *Watcher {
	return &Watcher{
		path:          path,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger,
		onInterval:    onInterval,
	}
}

// Start begins watching. It is a no-op if the config file does not exist.
func (w *Watcher) Start(ctx context.Context) error {
	if !FileExists(w.path) {
		w.logger.Debug("config watcher disabled: file does not exist",
			ports.String("path", w.path))
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.watchLoop(watchCtx)
	return nil
}

// Stop shuts the watcher down and waits for its goroutine.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("config watcher: failed to create watcher", ports.Err(err))
		return
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save and
	// a file-level watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Error("config watcher: failed to watch directory", ports.Err(err))
		return
	}

	base := filepath.Base(w.path)
	w.logger.Info("config watcher started", ports.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher: watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config watcher: reload failed", ports.Err(err))
		return
	}
	if fc.PollInterval == "" {
		return
	}
	d, err := time.ParseDuration(fc.PollInterval)
	if err != nil {
		w.logger.Warn("config watcher: invalid poll_interval",
			ports.String("value", fc.PollInterval), ports.Err(err))
		return
	}
	if d <= 0 {
		w.logger.Warn("config watcher: poll_interval must be positive",
			ports.String("value", fc.PollInterval))
		return
	}
	w.logger.Info("config watcher: poll interval updated", ports.Duration("poll", d))
	w.onInterval(d)
}
