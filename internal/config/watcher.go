package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/camhal/camhal/internal/logging"
)

// reloadDebounce coalesces editor save bursts into one reload.
const reloadDebounce = 1500 * time.Millisecond

// LogLevelReloader watches the config file and re-applies the logging
// section when it changes, so per-module levels can be raised on a live
// HAL (say, v4l2 to debug while chasing a driver) without restarting
// capture.
type LogLevelReloader struct {
	path   string
	apply  func(logging.Config)
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLogLevelReloader creates a reloader for the given config file.
// apply receives the freshly loaded logging section on every change.
func NewLogLevelReloader(path string, apply func(logging.Config), logger *slog.Logger) *LogLevelReloader {
	return &LogLevelReloader{path: path, apply: apply, logger: logger}
}

// Start begins watching the config file. A missing file is an error;
// callers treat it as "no live reload" rather than fatal.
func (r *LogLevelReloader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return err
	}

	r.watcher = watcher
	r.done = make(chan struct{})
	r.logger.Info("Watching config for log level changes", "path", r.path)
	go r.run(watcher, r.done)
	return nil
}

// Stop ends the watch.
func (r *LogLevelReloader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher == nil {
		return
	}
	close(r.done)
	r.watcher.Close()
	r.watcher = nil
}

func (r *LogLevelReloader) run(watcher *fsnotify.Watcher, done chan struct{}) {
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-done:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Writes are the common case; some editors replace the file,
			// which arrives as a create.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(reloadDebounce)
			fire = debounce.C

		case <-fire:
			fire = nil
			cfg := LoadLoggingConfig(r.path)
			r.logger.Info("Config changed, re-applying log levels",
				"level", cfg.Level, "modules", len(cfg.Modules))
			r.apply(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("Config watcher error", "error", err)
		}
	}
}
