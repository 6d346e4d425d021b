package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultReloadDelay is how long the file must be quiet before it is re-read.
const DefaultReloadDelay = 250 * time.Millisecond

// Reloader watches a configuration file and reports each valid new version.
// Editors often replace files with rename, so the parent directory is watched
// and events are filtered by file name.
type Reloader struct {
	path     string
	delay    time.Duration
	onChange func(*Configuration)
	onFail   func(error)
	logger   zerolog.Logger

	newWatcher func() (*fsnotify.Watcher, error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewReloader creates a Reloader for path. onChange receives only configs that
// loaded and validated successfully.
func NewReloader(path string, onChange func(*Configuration), logger zerolog.Logger) *Reloader {
	return &Reloader{
		path:     path,
		delay:    DefaultReloadDelay,
		onChange: onChange,
		logger:   logger.With().Str("component", "config-reload").Logger(),

		newWatcher: fsnotify.NewWatcher,
	}
}

// OnUnavailable registers fn to be told when the file cannot be watched at
// all. A missing config directory is not reported.
func (r *Reloader) OnUnavailable(fn func(error)) *Reloader {
	r.onFail = fn
	return r
}

// Run blocks until ctx is cancelled. A reloader that cannot watch the file
// stays idle instead of failing, so the caller keeps running.
func (r *Reloader) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(r.path)
	if err != nil {
		return r.idle(ctx, fmt.Errorf("resolve config path: %w", err))
	}

	w, err := r.newWatcher()
	if err != nil {
		return r.idle(ctx, fmt.Errorf("create config watcher: %w", err))
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(absPath)); err != nil {
		// No config directory means nothing to reload; not fatal.
		r.logger.Warn().Err(err).Str("path", absPath).Msg("config reload disabled")
		<-ctx.Done()
		return nil
	}

	defer r.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.schedule(absPath)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Msg("config watch error")
		}
	}
}

func (r *Reloader) idle(ctx context.Context, err error) error {
	r.logger.Error().Err(err).Str("path", r.path).Msg("config reload unavailable")
	if r.onFail != nil {
		r.onFail(err)
	}
	<-ctx.Done()
	return nil
}

func (r *Reloader) schedule(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() { r.reload(path) })
}

func (r *Reloader) reload(path string) {
	cfg, err := Load(path)
	if err != nil {
		r.logger.Error().Err(err).Msg("config reload failed, keeping previous settings")
		return
	}
	r.logger.Info().Str("path", path).Msg("config reloaded")
	if r.onChange != nil {
		r.onChange(cfg)
	}
}

func (r *Reloader) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
