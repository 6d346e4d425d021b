// Package watcher provides file system monitoring for automatic file organization.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Event is a single file-creation notification. It is consumed by exactly
// one worker and never persisted.
type Event struct {
	Path       string
	DetectedAt time.Time
}

// Handler receives events from the watch goroutine. ctx is cancelled when
// Stop is called so a handler blocked on back-pressure can give up.
type Handler func(ctx context.Context, ev Event)

// WatchSummary contains stats from one watch session.
type WatchSummary struct {
	Roots      []string
	EventsSeen int64
	Dispatched int64
	Duration   time.Duration
}

// Watcher monitors a set of directories, non-recursively, for new files.
// Start and Stop may be called repeatedly; a Start while running performs a
// full Stop first so the same path is never watched twice.
type Watcher struct {
	handler Handler
	logger  zerolog.Logger

	// mu serialises Start and Stop.
	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	roots     []string
	running   bool
	startTime time.Time

	eventsSeen atomic.Int64
	dispatched atomic.Int64
}

// New creates a Watcher that passes each creation event to handler.
func New(handler Handler, logger zerolog.Logger) *Watcher {
	return &Watcher{
		handler: handler,
		logger:  logger.With().Str("component", "watcher").Logger(),
	}
}

// Start subscribes to creation events for every valid root and returns how
// many roots were attached. Roots that are missing or not directories are
// skipped. With zero valid roots the watcher stays idle and Start returns
// (0, nil).
func (w *Watcher) Start(roots []string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.stopLocked()
	}

	valid := validRoots(roots, w.logger)
	if len(valid) == 0 {
		w.logger.Info().Msg("no valid watch roots, watcher idle")
		return 0, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, err
	}

	attached := make([]string, 0, len(valid))
	for _, root := range valid {
		if err := fsw.Add(root); err != nil {
			w.logger.Warn().Err(err).Str("root", root).Msg("failed to watch root, skipping")
			continue
		}
		attached = append(attached, root)
	}
	if len(attached) == 0 {
		fsw.Close()
		return 0, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.fsWatcher = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	w.roots = attached
	w.running = true
	w.startTime = time.Now()
	w.eventsSeen.Store(0)
	w.dispatched.Store(0)

	w.wg.Add(1)
	go w.processEvents(ctx, fsw, w.done)

	w.logger.Info().Strs("roots", attached).Msg("watching")
	return len(attached), nil
}

// Stop releases the OS watch handles and blocks until the event goroutine
// has exited. No handler call starts after Stop returns. Stop on an idle
// watcher returns an empty summary.
func (w *Watcher) Stop() *WatchSummary {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return &WatchSummary{}
	}
	return w.stopLocked()
}

func (w *Watcher) stopLocked() *WatchSummary {
	close(w.done)
	w.cancel()
	w.wg.Wait()
	if err := w.fsWatcher.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("closing fsnotify watcher")
	}

	summary := &WatchSummary{
		Roots:      w.roots,
		EventsSeen: w.eventsSeen.Load(),
		Dispatched: w.dispatched.Load(),
		Duration:   time.Since(w.startTime),
	}

	w.fsWatcher = nil
	w.cancel = nil
	w.roots = nil
	w.running = false
	return summary
}

// Running reports whether any root is being watched.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Roots returns the attached roots.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// processEvents handles file system events from fsnotify.
func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			// Only Create events count as arrivals
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.eventsSeen.Add(1)

			// Stop may have been requested while this event was queued
			select {
			case <-done:
				return
			default:
			}

			if isDir(event.Name) {
				continue
			}
			w.dispatched.Add(1)
			w.handler(ctx, Event{Path: event.Name, DetectedAt: time.Now()})
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

// validRoots makes roots absolute, removes duplicates and drops anything that
// is not an existing directory.
func validRoots(roots []string, logger zerolog.Logger) []string {
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.Warn().Err(err).Str("root", root).Msg("invalid watch root, skipping")
			continue
		}
		if seen[abs] {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			logger.Warn().Str("root", abs).Msg("watch root missing or not a directory, skipping")
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out
}
