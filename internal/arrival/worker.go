// Package arrival turns a single file-creation event into at most one move.
package arrival

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"kaizen/internal/classifier"
	"kaizen/internal/config"
	"kaizen/internal/notify"
	"kaizen/internal/organizer"
	"kaizen/internal/stats"
	"kaizen/internal/store"
	"kaizen/internal/watcher"
)

var (
	// ErrIgnored is returned for paths matching an ignore pattern.
	ErrIgnored = errors.New("path matches an ignore pattern")
	// ErrVanished is returned when the file is gone, or is a directory, by
	// the time it is processed.
	ErrVanished = errors.New("file vanished before processing")
	// ErrUnclassified is returned when no category claims the extension.
	ErrUnclassified = errors.New("no category for file extension")
)

// Status is the terminal state of one arrival.
type Status string

const (
	StatusMoved   Status = "moved"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome describes what happened to one arrival.
type Outcome struct {
	Path        string
	Name        string
	Category    string
	Status      Status
	Destination string
	Attempts    int
}

// Mover relocates a file into its category folder.
type Mover interface {
	Move(src, outputDir, category string) (*organizer.MoveResult, error)
}

// Reporter receives successful moves for batched reporting.
type Reporter interface {
	Add(name, category string)
}

// Counter increments the files-moved statistic.
type Counter interface {
	AddFilesMoved(n int64) stats.Stats
}

// History records completed moves. It may be nil.
type History interface {
	RecordMove(ctx context.Context, m store.MoveRecord) error
}

// Settings is the slice of configuration a Worker reads per event.
type Settings struct {
	OutputDir       string
	Settle          time.Duration
	RetryCount      int
	RetryBackoff    time.Duration
	StableSizeCheck bool
	Classifier      *classifier.Classifier
	Filter          *watcher.FileFilter
}

// SettingsFromConfig derives worker settings from a configuration snapshot.
func SettingsFromConfig(cfg *config.Configuration) *Settings {
	return &Settings{
		OutputDir:       cfg.OutputDir,
		Settle:          time.Duration(cfg.Arrival.SettleMs) * time.Millisecond,
		RetryCount:      cfg.Arrival.RetryCount,
		RetryBackoff:    time.Duration(cfg.Arrival.RetryBackoffMs) * time.Millisecond,
		StableSizeCheck: cfg.Arrival.StableSizeCheck,
		Classifier:      classifier.FromConfig(cfg.Categories),
		Filter:          watcher.NewFileFilter(cfg.IgnorePatterns),
	}
}

// Deps are the collaborators a Worker reports to.
type Deps struct {
	Mover    Mover
	Reporter Reporter
	Sink     notify.Sink
	Counter  Counter
	History  History
	Logger   zerolog.Logger
}

// Worker processes arrival events. It is safe for concurrent use; each call to
// Process is independent and sequential within itself.
type Worker struct {
	settings atomic.Pointer[Settings]
	deps     Deps
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a Worker with the given settings.
func NewWorker(settings *Settings, deps Deps) *Worker {
	w := &Worker{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "arrival").Logger(),
		sleep:  sleepCtx,
	}
	w.settings.Store(settings)
	return w
}

// Configure swaps the settings used by events processed from now on. Events
// already in progress keep the snapshot they started with.
func (w *Worker) Configure(settings *Settings) {
	w.settings.Store(settings)
}

// Settings returns the current settings snapshot.
func (w *Worker) Settings() *Settings {
	return w.settings.Load()
}

// Handle processes ev and discards the result. It matches the dispatcher's
// job signature.
func (w *Worker) Handle(ev watcher.Event) {
	_, _ = w.Process(context.Background(), ev)
}

// Process runs the arrival pipeline for one event: ignore check, settle
// delay, existence check, classification, then the move with bounded retry
// on lock errors. Skips are reported through the sentinel errors; only a
// failed move produces a user notification.
func (w *Worker) Process(ctx context.Context, ev watcher.Event) (Outcome, error) {
	s := w.settings.Load()
	out := Outcome{Path: ev.Path, Name: filepath.Base(ev.Path), Status: StatusSkipped}

	if s.Filter != nil && s.Filter.ShouldIgnore(ev.Path) {
		return out, ErrIgnored
	}

	if err := w.sleep(ctx, s.Settle); err != nil {
		return out, err
	}
	if s.StableSizeCheck {
		checker := watcher.NewStabilityChecker(s.Settle)
		if err := checker.WaitForStable(ctx, ev.Path); err != nil {
			if errors.Is(err, watcher.ErrFileNotFound) || os.IsNotExist(err) {
				return out, ErrVanished
			}
			w.logger.Debug().Err(err).Str("path", ev.Path).Msg("stability wait ended early")
		}
	}

	info, err := os.Stat(ev.Path)
	if err != nil || info.IsDir() {
		return out, ErrVanished
	}

	category, ok := s.Classifier.Classify(out.Name)
	if !ok {
		return out, ErrUnclassified
	}
	out.Category = category

	result, err := w.moveWithRetry(ctx, s, ev.Path, category, &out)
	if err != nil {
		var moveErr *organizer.MoveError
		if errors.As(err, &moveErr) && moveErr.Type == organizer.SourceNotFound {
			out.Status = StatusSkipped
			return out, ErrVanished
		}
		out.Status = StatusFailed
		w.logger.Warn().Err(err).Str("path", ev.Path).Int("attempts", out.Attempts).Msg("abandoned move")
		if w.deps.Sink != nil {
			w.deps.Sink.Push(notify.NewMessage(notify.SeverityError, category, failureText(out.Name, err)))
		}
		return out, err
	}

	out.Status = StatusMoved
	out.Destination = result.DestinationPath
	w.logger.Info().
		Str("source", result.SourcePath).
		Str("destination", result.DestinationPath).
		Str("category", category).
		Bool("renamed", result.Renamed).
		Msg("moved file")

	if w.deps.Counter != nil {
		w.deps.Counter.AddFilesMoved(1)
	}
	if w.deps.History != nil {
		rec := store.MoveRecord{
			SourcePath: result.SourcePath,
			DestPath:   result.DestinationPath,
			Category:   category,
			Renamed:    result.Renamed,
			MovedAt:    time.Now(),
		}
		if err := w.deps.History.RecordMove(ctx, rec); err != nil {
			w.logger.Error().Err(err).Msg("failed to record move history")
		}
	}
	if w.deps.Reporter != nil {
		w.deps.Reporter.Add(out.Name, category)
	}
	return out, nil
}

// moveWithRetry attempts the move once plus up to RetryCount retries while
// the failure is a lock. The n-th retry waits RetryBackoff*n.
func (w *Worker) moveWithRetry(ctx context.Context, s *Settings, path, category string, out *Outcome) (*organizer.MoveResult, error) {
	for attempt := 0; ; attempt++ {
		out.Attempts = attempt + 1
		result, err := w.deps.Mover.Move(path, s.OutputDir, category)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, organizer.ErrLocked) || attempt >= s.RetryCount {
			return nil, err
		}
		w.logger.Debug().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("file locked, retrying")
		if err := w.sleep(ctx, s.RetryBackoff*time.Duration(attempt+1)); err != nil {
			return nil, err
		}
	}
}

func failureText(name string, err error) string {
	if errors.Is(err, organizer.ErrLocked) {
		return fmt.Sprintf("Could not move %s: file is in use", name)
	}
	var moveErr *organizer.MoveError
	if errors.As(err, &moveErr) && moveErr.Type == organizer.PermissionDenied {
		return fmt.Sprintf("Could not move %s: permission denied", name)
	}
	return fmt.Sprintf("Could not move %s", name)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
