// Package orchestrator wires the watcher, arrival workers, focus timer and
// notification plumbing together and owns their lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"kaizen/internal/arrival"
	"kaizen/internal/config"
	"kaizen/internal/focus"
	"kaizen/internal/launcher"
	"kaizen/internal/notify"
	"kaizen/internal/organizer"
	"kaizen/internal/stats"
	"kaizen/internal/store"
	"kaizen/internal/watcher"
)

const (
	msgSettingsReloaded  = "Settings reloaded."
	msgReloadUnavailable = "Config reload unavailable: "
)

// Deps are the outside resources an Orchestrator uses.
type Deps struct {
	Queue        *notify.Queue
	Store        *store.Store // optional; without it nothing is persisted
	Launcher     launcher.Launcher
	Bell         func()
	Logger       zerolog.Logger
	FocusOptions []focus.Option
}

// Orchestrator owns every long-lived component of a session.
type Orchestrator struct {
	holder     *config.Holder
	configPath string
	queue      *notify.Queue
	logger     zerolog.Logger

	tracker     *stats.Tracker
	batcher     *notify.Batcher
	arrivalDeps arrival.Deps
	worker      *arrival.Worker
	focus       *focus.Machine
	watcher     *watcher.Watcher
	dispatcher  atomic.Pointer[watcher.Dispatcher]

	mu        sync.Mutex
	running   bool
	closed    bool
	closeOnce sync.Once
}

// New builds an Orchestrator around the configuration in holder. configPath
// is watched for changes while Run is active; it may be empty.
func New(holder *config.Holder, configPath string, deps Deps) (*Orchestrator, error) {
	if deps.Queue == nil {
		deps.Queue = notify.NewQueue()
	}
	cfg := holder.Load()
	logger := deps.Logger.With().Str("component", "orchestrator").Logger()

	var (
		initial        stats.Stats
		persister      stats.Persister
		moveHistory    arrival.History
		sessionHistory focus.History
	)
	if deps.Store != nil {
		loaded, err := deps.Store.LoadStats(context.Background())
		if err != nil {
			return nil, err
		}
		initial = loaded
		persister = deps.Store
		moveHistory = deps.Store
		sessionHistory = deps.Store
	}

	o := &Orchestrator{
		holder:     holder,
		configPath: configPath,
		queue:      deps.Queue,
		logger:     logger,
	}
	o.tracker = stats.NewTracker(initial, persister, deps.Logger)
	o.batcher = notify.NewBatcher(deps.Queue, batchWindow(cfg))
	o.arrivalDeps = arrival.Deps{
		Mover:    organizer.NewMover(),
		Reporter: o.batcher,
		Sink:     deps.Queue,
		Counter:  o.tracker,
		History:  moveHistory,
		Logger:   deps.Logger,
	}
	o.worker = arrival.NewWorker(arrival.SettingsFromConfig(cfg), o.arrivalDeps)
	o.focus = focus.New(focus.SettingsFromConfig(cfg), focus.Deps{
		Sink:     deps.Queue,
		Counter:  o.tracker,
		History:  sessionHistory,
		Launcher: deps.Launcher,
		Bell:     deps.Bell,
		Logger:   deps.Logger,
	}, deps.FocusOptions...)
	o.watcher = watcher.New(o.submit, deps.Logger)
	o.warnOverlaps(cfg)
	return o, nil
}

// Queue returns the notification channel the UI drains.
func (o *Orchestrator) Queue() *notify.Queue { return o.queue }

// Focus returns the focus session machine.
func (o *Orchestrator) Focus() *focus.Machine { return o.focus }

// Stats returns the current counters.
func (o *Orchestrator) Stats() stats.Stats { return o.tracker.Snapshot() }

// Config returns the active configuration snapshot.
func (o *Orchestrator) Config() *config.Configuration { return o.holder.Load() }

// WatchedRoots returns the roots the watcher is attached to.
func (o *Orchestrator) WatchedRoots() []string { return o.watcher.Roots() }

// Run watches the configured roots and reacts to configuration changes until
// ctx is cancelled, then shuts everything down. In-flight arrivals are
// allowed to finish before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.holder.Load()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return errors.New("orchestrator is closed")
	}
	o.dispatcher.Store(watcher.NewDispatcher(cfg.Arrival.Workers, cfg.Arrival.QueueSize, o.worker.Handle))
	o.running = true
	o.startWatcherLocked(cfg)
	o.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	if o.configPath != "" {
		g.Go(func() error {
			return config.NewReloader(o.configPath, o.Apply, o.logger).
				OnUnavailable(o.reloadUnavailable).
				Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	o.Close()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Apply installs cfg as the active configuration. The watcher is restarted
// on the new roots, arrival settings take effect for new events, and the
// focus timer is reset if its settings changed.
func (o *Orchestrator) Apply(cfg *config.Configuration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	prev := o.holder.Swap(cfg)
	o.warnOverlaps(cfg)
	o.worker.Configure(arrival.SettingsFromConfig(cfg))
	if o.running {
		o.startWatcherLocked(cfg)
	}
	if prev == nil || !sameFocus(prev.Focus, cfg.Focus) {
		o.focus.Reconfigure(focus.SettingsFromConfig(cfg))
	}
	o.queue.Push(notify.NewMessage(notify.SeverityInfo, "", msgSettingsReloaded))
	o.logger.Info().Strs("watch_paths", cfg.WatchPaths).Msg("settings applied")
}

// Close stops the watcher, waits for queued arrivals, flushes pending
// notifications and persists the final counters. It is safe to call more
// than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.running = false
		o.mu.Unlock()

		summary := o.watcher.Stop()
		if d := o.dispatcher.Load(); d != nil {
			d.Close()
		}
		o.batcher.Close()
		o.focus.Close()
		o.tracker.Close()

		o.logger.Info().
			Int64("events", summary.EventsSeen).
			Int64("dispatched", summary.Dispatched).
			Dur("duration", summary.Duration).
			Msg("automation stopped")
	})
}

func (o *Orchestrator) startWatcherLocked(cfg *config.Configuration) {
	n, err := o.watcher.Start(cfg.WatchPaths)
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to start watcher")
		o.queue.Push(notify.NewMessage(notify.SeverityError, "", "File watching unavailable: "+err.Error()))
		return
	}
	if n == 0 {
		o.queue.Push(notify.NewMessage(notify.SeverityWarning, "", "No valid watch folders. Automation idle."))
	}
}

// submit hands a watcher event to the dispatcher, blocking while its queue
// is full. It runs on the watcher goroutine and must not take o.mu, which is
// held while the watcher restarts.
func (o *Orchestrator) submit(ctx context.Context, ev watcher.Event) {
	d := o.dispatcher.Load()
	if d == nil {
		return
	}
	if err := d.Submit(ctx, ev); err != nil {
		o.logger.Debug().Err(err).Str("path", ev.Path).Msg("event not dispatched")
	}
}

func (o *Orchestrator) reloadUnavailable(err error) {
	o.queue.Push(notify.NewMessage(notify.SeverityWarning, "", msgReloadUnavailable+err.Error()))
}

func (o *Orchestrator) warnOverlaps(cfg *config.Configuration) {
	if dupes := cfg.OverlappingExtensions(); len(dupes) > 0 {
		o.logger.Warn().Strs("extensions", dupes).Msg("extensions listed in several categories; the first category wins")
	}
}

func batchWindow(cfg *config.Configuration) time.Duration {
	return time.Duration(cfg.Notify.BatchWindowMs) * time.Millisecond
}

func sameFocus(a, b config.Focus) bool {
	return a.WorkMinutes == b.WorkMinutes &&
		a.BreakMinutes == b.BreakMinutes &&
		a.Tool == b.Tool &&
		slices.Equal(a.URLs, b.URLs)
}
