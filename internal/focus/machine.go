// Package focus implements the work/break interval timer.
package focus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kaizen/internal/config"
	"kaizen/internal/launcher"
	"kaizen/internal/notify"
	"kaizen/internal/stats"
	"kaizen/internal/store"
)

// ErrAlreadyActive is returned by Start while a session is running.
var ErrAlreadyActive = errors.New("focus session already active")

// Phase is the state of the machine.
type Phase string

const (
	PhaseIdle  Phase = "IDLE"
	PhaseWork  Phase = "WORK"
	PhaseBreak Phase = "BREAK"
)

const (
	msgFocusComplete = "Focus complete! Take a break."
	msgBreakOver     = "Break over. Back to work!"
)

// Settings are the durations and launch targets of a session.
type Settings struct {
	Work  time.Duration
	Break time.Duration
	URLs  []string
	Tool  string
}

// SettingsFromConfig derives Settings from a configuration snapshot.
func SettingsFromConfig(cfg *config.Configuration) Settings {
	return Settings{
		Work:  time.Duration(cfg.Focus.WorkMinutes) * time.Minute,
		Break: time.Duration(cfg.Focus.BreakMinutes) * time.Minute,
		URLs:  append([]string(nil), cfg.Focus.URLs...),
		Tool:  cfg.Focus.Tool,
	}
}

// Session is a point-in-time view of the machine.
type Session struct {
	ID               string
	Phase            Phase
	SecondsRemaining int
	Active           bool
	StartedAt        time.Time
}

// Remaining formats SecondsRemaining as MM:SS.
func (s Session) Remaining() string {
	return fmt.Sprintf("%02d:%02d", s.SecondsRemaining/60, s.SecondsRemaining%60)
}

// Counter receives focus statistics.
type Counter interface {
	AddMinutesFocused(n int64) stats.Stats
	AddSessionsCompleted(n int64) stats.Stats
}

// History records work sessions. It may be nil.
type History interface {
	RecordSession(ctx context.Context, r store.SessionRecord) error
}

// Deps are the collaborators of a Machine. Any of them may be nil.
type Deps struct {
	Sink     notify.Sink
	Counter  Counter
	History  History
	Launcher launcher.Launcher
	Bell     func()
	Logger   zerolog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithTickInterval sets the real-time length of one tick.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.interval = d }
}

// WithManualTicks disables the internal ticker; the caller drives Tick.
func WithManualTicks() Option {
	return func(m *Machine) { m.manual = true }
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine is the IDLE/WORK/BREAK state machine. One tick is one second of
// session time. A ticker goroutine exists only while a session is active.
type Machine struct {
	deps     Deps
	logger   zerolog.Logger
	interval time.Duration
	manual   bool
	now      func() time.Time

	mu             sync.Mutex
	settings       Settings
	session        Session
	workSeconds    int // seconds elapsed in the current work phase
	onChange       func(Session)
	stopTicker     chan struct{}
	tickerDone     chan struct{}
	launchCtx      context.Context
	cancelLaunches context.CancelFunc

	bg sync.WaitGroup
}

// New creates an idle Machine.
func New(settings Settings, deps Deps, opts ...Option) *Machine {
	m := &Machine{
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "focus").Logger(),
		interval: time.Second,
		now:      time.Now,
		settings: settings,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.launchCtx, m.cancelLaunches = context.WithCancel(context.Background())
	m.session = idleSession(settings)
	return m
}

func idleSession(s Settings) Session {
	return Session{Phase: PhaseIdle, SecondsRemaining: seconds(s.Work)}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// setObserver registers fn to be called with a snapshot after every state
// change. fn runs outside the machine's lock and must not call Stop or
// Reconfigure from the ticker goroutine.
func (m *Machine) setObserver(fn func(Session)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Snapshot returns the current session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Start moves IDLE to WORK, fires the configured launches and starts ticking.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.session.Active {
		m.mu.Unlock()
		return ErrAlreadyActive
	}
	m.session = Session{
		ID:               uuid.NewString(),
		Phase:            PhaseWork,
		SecondsRemaining: seconds(m.settings.Work),
		Active:           true,
		StartedAt:        m.now(),
	}
	m.workSeconds = 0
	settings := m.settings
	if !m.manual {
		m.stopTicker = make(chan struct{})
		m.tickerDone = make(chan struct{})
		go m.run(m.stopTicker, m.tickerDone)
	}
	snap, fn := m.session, m.onChange
	m.mu.Unlock()

	m.logger.Info().Str("session", snap.ID).Msg("focus session started")
	m.launch(settings)
	if fn != nil {
		fn(snap)
	}
	return nil
}

// Stop returns to IDLE. Once Stop returns no further tick has any effect.
// Stopping a work phase early records it as incomplete.
func (m *Machine) Stop() {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return
	}
	if m.session.Phase == PhaseWork {
		m.recordLocked(false)
	}
	m.session = idleSession(m.settings)
	stop, done := m.stopTicker, m.tickerDone
	m.stopTicker, m.tickerDone = nil, nil
	snap, fn := m.session, m.onChange
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	m.logger.Info().Msg("focus session stopped")
	if fn != nil {
		fn(snap)
	}
}

// Toggle starts an idle machine or stops an active one.
func (m *Machine) Toggle() {
	if err := m.Start(); errors.Is(err, ErrAlreadyActive) {
		m.Stop()
	}
}

// Reconfigure stops any running session and resets to IDLE with settings.
func (m *Machine) Reconfigure(settings Settings) {
	m.Stop()

	m.mu.Lock()
	m.settings = settings
	m.session = idleSession(settings)
	snap, fn := m.session, m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Tick advances the session by one second. It does nothing while idle.
func (m *Machine) Tick() {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return
	}

	if m.session.SecondsRemaining > 0 {
		m.session.SecondsRemaining--
		if m.session.Phase == PhaseWork {
			m.workSeconds++
			if m.session.SecondsRemaining%60 == 0 && m.deps.Counter != nil {
				m.deps.Counter.AddMinutesFocused(1)
			}
		}
	}
	if m.session.SecondsRemaining == 0 {
		m.transitionLocked()
	}
	snap, fn := m.session, m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// Close stops the machine and waits for pending launches and history writes.
func (m *Machine) Close() {
	m.Stop()
	m.cancelLaunches()
	m.bg.Wait()
}

func (m *Machine) transitionLocked() {
	if m.deps.Bell != nil {
		m.deps.Bell()
	}
	switch m.session.Phase {
	case PhaseWork:
		if m.deps.Counter != nil {
			m.deps.Counter.AddSessionsCompleted(1)
		}
		m.recordLocked(true)
		m.push(notify.SeverityFocus, msgFocusComplete)
		m.session.Phase = PhaseBreak
		m.session.SecondsRemaining = seconds(m.settings.Break)
	case PhaseBreak:
		m.push(notify.SeverityBreak, msgBreakOver)
		m.session.ID = uuid.NewString()
		m.session.Phase = PhaseWork
		m.session.SecondsRemaining = seconds(m.settings.Work)
		m.session.StartedAt = m.now()
		m.workSeconds = 0
	}
	m.logger.Info().Str("phase", string(m.session.Phase)).Msg("focus phase changed")
}

func (m *Machine) push(sev notify.Severity, text string) {
	if m.deps.Sink != nil {
		m.deps.Sink.Push(notify.NewMessage(sev, string(m.session.Phase), text))
	}
}

// recordLocked writes the current work phase to history in the background.
func (m *Machine) recordLocked(completed bool) {
	if m.deps.History == nil {
		return
	}
	rec := store.SessionRecord{
		ID:          m.session.ID,
		StartedAt:   m.session.StartedAt,
		EndedAt:     m.now(),
		WorkMinutes: m.workSeconds / 60,
		Completed:   completed,
	}
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		if err := m.deps.History.RecordSession(context.Background(), rec); err != nil {
			m.logger.Error().Err(err).Msg("failed to record focus session")
		}
	}()
}

// launch opens every URL and the tool concurrently. Failures are logged and
// otherwise ignored.
func (m *Machine) launch(s Settings) {
	l := m.deps.Launcher
	if l == nil {
		return
	}
	for _, url := range s.URLs {
		m.bg.Add(1)
		go func(url string) {
			defer m.bg.Done()
			if err := l.OpenURL(m.launchCtx, url); err != nil {
				m.logger.Warn().Err(err).Str("url", url).Msg("failed to open url")
			}
		}(url)
	}
	if s.Tool != "" {
		m.bg.Add(1)
		go func() {
			defer m.bg.Done()
			if err := l.LaunchTool(m.launchCtx, s.Tool); err != nil {
				m.logger.Warn().Err(err).Str("tool", s.Tool).Msg("failed to launch tool")
			}
		}()
	}
}

func (m *Machine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}
