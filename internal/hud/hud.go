// Package hud is the interactive terminal dashboard. It is the single
// consumer of the notification queue and only reads core state.
package hud

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kaizen/internal/focus"
	"kaizen/internal/notify"
	"kaizen/internal/stats"
)

const (
	pollInterval = 100 * time.Millisecond
	maxEntries   = 8
)

// Source is the core state the HUD renders.
type Source interface {
	Queue() *notify.Queue
	Focus() *focus.Machine
	Stats() stats.Stats
	WatchedRoots() []string
}

type pollMsg time.Time

type entry struct {
	at       time.Time
	text     string
	severity notify.Severity
}

type model struct {
	src    Source
	cancel context.CancelFunc
	styles styles

	width    int
	session  focus.Session
	counters stats.Stats
	roots    []string
	entries  []entry
	stopping bool
}

type styles struct {
	title    lipgloss.Style
	work     lipgloss.Style
	brk      lipgloss.Style
	idle     lipgloss.Style
	muted    lipgloss.Style
	severity map[notify.Severity]lipgloss.Style
}

func newStyles() styles {
	accent := lipgloss.Color("#00ff9d")
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(accent),
		work:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		brk:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8be9fd")),
		idle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
		severity: map[notify.Severity]lipgloss.Style{
			notify.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			notify.SeveritySuccess: lipgloss.NewStyle().Foreground(accent),
			notify.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
			notify.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")),
			notify.SeverityFocus:   lipgloss.NewStyle().Bold(true).Foreground(accent),
			notify.SeverityBreak:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8be9fd")),
		},
	}
}

func newModel(src Source, cancel context.CancelFunc) model {
	m := model{
		src:    src,
		cancel: cancel,
		styles: newStyles(),
	}
	m.refresh()
	return m
}

func poll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m model) Init() tea.Cmd {
	return poll()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.stopping {
				m.stopping = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, tea.Quit
		case "f":
			m.src.Focus().Toggle()
			m.refresh()
		}

	case pollMsg:
		m.refresh()
		return m, poll()
	}
	return m, nil
}

// refresh drains the queue and re-reads the focus and counter snapshots.
func (m *model) refresh() {
	for _, n := range m.src.Queue().Drain() {
		m.entries = append(m.entries, entry{at: n.EnqueuedAt, text: n.Text, severity: n.Severity})
	}
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	m.session = m.src.Focus().Snapshot()
	m.counters = m.src.Stats()
	m.roots = m.src.WatchedRoots()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("KAIZEN"))
	b.WriteString("\n\n")

	switch m.session.Phase {
	case focus.PhaseWork:
		b.WriteString(m.styles.work.Render("[ WORK FOCUS ]  " + m.session.Remaining()))
	case focus.PhaseBreak:
		b.WriteString(m.styles.brk.Render("[ BREAK TIME ]  " + m.session.Remaining()))
	default:
		b.WriteString(m.styles.idle.Render("READY  00:00"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Files moved: %d   Focus: %d min   Sessions: %d\n",
		m.counters.FilesMoved, m.counters.MinutesFocused, m.counters.SessionsCompleted)
	if len(m.roots) == 0 {
		b.WriteString(m.styles.muted.Render("Not watching any folder"))
	} else {
		b.WriteString(m.styles.muted.Render("Watching: " + strings.Join(m.roots, ", ")))
	}
	b.WriteString("\n\n")

	for _, e := range m.entries {
		line := e.text
		if !e.at.IsZero() {
			line = e.at.Format("15:04:05") + "  " + line
		}
		if style, ok := m.styles.severity[e.severity]; ok {
			line = style.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	footer := "f start/stop focus   q quit"
	if m.stopping {
		footer = "stopping..."
	}
	b.WriteString(m.styles.muted.Render(footer))
	b.WriteString("\n")
	return b.String()
}

// Run shows the HUD until the user quits or ctx is cancelled. Quitting calls
// cancel so the caller can shut the core down.
func Run(ctx context.Context, cancel context.CancelFunc, src Source) error {
	p := tea.NewProgram(newModel(src, cancel), tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
