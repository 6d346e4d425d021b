// Package output writes plain, line-oriented terminal output: CLI messages
// and notifications drained from the queue when no HUD is shown.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"kaizen/internal/notify"
)

// DefaultPollInterval is how often Pump drains the queue.
const DefaultPollInterval = 100 * time.Millisecond

// Config holds output configuration.
type Config struct {
	Verbose    bool      // Enable verbose output
	Writer     io.Writer // Output destination (default: os.Stdout)
	ErrWriter  io.Writer // Error output destination (default: os.Stderr)
	IsTTY      bool      // Whether output is a terminal; enables colour
	Timestamps bool      // Prefix notifications with their enqueue time
}

// Output handles formatted output. It is safe for concurrent use.
type Output struct {
	config Config
	mu     sync.Mutex
	styles map[notify.Severity]lipgloss.Style
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
		styles: severityStyles(),
	}
}

// DefaultConfig returns a Config with TTY detection on stdout.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func severityStyles() map[notify.Severity]lipgloss.Style {
	return map[notify.Severity]lipgloss.Style{
		notify.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		notify.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff9d")),
		notify.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
		notify.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true),
		notify.SeverityFocus:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff9d")).Bold(true),
		notify.SeverityBreak:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd")).Bold(true),
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.println(o.config.Writer, fmt.Sprintf(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.println(o.config.Writer, fmt.Sprintf(format, args...))
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.println(o.config.ErrWriter, fmt.Sprintf(format, args...))
}

// Message prints one notification, coloured by severity on a terminal.
func (o *Output) Message(m notify.Message) {
	text := m.Text
	if o.config.IsTTY {
		if style, ok := o.styles[m.Severity]; ok {
			text = style.Render(text)
		}
	}
	if o.config.Timestamps && !m.EnqueuedAt.IsZero() {
		text = m.EnqueuedAt.Format("15:04:05") + " " + text
	}
	o.println(o.config.Writer, text)
}

// Pump drains q every interval and prints each message until ctx is done,
// then drains once more so nothing queued before shutdown is lost.
func (o *Output) Pump(ctx context.Context, q *notify.Queue, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.flush(q)
			return
		case <-ticker.C:
			o.flush(q)
		}
	}
}

func (o *Output) flush(q *notify.Queue) {
	for _, m := range q.Drain() {
		o.Message(m)
	}
}

func (o *Output) println(w io.Writer, msg string) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprint(w, msg)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
