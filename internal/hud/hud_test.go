package hud

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/focus"
	"kaizen/internal/notify"
	"kaizen/internal/stats"
)

type fakeSource struct {
	queue   *notify.Queue
	machine *focus.Machine
	stats   stats.Stats
	roots   []string
}

func (f *fakeSource) Queue() *notify.Queue   { return f.queue }
func (f *fakeSource) Focus() *focus.Machine  { return f.machine }
func (f *fakeSource) Stats() stats.Stats     { return f.stats }
func (f *fakeSource) WatchedRoots() []string { return f.roots }

func newSource(t *testing.T) *fakeSource {
	t.Helper()
	m := focus.New(focus.Settings{Work: 25 * time.Minute, Break: 5 * time.Minute},
		focus.Deps{Logger: zerolog.Nop()}, focus.WithManualTicks())
	t.Cleanup(m.Close)
	return &fakeSource{queue: notify.NewQueue(), machine: m, roots: []string{"/home/me/Downloads"}}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_PollDrainsQueue(t *testing.T) {
	src := newSource(t)
	m := newModel(src, nil)

	src.queue.Push(notify.NewMessage(notify.SeveritySuccess, "Images", "Moved: cat.png -> [Images]"))
	src.stats = stats.Stats{FilesMoved: 7}

	next, cmd := m.Update(pollMsg(time.Now()))
	require.NotNil(t, cmd, "poll must re-arm itself")
	nm := next.(model)

	assert.Zero(t, src.queue.Len())
	require.Len(t, nm.entries, 1)
	view := nm.View()
	assert.Contains(t, view, "Moved: cat.png -> [Images]")
	assert.Contains(t, view, "Files moved: 7")
	assert.Contains(t, view, "/home/me/Downloads")
}

func TestModel_KeepsRecentEntries(t *testing.T) {
	src := newSource(t)
	m := newModel(src, nil)
	for i := 0; i < maxEntries+5; i++ {
		src.queue.Push(notify.NewMessage(notify.SeverityInfo, "", "msg"))
	}
	next, _ := m.Update(pollMsg(time.Now()))
	assert.Len(t, next.(model).entries, maxEntries)
}

func TestModel_FocusToggle(t *testing.T) {
	src := newSource(t)
	m := newModel(src, nil)
	assert.Contains(t, m.View(), "READY")

	next, _ := m.Update(key("f"))
	nm := next.(model)
	assert.True(t, src.machine.Snapshot().Active)
	assert.Contains(t, nm.View(), "[ WORK FOCUS ]  25:00")

	next, _ = nm.Update(key("f"))
	assert.False(t, src.machine.Snapshot().Active)
	assert.Contains(t, next.(model).View(), "READY")
}

func TestModel_QuitCancels(t *testing.T) {
	src := newSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	m := newModel(src, cancel)

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, next.(model).stopping)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
