package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/config"
	"kaizen/internal/focus"
	"kaizen/internal/launcher"
	"kaizen/internal/notify"
	"kaizen/internal/store"
)

func testConfig(t *testing.T, watch ...string) *config.Configuration {
	t.Helper()
	cfg := config.Default()
	cfg.WatchPaths = watch
	cfg.OutputDir = t.TempDir()
	cfg.DataDir = t.TempDir()
	cfg.Arrival.SettleMs = 10
	cfg.Arrival.RetryBackoffMs = 10
	cfg.Notify.BatchWindowMs = 30
	cfg.Focus.Tool = ""
	return cfg
}

func newOrchestrator(t *testing.T, cfg *config.Configuration, st *store.Store) *Orchestrator {
	t.Helper()
	o, err := New(config.NewHolder(cfg), "", Deps{
		Queue:        notify.NewQueue(),
		Store:        st,
		Launcher:     &launcher.Recording{},
		Logger:       zerolog.Nop(),
		FocusOptions: []focus.Option{focus.WithManualTicks()},
	})
	require.NoError(t, err)
	return o
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	return p
}

func drainTexts(q *notify.Queue) []string {
	var out []string
	for _, m := range q.Drain() {
		out = append(out, m.Text)
	}
	return out
}

func TestSweep_OrganizesExistingFiles(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)
	o := newOrchestrator(t, cfg, nil)
	defer o.Close()

	writeFile(t, watch, "a.pdf")
	writeFile(t, watch, "b.pdf")
	writeFile(t, watch, "photo.png")
	writeFile(t, watch, "notes.unknownext")
	writeFile(t, watch, "movie.mp4.part")

	summary, err := o.Sweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Moved)
	assert.Equal(t, 1, summary.Unrecognized)
	assert.Equal(t, 1, summary.Ignored)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 2, summary.ByCategory["Documents"])
	assert.Equal(t, 1, summary.ByCategory["Images"])
	assert.False(t, summary.HasErrors())

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "Documents", "a.pdf"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "Images", "photo.png"))
	assert.FileExists(t, filepath.Join(watch, "notes.unknownext"))
	assert.FileExists(t, filepath.Join(watch, "movie.mp4.part"))
	assert.Equal(t, int64(3), o.Stats().FilesMoved)

	texts := drainTexts(o.Queue())
	require.Len(t, texts, 1, "a sweep reports as one batch")
	assert.Contains(t, texts[0], "+ 2 others")
}

func TestSweep_BadRootDoesNotStopOthers(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)
	o := newOrchestrator(t, cfg, nil)
	defer o.Close()

	writeFile(t, watch, "report.pdf")

	summary, err := o.Sweep(context.Background(), []string{filepath.Join(t.TempDir(), "missing"), watch})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Moved)
	assert.Len(t, summary.ScanErrors, 1)
	assert.True(t, summary.HasErrors())
}

func TestPreview_DoesNotMove(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)
	o := newOrchestrator(t, cfg, nil)
	defer o.Close()

	doc := writeFile(t, watch, "a.pdf")
	writeFile(t, watch, "b.zip")
	writeFile(t, watch, "c.xyz")
	writeFile(t, watch, "d.crdownload")

	result := o.Preview(nil)
	rp := result.ByRoot[watch]
	require.NotNil(t, rp)
	assert.Equal(t, 2, rp.Total)
	assert.Equal(t, 2, result.GrandTotal)
	assert.Len(t, rp.ByCategory["Documents"], 1)
	assert.Len(t, rp.ByCategory["Archives"], 1)
	assert.Len(t, rp.Unrecognized, 1)
	assert.Len(t, rp.Ignored, 1)
	assert.FileExists(t, doc)
}

func TestRun_MovesNewArrivalsUntilCancelled(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)
	o := newOrchestrator(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return len(o.WatchedRoots()) == 1 }, 2*time.Second, 10*time.Millisecond)
	writeFile(t, watch, "invoice.pdf")

	dest := filepath.Join(cfg.OutputDir, "Documents", "invoice.pdf")
	require.Eventually(t, func() bool {
		_, err := os.Stat(dest)
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, int64(1), o.Stats().FilesMoved)
	assert.Contains(t, drainTexts(o.Queue()), "Moved: invoice.pdf -> [Documents]")
}

func TestRun_NoValidRootsWarns(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "nope"))
	o := newOrchestrator(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return o.Queue().Len() > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	texts := drainTexts(o.Queue())
	require.NotEmpty(t, texts)
	assert.True(t, strings.HasPrefix(texts[0], "No valid watch folders"))
}

func TestApply_RestartsWatcherOnNewRoots(t *testing.T) {
	oldRoot := t.TempDir()
	newRoot := t.TempDir()
	cfg := testConfig(t, oldRoot)
	o := newOrchestrator(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()
	require.Eventually(t, func() bool { return len(o.WatchedRoots()) == 1 }, 2*time.Second, 10*time.Millisecond)

	next := cfg.Clone()
	next.WatchPaths = []string{newRoot}
	o.Apply(next)

	roots := o.WatchedRoots()
	require.Len(t, roots, 1)
	abs, _ := filepath.Abs(newRoot)
	assert.Equal(t, abs, roots[0])
	assert.Same(t, next, o.Config())

	writeFile(t, newRoot, "song.mp3")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "Media", "song.mp3"))
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)

	stale := writeFile(t, oldRoot, "stale.pdf")
	time.Sleep(200 * time.Millisecond)
	assert.FileExists(t, stale, "old root is no longer watched")

	assert.Contains(t, drainTexts(o.Queue()), "Settings reloaded.")
}

func TestApply_FocusResetOnlyWhenFocusChanges(t *testing.T) {
	cfg := testConfig(t)
	o := newOrchestrator(t, cfg, nil)
	defer o.Close()

	require.NoError(t, o.Focus().Start())

	unrelated := cfg.Clone()
	unrelated.Notify.BatchWindowMs = 99
	o.Apply(unrelated)
	assert.True(t, o.Focus().Snapshot().Active)

	changed := unrelated.Clone()
	changed.Focus.WorkMinutes = 50
	o.Apply(changed)
	s := o.Focus().Snapshot()
	assert.False(t, s.Active)
	assert.Equal(t, 50*60, s.SecondsRemaining)
}

func TestApply_AfterCloseIgnored(t *testing.T) {
	cfg := testConfig(t)
	o := newOrchestrator(t, cfg, nil)
	o.Close()

	next := cfg.Clone()
	o.Apply(next)
	assert.Same(t, cfg, o.Config())
}

func TestStore_CountersSurviveRestart(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)

	st, err := store.Open(cfg.DataDir)
	require.NoError(t, err)
	defer st.Close()

	o := newOrchestrator(t, cfg, st)
	writeFile(t, watch, "a.zip")
	writeFile(t, watch, "b.zip")
	_, err = o.Sweep(context.Background(), nil)
	require.NoError(t, err)
	o.Close()

	again := newOrchestrator(t, cfg, st)
	defer again.Close()
	assert.Equal(t, int64(2), again.Stats().FilesMoved)

	moves, err := st.RecentMoves(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, moves, 2)
}

func TestRun_ReloadUnavailableKeepsWatching(t *testing.T) {
	watch := t.TempDir()
	cfg := testConfig(t, watch)

	// A relative config path cannot be resolved once the working directory is gone.
	gone := filepath.Join(t.TempDir(), "cwd")
	require.NoError(t, os.Mkdir(gone, 0o755))
	t.Chdir(gone)
	require.NoError(t, os.Remove(gone))

	o, err := New(config.NewHolder(cfg), "kaizen.toml", Deps{
		Launcher:     &launcher.Recording{},
		Logger:       zerolog.Nop(),
		FocusOptions: []focus.Option{focus.WithManualTicks()},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	var texts []string
	require.Eventually(t, func() bool {
		texts = append(texts, drainTexts(o.Queue())...)
		for _, text := range texts {
			if strings.HasPrefix(text, "Config reload unavailable") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("Run stopped early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, []string{watch}, o.WatchedRoots())

	writeFile(t, watch, "notes.pdf")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "Documents", "notes.pdf"))
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
