package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloader_DeliversValidChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir = \"/tmp/a\"\n"), 0644))

	got := make(chan *Configuration, 4)
	r := NewReloader(path, func(c *Configuration) { got <- c }, zerolog.Nop())
	r.delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to attach.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is ignored.
	require.NoError(t, os.WriteFile(path, []byte("[focus]\nwork_minutes = 0\n"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(path, []byte("output_dir = \"/tmp/b\"\n"), 0644))
	select {
	case cfg := <-got:
		assert.Equal(t, "/tmp/b", cfg.OutputDir)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestReloader_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir = \"/tmp/a\"\n"), 0644))

	got := make(chan *Configuration, 1)
	r := NewReloader(path, func(c *Configuration) { got <- c }, zerolog.Nop())
	r.delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0644))
	time.Sleep(150 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, got)
}

func TestReloader_MissingDirectoryIsNotFatal(t *testing.T) {
	r := NewReloader(filepath.Join(t.TempDir(), "gone", "config.toml"), nil, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx))
}

func TestReloader_WatcherFailureStaysIdle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	var reported []error
	r := NewReloader(path, nil, zerolog.Nop()).OnUnavailable(func(err error) { reported = append(reported, err) })
	tooMany := errors.New("too many open files")
	r.newWatcher = func() (*fsnotify.Watcher, error) { return nil, tooMany }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned before cancel: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], tooMany)
}

func TestReloader_MissingDirectoryIsNotReported(t *testing.T) {
	called := false
	r := NewReloader(filepath.Join(t.TempDir(), "gone", "config.toml"), nil, zerolog.Nop()).
		OnUnavailable(func(error) { called = true })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))
	assert.False(t, called)
}
