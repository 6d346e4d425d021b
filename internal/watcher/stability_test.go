package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewStabilityChecker(t *testing.T) {
	threshold := 400 * time.Millisecond
	s := NewStabilityChecker(threshold)

	if s.threshold != threshold {
		t.Errorf("expected threshold %v, got %v", threshold, s.threshold)
	}
	if s.timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", s.timeout)
	}
	if s.interval != 100*time.Millisecond {
		t.Errorf("expected interval 100ms, got %v", s.interval)
	}
}

func TestNewStabilityChecker_SmallThreshold(t *testing.T) {
	s := NewStabilityChecker(20 * time.Millisecond)
	if s.interval != 50*time.Millisecond {
		t.Errorf("interval should be clamped to 50ms, got %v", s.interval)
	}
}

func TestWaitForStable_StableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.zip")
	if err := os.WriteFile(path, []byte("complete"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStabilityCheckerWithOptions(60*time.Millisecond, time.Second, 20*time.Millisecond)
	if err := s.WaitForStable(context.Background(), path); err != nil {
		t.Errorf("expected stable file, got %v", err)
	}
}

func TestWaitForStable_MissingFile(t *testing.T) {
	s := NewStabilityCheckerWithOptions(50*time.Millisecond, time.Second, 10*time.Millisecond)
	err := s.WaitForStable(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestWaitForStable_GrowingFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.iso")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_, _ = f.Write([]byte("more"))
			}
		}
	}()

	s := NewStabilityCheckerWithOptions(100*time.Millisecond, 300*time.Millisecond, 20*time.Millisecond)
	if err := s.WaitForStable(context.Background(), path); !errors.Is(err, ErrFileUnstable) {
		t.Errorf("expected ErrFileUnstable, got %v", err)
	}
}

func TestWaitForStable_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStabilityCheckerWithOptions(time.Second, 5*time.Second, 10*time.Millisecond)
	if err := s.WaitForStable(ctx, path); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
