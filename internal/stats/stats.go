// Package stats keeps the lifetime productivity counters.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stats holds the monotonically increasing counters.
type Stats struct {
	FilesMoved        int64
	MinutesFocused    int64
	SessionsCompleted int64
}

// Persister stores a full counter snapshot. Implementations may be slow; the
// Tracker calls them from its own goroutine.
type Persister interface {
	SaveStats(ctx context.Context, s Stats) error
}

// Tracker serialises increments and writes every new snapshot back through
// a Persister without blocking the caller. Writes are coalesced: if several
// increments happen while a write is in flight, only the newest snapshot is
// written next.
type Tracker struct {
	persister Persister
	logger    zerolog.Logger

	mu      sync.Mutex
	current Stats

	dirty chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewTracker starts a Tracker seeded with initial. persister may be nil.
func NewTracker(initial Stats, persister Persister, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		persister: persister,
		logger:    logger.With().Str("component", "stats").Logger(),
		current:   initial,
		dirty:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	t.wg.Add(1)
	go t.persistLoop()
	return t
}

// AddFilesMoved increments files_moved by n.
func (t *Tracker) AddFilesMoved(n int64) Stats {
	return t.apply(func(s *Stats) { s.FilesMoved += n })
}

// AddMinutesFocused increments minutes_focused by n.
func (t *Tracker) AddMinutesFocused(n int64) Stats {
	return t.apply(func(s *Stats) { s.MinutesFocused += n })
}

// AddSessionsCompleted increments sessions_completed by n.
func (t *Tracker) AddSessionsCompleted(n int64) Stats {
	return t.apply(func(s *Stats) { s.SessionsCompleted += n })
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Close stops the writer after persisting the final snapshot.
func (t *Tracker) Close() {
	t.once.Do(func() {
		close(t.done)
		t.wg.Wait()
	})
}

func (t *Tracker) apply(fn func(*Stats)) Stats {
	t.mu.Lock()
	fn(&t.current)
	snap := t.current
	t.mu.Unlock()

	select {
	case t.dirty <- struct{}{}:
	default:
	}
	return snap
}

func (t *Tracker) persistLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.dirty:
			t.persist()
		case <-t.done:
			select {
			case <-t.dirty:
				t.persist()
			default:
			}
			return
		}
	}
}

func (t *Tracker) persist() {
	if t.persister == nil {
		return
	}
	snap := t.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.persister.SaveStats(ctx, snap); err != nil {
		t.logger.Error().Err(err).Msg("failed to persist stats")
	}
}
