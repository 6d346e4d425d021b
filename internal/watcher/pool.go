package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Submit after the Dispatcher was closed.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher runs events through a fixed pool of workers fed by a bounded
// queue. Submit applies back-pressure when the queue is full instead of
// dropping events.
type Dispatcher struct {
	jobs chan Event
	fn   func(Event)
	quit chan struct{}
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once

	submitted atomic.Int64
	completed atomic.Int64
}

// NewDispatcher starts workers goroutines that call fn for each event.
func NewDispatcher(workers, queueSize int, fn func(Event)) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		jobs: make(chan Event, queueSize),
		fn:   fn,
		quit: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Submit enqueues ev, blocking while the queue is full. It returns ctx.Err()
// if ctx ends first and ErrStopped once Close has been called.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrStopped
	}
	select {
	case d.jobs <- ev:
		d.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrStopped
	}
}

// Close stops intake and waits for queued and in-flight events to finish.
// Running workers are not interrupted.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.quit)
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// Pending returns submitted events that have not finished.
func (d *Dispatcher) Pending() int64 {
	return d.submitted.Load() - d.completed.Load()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.jobs {
		d.fn(ev)
		d.completed.Add(1)
	}
}
