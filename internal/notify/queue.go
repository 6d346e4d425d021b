package notify

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO hand-off between any number of producers and a
// single consumer. Producers never block. The consumer either polls Drain on
// its own schedule or waits on Ready.
//
// Messages from one producer keep their relative order. Messages from
// producers racing each other are ordered by who took the lock first.
type Queue struct {
	mu    sync.Mutex
	items []Message
	ready chan struct{}
	now   func() time.Time
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		now:   time.Now,
	}
}

// Push appends m and wakes the consumer.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = q.now()
	}
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued message in enqueue order. It never
// blocks and returns nil when the queue is empty.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Ready is signalled after a Push. A single signal may cover several
// messages, so consumers should Drain fully on each wake-up.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of undrained messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
