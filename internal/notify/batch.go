package notify

import (
	"fmt"
	"sync"
	"time"
)

// DefaultBatchWindow is the quiet period before pending moves are reported.
const DefaultBatchWindow = 1500 * time.Millisecond

type pendingMove struct {
	name     string
	category string
}

// Batcher coalesces bursts of moved files into a single message. Every Add
// pushes the deadline out by the window; the message is emitted once no Add
// has happened for a full window.
//
// A single timer is used. When it fires before the current deadline (because
// Add moved the deadline after the timer was armed) the callback re-arms it
// for the remainder instead of flushing, so a concurrently firing timer can
// never emit early.
type Batcher struct {
	sink   Sink
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	pending  []pendingMove
	deadline time.Time
	timer    *time.Timer
	armed    bool
	closed   bool
}

// NewBatcher creates a Batcher that reports to sink. A non-positive window
// uses DefaultBatchWindow.
func NewBatcher(sink Sink, window time.Duration) *Batcher {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	return &Batcher{
		sink:   sink,
		window: window,
		now:    time.Now,
	}
}

// Add records a moved file and restarts the quiet window.
func (b *Batcher) Add(name, category string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.sink.Push(summarize([]pendingMove{{name: name, category: category}}))
		return
	}

	b.pending = append(b.pending, pendingMove{name: name, category: category})
	b.deadline = b.now().Add(b.window)

	if b.armed {
		return
	}
	b.armed = true
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.fire)
	} else {
		b.timer.Reset(b.window)
	}
}

// Pending returns the number of moves waiting to be reported.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush emits any pending moves immediately.
func (b *Batcher) Flush() {
	b.mu.Lock()
	msg, ok := b.takeLocked()
	b.mu.Unlock()

	if ok {
		b.sink.Push(msg)
	}
}

// Close flushes pending moves and stops the timer. Later Adds are reported
// one by one without batching.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.armed = false
	msg, ok := b.takeLocked()
	b.mu.Unlock()

	if ok {
		b.sink.Push(msg)
	}
}

func (b *Batcher) fire() {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return
	}
	if remaining := b.deadline.Sub(b.now()); remaining > 0 {
		b.timer.Reset(remaining)
		b.mu.Unlock()
		return
	}
	b.armed = false
	msg, ok := b.takeLocked()
	b.mu.Unlock()

	if ok {
		b.sink.Push(msg)
	}
}

func (b *Batcher) takeLocked() (Message, bool) {
	if len(b.pending) == 0 {
		return Message{}, false
	}
	msg := summarize(b.pending)
	b.pending = nil
	return msg, true
}

// summarize renders "Moved: X -> [cat]" or "Moved: X + N others -> [cat]",
// tagged with the first file's category.
func summarize(moves []pendingMove) Message {
	first := moves[0]
	text := fmt.Sprintf("Moved: %s -> [%s]", first.name, first.category)
	if len(moves) > 1 {
		text = fmt.Sprintf("Moved: %s + %d others -> [%s]", first.name, len(moves)-1, first.category)
	}
	return NewMessage(SeveritySuccess, first.category, text)
}
