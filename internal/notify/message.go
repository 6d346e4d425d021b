// Package notify carries user-facing messages from background components to
// the single UI consumer.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Severity tags a message for colouring in the UI.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFocus   Severity = "focus"
	SeverityBreak   Severity = "break"
)

// Message is a single notification owned by the Queue until drained.
type Message struct {
	ID         uuid.UUID
	Text       string
	Severity   Severity
	Tag        string // category or phase the message refers to, may be empty
	EnqueuedAt time.Time
}

// NewMessage builds a Message with a fresh ID. EnqueuedAt is set by the Queue.
func NewMessage(severity Severity, tag, text string) Message {
	return Message{
		ID:       uuid.New(),
		Text:     text,
		Severity: severity,
		Tag:      tag,
	}
}

// Sink accepts messages. Queue implements it; tests use recorders.
type Sink interface {
	Push(Message)
}
