// ABOUTME: Conversation messages and the append-only transcript that owns them.
// ABOUTME: A Recorder can mirror every appended message into durable storage.

package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one rendered entry in the transcript. It is immutable once
// rendered.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	AgentID   string // empty for user messages
	Cards     []Card
	Timestamp time.Time
}

// Recorder receives every message appended to a Transcript.
type Recorder interface {
	Record(ctx context.Context, msg Message) error
}

// Transcript is the append-only list of rendered messages.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	recorder Recorder
	logger   *slog.Logger
}

// NewTranscript creates an empty transcript. recorder may be nil.
func NewTranscript(recorder Recorder, logger *slog.Logger) *Transcript {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcript{recorder: recorder, logger: logger}
}

// Append adds msg to the transcript. Recorder failures are logged and do not
// affect the in-memory transcript.
func (t *Transcript) Append(ctx context.Context, msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	if t.recorder == nil {
		return
	}
	if err := t.recorder.Record(context.WithoutCancel(ctx), msg); err != nil {
		t.logger.Warn("failed to record message", "message_id", msg.ID, "error", err)
	}
}

// Messages returns a copy of the transcript in render order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of rendered messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
