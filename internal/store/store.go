// ABOUTME: Store interface and data types for the session transcript ledger
// ABOUTME: Defines Session and Message records kept for the life of a session

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateSession is returned when trying to create a session that already exists
var ErrDuplicateSession = errors.New("session already exists")

// Session is one conversation, owned by a terminal run or a browser cookie
type Session struct {
	ID        string
	Frontend  string // "tui" or "web"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one rendered transcript entry
type Message struct {
	ID        string
	SessionID string
	Sender    string // "user" or "bot"
	AgentID   string
	Text      string
	Cards     json.RawMessage // original card payloads, nil for text bubbles
	CreatedAt time.Time
}

// Store persists sessions and their transcripts
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// DeleteSession removes a session and every message in it
	DeleteSession(ctx context.Context, id string) error

	SaveMessage(ctx context.Context, msg *Message) error
	// GetSessionMessages returns the most recent limit messages, oldest first.
	// A limit of 0 or less returns everything.
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	Close() error
}
