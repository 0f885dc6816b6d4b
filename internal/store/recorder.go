// ABOUTME: Recorder adapts a Store to chat.Recorder for one session.
// ABOUTME: Card bubbles are stored with their original card payloads.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2389/wellness-client/internal/chat"
)

// Recorder writes every transcript message of one session to a Store.
type Recorder struct {
	store     Store
	sessionID string
}

// NewRecorder returns a Recorder for sessionID.
func NewRecorder(s Store, sessionID string) *Recorder {
	return &Recorder{store: s, sessionID: sessionID}
}

// Record implements chat.Recorder.
func (r *Recorder) Record(ctx context.Context, msg chat.Message) error {
	rec := &Message{
		ID:        msg.ID,
		SessionID: r.sessionID,
		Sender:    string(msg.Sender),
		AgentID:   msg.AgentID,
		Text:      msg.Text,
		CreatedAt: msg.Timestamp,
	}
	if len(msg.Cards) > 0 {
		cards, err := json.Marshal(chat.CardList(msg.Cards))
		if err != nil {
			return fmt.Errorf("encoding cards: %w", err)
		}
		rec.Cards = cards
	}
	return r.store.SaveMessage(ctx, rec)
}
