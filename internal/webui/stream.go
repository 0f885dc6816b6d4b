// ABOUTME: In-memory fan-out of view patches to the browser tabs of a session
// ABOUTME: Each open tab subscribes to its session id and receives every patch

package webui

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Broadcaster provides in-memory pub/sub for view patches. Subscribers
// register for a session id and receive patches as the session's view
// changes.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Patch // sessionID -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Patch),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for patches of the given session. The
// subscription is cleaned up when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID string) (<-chan Patch, string) {
	subID := uuid.NewString()
	ch := make(chan Patch, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[sessionID]; !ok {
		b.subscribers[sessionID] = make(map[string]chan Patch)
	}
	b.subscribers[sessionID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "session_id", sessionID, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(sessionID, subID)
	}()

	return ch, subID
}

// Publish sends a patch to every subscriber of the session. Patches are
// dropped for subscribers whose channels are full; the tab recovers on its
// next reload.
func (b *Broadcaster) Publish(sessionID string, patch Patch) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subID, ch := range b.subscribers[sessionID] {
		select {
		case ch <- patch:
		default:
			b.logger.Debug("dropped patch for slow subscriber",
				"session_id", sessionID,
				"sub_id", subID,
				"op", patch.Op)
		}
	}
}

// Subscribers returns the number of open subscriptions for a session.
func (b *Broadcaster) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sessionID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[sessionID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}

	b.logger.Debug("subscriber removed", "session_id", sessionID, "sub_id", subID)
}

// Drop closes every subscription of a session.
func (b *Broadcaster) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subID, ch := range b.subscribers[sessionID] {
		close(ch)
		delete(b.subscribers[sessionID], subID)
	}
	delete(b.subscribers, sessionID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sessionID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, sessionID)
	}
	b.logger.Debug("broadcaster closed")
}
