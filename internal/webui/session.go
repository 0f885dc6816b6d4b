// ABOUTME: Browser sessions: one controller, page and transcript per cookie
// ABOUTME: Idle sessions are closed and their transcripts deleted

package webui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/store"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "wellness_session"

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// session is one browser conversation.
type session struct {
	id   string
	ctrl *chat.Controller
	view *View

	// ctx outlives any single request; turns run under it.
	ctx    context.Context
	cancel context.CancelFunc
	turns  sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	lastUsed time.Time
}

// run starts fn in the background under the session context. It reports
// false once the session is closed.
func (s *session) run(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.turns.Add(1)
	go func() {
		defer s.turns.Done()
		fn(s.ctx)
	}()
	return true
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

// close cancels any turn in flight and waits for background work to end.
func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.turns.Wait()
}

// hub manages the live sessions.
type hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	base        chat.Options
	store       store.Store
	broadcaster *Broadcaster
	renderer    *Renderer
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func newHub(base chat.Options, st store.Store, b *Broadcaster, ttl time.Duration, logger *slog.Logger) *hub {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &hub{
		sessions:    make(map[string]*session),
		base:        base,
		store:       st,
		broadcaster: b,
		renderer:    NewRenderer(),
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// get returns a live session and marks it used.
func (h *hub) get(id string) (*session, bool) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		s.touch(h.now())
	}
	return s, ok
}

// fromRequest returns the session named by the request cookie.
func (h *hub) fromRequest(r *http.Request) (*session, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return h.get(cookie.Value)
}

// create starts a new session and greets the user.
func (h *hub) create(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	logger := h.logger.With("session_id", id)

	if err := h.store.CreateSession(ctx, &store.Session{ID: id, Frontend: "web"}); err != nil {
		return nil, fmt.Errorf("recording session: %w", err)
	}

	view := NewView(h.renderer, func(p Patch) { h.broadcaster.Publish(id, p) }, logger)

	opts := h.base
	opts.View = view
	opts.Recorder = store.NewRecorder(h.store, id)
	opts.Logger = logger
	ctrl, err := chat.New(opts)
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:       id,
		ctrl:     ctrl,
		view:     view,
		ctx:      sctx,
		cancel:   cancel,
		lastUsed: h.now(),
	}

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	s.run(func(ctx context.Context) { ctrl.Greet(ctx) })
	logger.Info("session started")
	return s, nil
}

// count returns the number of live sessions.
func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// cleanupLoop periodically removes idle sessions until ctx is done.
func (h *hub) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupStaleSessions(ctx)
		}
	}
}

// cleanupStaleSessions removes sessions idle for longer than the TTL.
func (h *hub) cleanupStaleSessions(ctx context.Context) int {
	now := h.now()

	h.mu.Lock()
	var stale []*session
	for id, s := range h.sessions {
		if s.idle(now) > h.ttl {
			stale = append(stale, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range stale {
		h.expire(ctx, s)
	}
	return len(stale)
}

// expire closes s and forgets its transcript.
func (h *hub) expire(ctx context.Context, s *session) {
	s.close()
	h.broadcaster.Drop(s.id)
	err := h.store.DeleteSession(ctx, s.id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Warn("failed to delete session transcript", "session_id", s.id, "error", err)
	}
	h.logger.Info("session expired", "session_id", s.id)
}

// Close closes all sessions.
func (h *hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
