// ABOUTME: HTTP handlers for the browser frontend: page, actions and streams
// ABOUTME: Actions start turns in the background; results arrive over SSE

package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/2389/wellness-client/internal/chat"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// pageTitle is shown in the browser tab and the header.
const pageTitle = "WellnessGPT"

type pageData struct {
	Title       string
	Elements    []template.HTML
	Enabled     bool
	Placeholder string
}

// inputRequest is the body of POST /api/input.
type inputRequest struct {
	Text           string `json:"text"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// transcriptEntry is one message in GET /api/transcript.
type transcriptEntry struct {
	ID         string          `json:"id"`
	Sender     string          `json:"sender"`
	Agent      string          `json:"agent,omitempty"`
	AgentLabel string          `json:"agent_label,omitempty"`
	Text       string          `json:"text,omitempty"`
	Cards      json.RawMessage `json:"cards,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets missing: %v", err))
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).Methods(http.MethodGet)

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/input", s.handleInput).Methods(http.MethodPost)
	api.HandleFunc("/click/{id}", s.handleClick).Methods(http.MethodPost)
	api.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/transcript", s.handleTranscript).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleSelection).Methods(http.MethodGet)
	return r
}

// handlePage renders the conversation, starting a session when the cookie
// is missing or names an expired session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.hub.fromRequest(r)
	if !ok {
		var err error
		sess, err = s.hub.create(r.Context())
		if err != nil {
			s.logger.Error("failed to start session", "error", err)
			http.Error(w, "could not start a conversation", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}

	enabled, placeholder := sess.view.Input()
	data := pageData{
		Title:       pageTitle,
		Elements:    sess.view.Page(),
		Enabled:     enabled,
		Placeholder: placeholder,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// handleInput accepts typed text and starts a turn.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	req, err := parseInputRequest(w, r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.claim(w, idempotencyKey(r, req.IdempotencyKey)) {
		return
	}
	// The lock is taken here so that of two racing requests only one is
	// accepted; the turn itself runs in the background.
	turn, ok := sess.ctrl.Begin()
	if !ok {
		s.sendJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
		return
	}

	text := req.Text
	s.start(w, sess, turn, func(ctx context.Context) { turn.Submit(ctx, chat.TextInput(text)) })
}

// start runs fn on the session and answers 202, or releases turn when the
// session has already closed.
func (s *Server) start(w http.ResponseWriter, sess *session, turn *chat.Turn, fn func(ctx context.Context)) {
	if !sess.run(fn) {
		turn.Release()
		s.sendJSONError(w, http.StatusGone, "session closed")
		return
	}
	s.sendJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleClick activates a card, prescription action or suggestion.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if _, bound := sess.ctrl.App().Registry.Lookup(id); !bound {
		s.sendJSONError(w, http.StatusNotFound, "element is not clickable")
		return
	}
	if !s.claim(w, idempotencyKey(r, "")) {
		return
	}
	turn, ok := sess.ctrl.Begin()
	if !ok {
		s.sendJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
		return
	}

	s.start(w, sess, turn, func(ctx context.Context) { turn.Click(ctx, id) })
}

// handleCancel aborts the turn in flight.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]bool{"cancelled": sess.ctrl.Cancel()})
}

// handleEvents streams the session's view patches as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.hub.fromRequest(r)
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	patches, subID := s.broadcaster.Subscribe(r.Context(), sess.id)
	defer s.broadcaster.Unsubscribe(sess.id, subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The page may be stale by the time the stream opens.
	enabled, placeholder := sess.view.Input()
	s.writeSSEEvent(w, "patch", Patch{Op: OpInput, Enabled: enabled, Placeholder: placeholder})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case patch, open := <-patches:
			if !open {
				s.writeSSEEvent(w, "expired", map[string]string{"session_id": sess.id})
				flusher.Flush()
				return
			}
			s.writeSSEEvent(w, "patch", patch)
			flusher.Flush()
		}
	}
}

// handleTranscript returns the recorded messages of the session.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	msgs, err := s.store.GetSessionMessages(r.Context(), sess.id, limit)
	if err != nil {
		s.logger.Error("failed to load transcript", "session_id", sess.id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	entries := make([]transcriptEntry, 0, len(msgs))
	for _, m := range msgs {
		e := transcriptEntry{
			ID:        m.ID,
			Sender:    m.Sender,
			Agent:     m.AgentID,
			Text:      m.Text,
			Cards:     m.Cards,
			CreatedAt: m.CreatedAt,
		}
		if m.AgentID != "" {
			e.AgentLabel = s.labels.Label(m.AgentID)
		}
		entries = append(entries, e)
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"messages": entries})
}

// handleSelection returns the session's current selections.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snapshot := sess.ctrl.App().Selection.Snapshot()
	out := make(map[string]string, len(snapshot))
	for c, id := range snapshot {
		out[string(c)] = id
	}
	s.sendJSON(w, http.StatusOK, map[string]any{
		"selection": out,
		"agent":     sess.ctrl.App().Agent.Current(),
		"turn":      sess.ctrl.State().String(),
	})
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.hub.count()})
}

// handleReady returns 200 OK if the conversation service answers its
// health check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.sendJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if err := s.health(r.Context()); err != nil {
		s.logger.Warn("conversation service unhealthy", "error", err)
		s.sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// session resolves the request's session or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := s.hub.fromRequest(r)
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "session not found; reload the page")
	}
	return sess, ok
}

// claim checks the idempotency key. Requests without a key always pass.
func (s *Server) claim(w http.ResponseWriter, key string) bool {
	if key == "" || s.guard.Claim(key) {
		return true
	}
	s.logger.Debug("duplicate request ignored", "idempotency_key", key)
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
	return false
}

func idempotencyKey(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get("Idempotency-Key")
}

// parseInputRequest reads a JSON or form-encoded input request.
func parseInputRequest(w http.ResponseWriter, r *http.Request) (*inputRequest, error) {
	var req inputRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, errors.New("invalid JSON body")
		}
	} else {
		r.Body = body
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("invalid form body")
		}
		req.Text = r.PostForm.Get("text")
		req.IdempotencyKey = r.PostForm.Get("idempotency_key")
	}

	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return nil, errors.New("text is required")
	}
	return &req, nil
}

// writeSSEEvent writes a single SSE event to the response writer.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
