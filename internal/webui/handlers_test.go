// ABOUTME: Tests for the web frontend handlers against a scripted service
// ABOUTME: Covers sessions, turns, clicks, idempotency, cancel, SSE and cleanup

package webui

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/config"
	"github.com/2389/wellness-client/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func replyWith(payload string) chat.TransportFunc {
	return func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		var resp chat.Response
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}
}

func newTestServer(t *testing.T, transport chat.Transport, health func(context.Context) error) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(store.MemoryPath, discardLogger())
	require.NoError(t, err)

	srv, err := New(Options{
		Web:    config.WebConfig{HTTPAddr: "127.0.0.1:0", SessionTTL: time.Minute},
		Chat:   chat.Options{Transport: transport},
		Store:  st,
		Health: health,
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.hub.Close()
		srv.broadcaster.Close()
		_ = st.Close()
	})
	return srv, st
}

// startSession loads the page and returns the session cookie.
func startSession(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func do(t *testing.T, srv *Server, method, path, body string, cookie *http.Cookie, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// waitForTranscript waits until the session has n messages and no turn.
func waitForTranscript(t *testing.T, srv *Server, cookie *http.Cookie, n int) *session {
	t.Helper()
	sess, ok := srv.hub.get(cookie.Value)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return sess.ctrl.App().Transcript.Len() == n && sess.ctrl.State() == chat.TurnIdle
	}, 2*time.Second, 5*time.Millisecond)
	return sess
}

func TestPage_StartsSession(t *testing.T) {
	srv, st := newTestServer(t, replyWith(`{"response": "ok"}`), nil)

	cookie := startSession(t, srv)
	assert.True(t, cookie.HttpOnly)

	sess, err := st.GetSession(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "web", sess.Frontend)

	rec := do(t, srv, http.MethodGet, "/", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WellnessGPT")
	assert.Contains(t, rec.Body.String(), chat.PlaceholderIdle)
	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")
	assert.Equal(t, 1, srv.hub.count())
}

func TestInput_RunsTurn(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"response": "Rest and **hydrate**.", "agent": "symptom"}`), nil)
	cookie := startSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/input", `{"text": "I have a cold"}`, cookie)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForTranscript(t, srv, cookie, 2)

	rec = do(t, srv, http.MethodGet, "/api/transcript", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Messages []transcriptEntry `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "user", body.Messages[0].Sender)
	assert.Equal(t, "I have a cold", body.Messages[0].Text)
	assert.Equal(t, "symptom", body.Messages[1].Agent)
	assert.Equal(t, "Symptom Triage Agent", body.Messages[1].AgentLabel)

	rec = do(t, srv, http.MethodGet, "/api/transcript?limit=1", "", cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "bot", body.Messages[0].Sender)

	page := do(t, srv, http.MethodGet, "/", "", cookie).Body.String()
	assert.Contains(t, page, "<strong>hydrate</strong>")
	assert.Contains(t, page, "I have a cold")
}

func TestInput_Validation(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"response": "ok"}`), nil)
	cookie := startSession(t, srv)

	tests := []struct {
		name   string
		body   string
		cookie *http.Cookie
		want   int
	}{
		{"no session", `{"text": "hi"}`, nil, http.StatusNotFound},
		{"unknown session", `{"text": "hi"}`, &http.Cookie{Name: SessionCookie, Value: "nope"}, http.StatusNotFound},
		{"blank text", `{"text": "   "}`, cookie, http.StatusBadRequest},
		{"bad json", `{"text":`, cookie, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/input", tt.body, tt.cookie)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("form body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader(url.Values{"text": {"hello"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		waitForTranscript(t, srv, cookie, 2)
	})
}

func TestInput_IdempotencyKey(t *testing.T) {
	var calls atomic.Int32
	transport := chat.TransportFunc(func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		calls.Add(1)
		return &chat.Response{Response: "noted", Agent: "symptom"}, nil
	})
	srv, _ := newTestServer(t, transport, nil)
	cookie := startSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/input", `{"text": "hi", "idempotency_key": "k-1"}`, cookie)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForTranscript(t, srv, cookie, 2)

	rec = do(t, srv, http.MethodPost, "/api/input", `{"text": "hi"}`, cookie, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate")
	assert.Equal(t, int32(1), calls.Load())
}

func TestInput_BusyThenCancel(t *testing.T) {
	started := make(chan struct{})
	transport := chat.TransportFunc(func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	srv, _ := newTestServer(t, transport, nil)
	cookie := startSession(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/input", `{"text": "slow question"}`, cookie)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-started

	rec = do(t, srv, http.MethodPost, "/api/input", `{"text": "another"}`, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/cancel", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled": true}`, rec.Body.String())

	sess := waitForTranscript(t, srv, cookie, 2)
	msgs := sess.ctrl.App().Transcript.Messages()
	assert.Equal(t, chat.FallbackText, msgs[1].Text)

	rec = do(t, srv, http.MethodPost, "/api/cancel", "", cookie)
	assert.JSONEq(t, `{"cancelled": false}`, rec.Body.String())
}

func TestInput_ConcurrentRequestsAcceptOne(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	transport := chat.TransportFunc(func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		calls.Add(1)
		<-release
		return &chat.Response{Response: "done", Agent: "orchestrator"}, nil
	})
	srv, _ := newTestServer(t, transport, nil)
	cookie := startSession(t, srv)

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"text": "question %d"}`, i)
			codes[i] = do(t, srv, http.MethodPost, "/api/input", body, cookie).Code
		}()
	}
	wg.Wait()
	close(release)

	accepted, busy := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusAccepted:
			accepted++
		case http.StatusConflict:
			busy++
		}
	}
	assert.Equal(t, 1, accepted, "codes: %v", codes)
	assert.Equal(t, n-1, busy)

	waitForTranscript(t, srv, cookie, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClick_SelectsHospital(t *testing.T) {
	var calls atomic.Int32
	transport := chat.TransportFunc(func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		if calls.Add(1) == 1 {
			return replyWith(`{
				"response": "Here are hospitals near you:",
				"agent": "scheduling",
				"cards": [
					{"type": "hospital", "title": "City Hospital", "hospital_id": "h-1"},
					{"type": "hospital", "title": "Green Clinic", "hospital_id": "h-2"}
				]
			}`)(ctx, req)
		}
		return &chat.Response{Response: "Which day works?", Agent: "scheduling"}, nil
	})
	srv, _ := newTestServer(t, transport, nil)
	cookie := startSession(t, srv)

	require.Equal(t, http.StatusAccepted, do(t, srv, http.MethodPost, "/api/input", `{"text": "find a hospital"}`, cookie).Code)
	sess := waitForTranscript(t, srv, cookie, 2)

	cards := sess.ctrl.App().Registry.Group(chat.GroupHospital)
	require.Len(t, cards, 2)

	rec := do(t, srv, http.MethodPost, "/api/click/does-not-exist", "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/click/"+cards[0], "", cookie)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForTranscript(t, srv, cookie, 4)

	rec = do(t, srv, http.MethodGet, "/api/selection", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Selection map[string]string `json:"selection"`
		Agent     string            `json:"agent"`
		Turn      string            `json:"turn"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"hospital": "h-1"}, body.Selection)
	assert.Equal(t, "scheduling", body.Agent)
	assert.Equal(t, "idle", body.Turn)

	page := do(t, srv, http.MethodGet, "/", "", cookie).Body.String()
	assert.Contains(t, page, "selected")
}

func TestHealthAndReady(t *testing.T) {
	healthy := true
	srv, _ := newTestServer(t, replyWith(`{"response": "ok"}`), func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("connection refused")
	})

	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = do(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestStatic_ServesAssets(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"response": "ok"}`), nil)

	for _, path := range []string{"/static/app.js", "/static/style.css", "/static/images/medicine/medicine-placeholder.jpg"} {
		rec := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestEvents_StreamsPatches(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"response": "Hello from the service", "agent": "orchestrator"}`), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	stream, err := client.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	patches := make(chan Patch, 64)
	go func() {
		defer close(patches)
		scanner := bufio.NewScanner(stream.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var p Patch
			if json.Unmarshal([]byte(data), &p) == nil {
				patches <- p
			}
		}
	}()

	first := <-patches
	assert.Equal(t, OpInput, first.Op)
	assert.True(t, first.Enabled)

	post, err := client.Post(ts.URL+"/api/input", "application/json", strings.NewReader(`{"text": "hello"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusAccepted, post.StatusCode)

	var sawUser, sawBot bool
	deadline := time.After(2 * time.Second)
	for !(sawUser && sawBot) {
		select {
		case p := <-patches:
			if p.Op != OpAppend {
				continue
			}
			sawUser = sawUser || strings.Contains(string(p.HTML), "hello")
			sawBot = sawBot || strings.Contains(string(p.HTML), "Hello from the service")
		case <-deadline:
			t.Fatalf("missing patches: user=%v bot=%v", sawUser, sawBot)
		}
	}
	cancel()
}

func TestSessionCleanup_ExpiresIdleSessions(t *testing.T) {
	srv, st := newTestServer(t, replyWith(`{"response": "ok"}`), nil)
	cookie := startSession(t, srv)

	assert.Zero(t, srv.hub.cleanupStaleSessions(context.Background()), "fresh session is kept")

	srv.hub.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, srv.hub.cleanupStaleSessions(context.Background()))
	assert.Zero(t, srv.hub.count())

	_, err := st.GetSession(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := do(t, srv, http.MethodGet, "/api/selection", "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
