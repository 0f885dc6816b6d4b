// ABOUTME: Tests for the terminal input loop's line handling
// ABOUTME: Checks that #n clicks widgets and everything else is sent as text

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/chat"
	"github.com/2389/wellness-client/internal/termui"
)

func init() {
	color.NoColor = true
}

const hospitalsReply = `{
	"response": "Here are hospitals near you:",
	"agent": "scheduling",
	"cards": [
		{"type": "hospital", "title": "City Hospital", "hospital_id": "h-1"},
		{"type": "hospital", "title": "Green Clinic", "hospital_id": "h-2"},
		{"type": "hospital", "title": "Lake Hospital", "hospital_id": "h-3"}
	]
}`

// recorder answers every request with the hospital cards and keeps the requests.
type recorder struct {
	mu       sync.Mutex
	requests []*chat.Request
}

func (r *recorder) Send(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	var resp chat.Response
	if err := json.Unmarshal([]byte(hospitalsReply), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *recorder) last(t *testing.T) *chat.Request {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func newTestTUI(t *testing.T) (*tui, *recorder) {
	t.Helper()
	out := &bytes.Buffer{}
	view := termui.New(io.Discard)
	transport := &recorder{}
	ctrl, err := chat.New(chat.Options{Transport: transport, View: view})
	require.NoError(t, err)
	return &tui{
		ctx:    context.Background(),
		out:    out,
		ctrl:   ctrl,
		view:   view,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, transport
}

func TestHandle_BareNumberIsSentAsText(t *testing.T) {
	tu, transport := newTestTUI(t)

	assert.False(t, tu.handle("show hospitals"))
	tu.turns.Wait()
	require.Len(t, tu.ctrl.App().Registry.Group(chat.GroupHospital), 3)

	assert.False(t, tu.handle("3"))
	tu.turns.Wait()

	req := transport.last(t)
	assert.Equal(t, "3", req.Message)
	assert.Nil(t, req.CardData)
	assert.Empty(t, tu.ctrl.App().Selection.Snapshot())
}

func TestHandle_HashNumberClicksWidget(t *testing.T) {
	tu, transport := newTestTUI(t)

	assert.False(t, tu.handle("show hospitals"))
	tu.turns.Wait()

	assert.False(t, tu.handle("#3"))
	tu.turns.Wait()

	req := transport.last(t)
	assert.Equal(t, "Lake Hospital", req.Message)
	assert.NotNil(t, req.CardData)
	id, ok := tu.ctrl.App().Selection.Get(chat.CategoryHospital)
	require.True(t, ok)
	assert.Equal(t, "h-3", id)
}
