// ABOUTME: Tests for the terminal view driven by a real chat controller.
// ABOUTME: Covers bubbles, card boxes, widget numbering and selection notices.

package termui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/chat"
)

func init() {
	color.NoColor = true
}

// syncBuffer is a bytes.Buffer safe for the controller and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHarness(t *testing.T, replies ...string) (*chat.Controller, *View, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	view := New(out, WithWidth(60))

	var mu sync.Mutex
	next := 0
	transport := chat.TransportFunc(func(ctx context.Context, req *chat.Request) (*chat.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			return nil, fmt.Errorf("no scripted reply for %q", req.Message)
		}
		var resp chat.Response
		if err := json.Unmarshal([]byte(replies[next]), &resp); err != nil {
			return nil, err
		}
		next++
		return &resp, nil
	})

	ctrl, err := chat.New(chat.Options{
		Transport: transport,
		View:      view,
		Now:       func() time.Time { return time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return ctrl, view, out
}

const hospitals = `{
	"response": "Here are hospitals near you:",
	"agent": "scheduling",
	"cards": [
		{"type": "hospital", "title": "City Hospital", "meta": "2.1 km", "hospital_id": "h-1"},
		{"type": "hospital", "title": "Green Clinic", "hospital_id": "h-2"}
	]
}`

func TestView_TextTurn(t *testing.T) {
	ctrl, _, out := newHarness(t, `{"response": "Rest and drink fluids.", "agent": "symptom"}`)

	require.True(t, ctrl.Submit(context.Background(), chat.TextInput("I have a fever")))

	text := out.String()
	assert.Contains(t, text, "You 09:05")
	assert.Contains(t, text, "  I have a fever")
	assert.Contains(t, text, "✦ Symptom Triage Agent")
	assert.Contains(t, text, "  Rest and drink fluids.")
	assert.Contains(t, text, "typing")
	assert.Less(t, strings.Index(text, "I have a fever"), strings.Index(text, "Rest and drink"))
}

func TestView_CardsAreNumbered(t *testing.T) {
	ctrl, view, out := newHarness(t, hospitals)

	require.True(t, ctrl.Submit(context.Background(), chat.TextInput("find a hospital")))

	text := out.String()
	assert.Contains(t, text, "[1] City Hospital")
	assert.Contains(t, text, "[2] Green Clinic")
	assert.Contains(t, text, "2.1 km")
	assert.Contains(t, text, "╭", "cards are boxed")

	id, ok := view.Resolve("#1")
	require.True(t, ok)
	_, bound := ctrl.App().Registry.Lookup(id)
	assert.True(t, bound)

	_, ok = view.Resolve("#9")
	assert.False(t, ok)
	_, ok = view.Resolve("nope")
	assert.False(t, ok)
}

func TestView_SelectionNotices(t *testing.T) {
	ctrl, view, out := newHarness(t, hospitals, `{"response": "Which day works?", "agent": "scheduling"}`)
	ctx := context.Background()

	require.True(t, ctrl.Submit(ctx, chat.TextInput("find a hospital")))
	id, ok := view.Resolve("#1")
	require.True(t, ok)

	require.True(t, ctrl.Click(ctx, id))
	assert.Contains(t, out.String(), "✓ Selected: City Hospital")
	assert.Contains(t, out.String(), "Which day works?")

	// Clicking the selected hospital again deselects it without a turn.
	require.True(t, ctrl.Click(ctx, id))
	assert.Contains(t, out.String(), "○ Cleared: City Hospital")
	assert.Equal(t, 1, strings.Count(out.String(), "Which day works?"))
}

func TestView_SuggestionsRetireOnNextTurn(t *testing.T) {
	ctrl, view, out := newHarness(t,
		`{"response": "Anything else?", "agent": "symptom", "suggested_replies": ["Book a visit", "Tell me more"]}`,
		`{"response": "Sure.", "agent": "scheduling"}`,
	)
	ctx := context.Background()

	require.True(t, ctrl.Submit(ctx, chat.TextInput("headache")))
	assert.Contains(t, out.String(), "Quick questions:")
	assert.Contains(t, out.String(), "[1] Book a visit")
	assert.Contains(t, out.String(), "[2] Tell me more")

	id, ok := view.Resolve("#1")
	require.True(t, ok)
	require.True(t, ctrl.Click(ctx, id))

	_, ok = view.Resolve("#1")
	assert.False(t, ok, "removed suggestions no longer resolve")
	_, ok = view.Resolve("#2")
	assert.False(t, ok)
}

func TestView_BareNumberIsNotAReference(t *testing.T) {
	ctrl, view, out := newHarness(t,
		`{"response": "How long?", "agent": "symptom", "suggested_replies": ["A day", "A week", "Longer"]}`,
	)

	require.True(t, ctrl.Submit(context.Background(), chat.TextInput("headache")))
	require.Contains(t, out.String(), "[3] Longer")

	_, ok := view.Resolve("3")
	assert.False(t, ok, "a typed answer is text")
	_, ok = view.Resolve(" 3 ")
	assert.False(t, ok)

	id, ok := view.Resolve("#3")
	require.True(t, ok)
	_, bound := ctrl.App().Registry.Lookup(id)
	assert.True(t, bound)
}

func TestView_InputHook(t *testing.T) {
	var states []string
	view := New(&bytes.Buffer{}, WithInputHook(func(enabled bool, placeholder string) {
		states = append(states, fmt.Sprintf("%v:%s", enabled, placeholder))
	}))

	view.SetInput(false, chat.PlaceholderBusy)
	view.SetInput(true, chat.PlaceholderIdle)

	assert.Equal(t, []string{"false:Processing...", "true:Ask me anything..."}, states)
}

func TestView_ConfirmationLists(t *testing.T) {
	ctrl, _, out := newHarness(t, `{
		"response": "",
		"agent": "scheduling",
		"cards": [{
			"type": "booking_confirmation",
			"appointment_id": "APT-1001",
			"details": {"Hospital": "City Hospital", "Time": "10:00"},
			"instructions": ["Bring ID", "Arrive early"]
		}]
	}`)

	require.True(t, ctrl.Submit(context.Background(), chat.TextInput("book it")))

	text := out.String()
	assert.Contains(t, text, "Appointment Confirmed")
	assert.Contains(t, text, "Hospital: City Hospital")
	assert.Contains(t, text, "1. Bring ID")
	assert.Contains(t, text, "2. Arrive early")
	assert.NotContains(t, text, "[1]", "confirmation cards are not clickable")
}

func TestView_SetClassIgnoresOtherClasses(t *testing.T) {
	out := &bytes.Buffer{}
	view := New(out)

	view.SetClass("x", "pulsing", true)
	view.SetClass("x", chat.ClassSelected, false)

	assert.Empty(t, out.String())
}
