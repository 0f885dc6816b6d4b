// ABOUTME: Tests for HTML rendering of element trees and the page view
// ABOUTME: Checks escaping, markdown, click targets and published patches

package webui

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/chat"
)

func bubble(id string, sender chat.Sender, text string) *chat.Element {
	el := &chat.Element{ID: id, Tag: chat.TagBubble, Classes: []string{"message-wrapper"}}
	el.SetAttr(chat.AttrSender, string(sender))
	body := &chat.Element{Tag: chat.TagBody, Classes: []string{"message"}}
	body.Add(&chat.Element{Tag: chat.TagText, Classes: []string{"message-content"}, Text: text})
	return el.Add(body)
}

func TestRenderer_BotTextIsMarkdown(t *testing.T) {
	html, err := NewRenderer().Render(bubble("b-1", chat.SenderBot, "Take **two** tablets"))
	require.NoError(t, err)

	assert.Contains(t, string(html), `id="el-b-1"`)
	assert.Contains(t, string(html), `data-sender="bot"`)
	assert.Contains(t, string(html), "<strong>two</strong>")
}

func TestRenderer_UserTextIsEscaped(t *testing.T) {
	html, err := NewRenderer().Render(bubble("u-1", chat.SenderUser, "<script>alert(1)</script> **hi**"))
	require.NoError(t, err)

	assert.NotContains(t, string(html), "<script>")
	assert.Contains(t, string(html), "&lt;script&gt;")
	assert.Contains(t, string(html), "**hi**", "user text is not markdown")
}

func TestRenderer_BotRawHTMLIsOmitted(t *testing.T) {
	html, err := NewRenderer().Render(bubble("b-1", chat.SenderBot, "<img src=x onerror=alert(1)>"))
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<img")
}

func TestRenderer_CardParts(t *testing.T) {
	card := &chat.Element{ID: "c-1", Tag: chat.TagCard, Classes: []string{"message-card", "medicine-card"}, Action: &chat.Action{Kind: chat.ActionSubmit}}
	card.Add(
		(&chat.Element{Tag: chat.TagImage, Classes: []string{"medicine-image"}}).
			SetAttr(chat.AttrSrc, "https://img.example/p.jpg").
			SetAttr(chat.AttrAlt, "Paracetamol").
			SetAttr(chat.AttrFallback, "/static/images/medicine/medicine-placeholder.jpg"),
		&chat.Element{Tag: chat.TagTitle, Text: "Paracetamol"},
		&chat.Element{Tag: chat.TagField, Label: "Dosage", Text: "500mg"},
		(&chat.Element{Tag: chat.TagList}).SetAttr(chat.AttrOrdered, "true").Add(
			&chat.Element{Tag: chat.TagItem, Text: "Bring ID"},
		),
	)

	html, err := NewRenderer().Render(card)
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, `data-click="c-1"`)
	assert.Contains(t, out, `class="message-card medicine-card"`)
	assert.Contains(t, out, `src="https://img.example/p.jpg"`)
	assert.Contains(t, out, `data-fallback="/static/images/medicine/medicine-placeholder.jpg"`)
	assert.Contains(t, out, "<h4>Paracetamol</h4>")
	assert.Contains(t, out, "<strong>Dosage:</strong> 500mg")
	assert.Contains(t, out, "<ol><li>Bring ID</li></ol>")
}

func TestRenderer_ButtonListStaysDiv(t *testing.T) {
	bar := &chat.Element{ID: "bar", Tag: chat.TagSuggestions}
	bar.Add((&chat.Element{Tag: chat.TagList}).Add(
		&chat.Element{ID: "s-1", Tag: chat.TagButton, Text: "Book a visit", Action: &chat.Action{Kind: chat.ActionSuggestion}},
	))

	html, err := NewRenderer().Render(bar)
	require.NoError(t, err)

	assert.NotContains(t, string(html), "<ul")
	assert.Contains(t, string(html), `<button type="button" id="el-s-1" data-click="s-1">Book a visit</button>`)
}

// patchLog collects published patches.
type patchLog struct {
	mu      sync.Mutex
	patches []Patch
}

func (l *patchLog) publish(p Patch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patches = append(l.patches, p)
}

func (l *patchLog) ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]string, 0, len(l.patches))
	for _, p := range l.patches {
		ops = append(ops, p.Op)
	}
	return ops
}

func TestView_Patches(t *testing.T) {
	log := &patchLog{}
	v := NewView(NewRenderer(), log.publish, nil)

	card := &chat.Element{ID: "c-1", Tag: chat.TagCard, Classes: []string{"message-card"}}
	msg := bubble("b-1", chat.SenderBot, "Pick one")
	msg.Children[0].Add((&chat.Element{Tag: chat.TagCards}).Add(card))

	v.Append(msg)
	v.SetClass("c-1", chat.ClassSelected, true)
	v.SetClass("c-1", chat.ClassSelected, true) // already set
	v.SetClass("missing", chat.ClassSelected, true)
	v.SetInput(false, chat.PlaceholderBusy)
	v.ScrollToEnd()

	assert.Equal(t, []string{OpAppend, OpClass, OpInput, OpScroll}, log.ops())

	enabled, placeholder := v.Input()
	assert.False(t, enabled)
	assert.Equal(t, chat.PlaceholderBusy, placeholder)

	page := v.Page()
	require.Len(t, page, 1)
	assert.Contains(t, string(page[0]), `class="message-card selected"`)
}

func TestView_Remove(t *testing.T) {
	log := &patchLog{}
	v := NewView(NewRenderer(), log.publish, nil)

	v.Append(bubble("b-1", chat.SenderUser, "hello"))
	v.Append(&chat.Element{ID: "typing", Tag: chat.TagTyping})
	require.Equal(t, 2, v.Len())

	v.Remove("typing")
	v.Remove("typing")

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []string{OpAppend, OpAppend, OpRemove}, log.ops())
	assert.False(t, strings.Contains(string(v.Page()[0]), "typing"))
}
