// ABOUTME: Message renderer: builds bubbles with agent badge and timestamp.
// ABOUTME: Every rendered bubble is appended to the view and the transcript.

package chat

import (
	"context"
	"strings"
	"time"
)

// TimeLayout is the bubble timestamp format (zero-padded HH:MM).
const TimeLayout = "15:04"

// MessageRenderer appends text bubbles to the transcript.
type MessageRenderer struct {
	view       View
	transcript *Transcript
	agent      *AgentContext
	labels     AgentLabels
	now        func() time.Time
	newID      func() string
}

// RenderMessage appends a text bubble. Empty or whitespace-only text renders
// nothing and reports false.
func (r *MessageRenderer) RenderMessage(ctx context.Context, sender Sender, text, agentID string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	msg := r.newMessage(sender, text, agentID)
	bubble, body := r.shell(msg)
	body.Add(&Element{Tag: TagText, Classes: []string{"message-content"}, Text: text})
	body.Add(r.timestamp(msg))
	r.commit(ctx, msg, bubble)
	return true
}

func (r *MessageRenderer) newMessage(sender Sender, text, agentID string) Message {
	msg := Message{
		ID:        r.newID(),
		Sender:    sender,
		Text:      text,
		Timestamp: r.now(),
	}
	if sender == SenderBot {
		msg.AgentID = normalizeAgent(agentID)
	}
	return msg
}

// shell builds the bubble wrapper and returns it with the body element that
// content goes into. Bot shells update the agent context.
func (r *MessageRenderer) shell(msg Message) (bubble, body *Element) {
	bubble = &Element{
		ID:      msg.ID,
		Tag:     TagBubble,
		Classes: []string{"message-wrapper", string(msg.Sender) + "-wrapper"},
	}
	bubble.SetAttr(AttrSender, string(msg.Sender))

	avatar := &Element{Tag: TagAvatar, Classes: []string{"message-avatar", string(msg.Sender) + "-avatar"}}
	body = &Element{Tag: TagBody, Classes: []string{"message", string(msg.Sender) + "-message"}}

	if msg.Sender == SenderBot {
		r.agent.set(msg.AgentID)
		agentClass := "agent-" + msg.AgentID
		bubble.SetAttr(AttrAgent, msg.AgentID)
		avatar.Classes = append(avatar.Classes, agentClass)
		avatar.Text = "✦"
		body.Classes = append(body.Classes, agentClass)
		body.Add(&Element{Tag: TagBadge, Classes: []string{"agent-badge"}, Text: r.labels.Label(msg.AgentID)})
	}

	bubble.Add(avatar, body)
	return bubble, body
}

func (r *MessageRenderer) timestamp(msg Message) *Element {
	return &Element{Tag: TagTime, Classes: []string{"message-time"}, Text: msg.Timestamp.Format(TimeLayout)}
}

func (r *MessageRenderer) commit(ctx context.Context, msg Message, bubble *Element) {
	r.view.Append(bubble)
	r.transcript.Append(ctx, msg)
	r.view.ScrollToEnd()
}
