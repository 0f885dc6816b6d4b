// ABOUTME: Turn controller: the single-turn-in-flight state machine.
// ABOUTME: Locks input, calls the transport, routes the reply, always unlocks.

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// FallbackText is rendered, attributed to the orchestrator, when a turn fails.
const FallbackText = "Sorry, I'm having trouble. Please try again."

// DefaultGreeting opens a new conversation.
const DefaultGreeting = "Hi there! I'm WellnessGPT. How can I help you today?"

// DefaultTurnTimeout bounds each transport call.
const DefaultTurnTimeout = 60 * time.Second

// TurnState is whether a turn is in flight.
type TurnState int32

const (
	TurnIdle TurnState = iota
	TurnLocked
)

func (s TurnState) String() string {
	if s == TurnLocked {
		return "locked"
	}
	return "idle"
}

// Pacing holds the delays that make replies feel conversational.
type Pacing struct {
	Greeting    time.Duration // before the greeting bubble
	Reply       time.Duration // between the transport returning and the reply
	Suggestions time.Duration // between the reply and the suggestion bar
}

// DefaultPacing matches the browser client's timing.
var DefaultPacing = Pacing{
	Greeting:    500 * time.Millisecond,
	Reply:       300 * time.Millisecond,
	Suggestions: 500 * time.Millisecond,
}

// Input is one user contribution: typed text, or the payload of a click.
type Input struct {
	Text         string
	CurrentAgent string
	Suggested    bool
	Card         Card
}

// TextInput returns the input for typed text.
func TextInput(text string) Input {
	return Input{Text: text}
}

// State is the application state owned by a Controller.
type State struct {
	Selection  *Selection
	Transcript *Transcript
	Agent      *AgentContext
	Registry   *Registry
}

// Options configures a Controller.
type Options struct {
	Transport Transport
	View      View
	Logger    *slog.Logger

	Pacing  Pacing
	Timeout time.Duration // zero means DefaultTurnTimeout

	// HeuristicConfirmation treats plain-text replies mentioning an
	// appointment id or a confirmation as booking completions when the
	// service does not send an explicit confirmed flag.
	HeuristicConfirmation bool

	Greeting         string
	Labels           AgentLabels
	PlaceholderImage string
	Recorder         Recorder

	// LiveCardBubbles caps how many card bubbles stay clickable; older ones
	// are unbound. Zero means DefaultLiveCardBubbles.
	LiveCardBubbles int

	Now   func() time.Time
	NewID func() string
}

// Controller runs conversation turns against a Transport and draws them
// through a View.
type Controller struct {
	state atomic.Int32

	transport Transport
	view      View
	logger    *slog.Logger
	pacing    Pacing
	timeout   time.Duration
	heuristic bool
	greeting  string

	app         *State
	messages    *MessageRenderer
	cards       *CardEngine
	suggestions *SuggestionBar

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.View == nil {
		return nil, errors.New("view is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chat")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}
	labels := opts.Labels
	if labels == nil {
		labels = NewAgentLabels(nil)
	}
	placeholder := opts.PlaceholderImage
	if placeholder == "" {
		placeholder = DefaultPlaceholderImage
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	app := &State{
		Selection:  NewSelection(),
		Transcript: NewTranscript(opts.Recorder, logger),
		Agent:      &AgentContext{},
		Registry:   NewRegistry(opts.LiveCardBubbles),
	}
	messages := &MessageRenderer{
		view:       opts.View,
		transcript: app.Transcript,
		agent:      app.Agent,
		labels:     labels,
		now:        now,
		newID:      newID,
	}

	return &Controller{
		transport: opts.Transport,
		view:      opts.View,
		logger:    logger,
		pacing:    opts.Pacing,
		timeout:   timeout,
		heuristic: opts.HeuristicConfirmation,
		greeting:  opts.Greeting,
		app:       app,
		messages:  messages,
		cards: &CardEngine{
			messages:         messages,
			selection:        app.Selection,
			registry:         app.Registry,
			placeholderImage: placeholder,
			logger:           logger,
		},
		suggestions: newSuggestionBar(opts.View, app.Registry, newID),
	}, nil
}

// State returns whether a turn is in flight.
func (c *Controller) State() TurnState {
	return TurnState(c.state.Load())
}

// App returns the controller's application state for read access.
func (c *Controller) App() *State {
	return c.app
}

func (c *Controller) acquire() bool {
	return c.state.CompareAndSwap(int32(TurnIdle), int32(TurnLocked))
}

func (c *Controller) release() {
	c.state.Store(int32(TurnIdle))
}

// Greet renders the greeting bubble after the greeting delay. It reports
// false when no greeting is configured or a turn is in flight.
func (c *Controller) Greet(ctx context.Context) bool {
	if strings.TrimSpace(c.greeting) == "" {
		return false
	}
	if err := pause(ctx, c.pacing.Greeting); err != nil {
		return false
	}
	if !c.acquire() {
		return false
	}
	defer c.release()
	return c.messages.RenderMessage(ctx, SenderBot, c.greeting, AgentOrchestrator)
}

// Submit runs one turn for in and blocks until it completes. It reports
// false, doing nothing, when the input is blank or a turn is already in
// flight.
func (c *Controller) Submit(ctx context.Context, in Input) bool {
	if strings.TrimSpace(in.Text) == "" {
		return false
	}
	turn, ok := c.Begin()
	if !ok {
		c.logger.Debug("turn in flight, dropping submission", "text", in.Text)
		return false
	}
	return turn.Submit(ctx, in)
}

// Click activates the element with the given id and blocks until any turn it
// starts completes. It reports false when the id is not bound or a turn is
// already in flight.
func (c *Controller) Click(ctx context.Context, id string) bool {
	action, ok := c.app.Registry.Lookup(id)
	if !ok {
		c.logger.Debug("click on unbound element", "element_id", id)
		return false
	}
	turn, ok := c.Begin()
	if !ok {
		c.logger.Debug("turn in flight, dropping click", "element_id", id, "action", action.Kind)
		return false
	}
	return turn.Click(ctx, id)
}

// Turn holds the turn lock from Begin until its Submit, Click or Release.
// Exactly one of them takes effect; later calls do nothing.
type Turn struct {
	c    *Controller
	used atomic.Bool
}

// Begin takes the turn lock so the caller can learn at once whether a turn
// can start, then run it elsewhere. It reports false when a turn is already
// in flight.
func (c *Controller) Begin() (*Turn, bool) {
	if !c.acquire() {
		return nil, false
	}
	return &Turn{c: c}, true
}

// Submit runs in with the held lock and releases it. Blank input releases
// the lock and reports false.
func (t *Turn) Submit(ctx context.Context, in Input) bool {
	if !t.used.CompareAndSwap(false, true) {
		return false
	}
	defer t.c.release()
	if strings.TrimSpace(in.Text) == "" {
		return false
	}
	t.c.turn(ctx, in)
	return true
}

// Click activates id with the held lock and releases it. An unbound id
// releases the lock and reports false.
func (t *Turn) Click(ctx context.Context, id string) bool {
	if !t.used.CompareAndSwap(false, true) {
		return false
	}
	defer t.c.release()
	action, ok := t.c.app.Registry.Lookup(id)
	if !ok {
		t.c.logger.Debug("click on unbound element", "element_id", id)
		return false
	}
	t.c.click(ctx, id, action)
	return true
}

// Release gives up the lock without running a turn.
func (t *Turn) Release() {
	if t.used.CompareAndSwap(false, true) {
		t.c.release()
	}
}

// click runs action with the lock held.
func (c *Controller) click(ctx context.Context, id string, action Action) {
	switch action.Kind {
	case ActionSelect:
		if current, ok := c.app.Selection.Get(action.Category); ok && current == action.ItemID {
			c.view.SetClass(id, ClassSelected, false)
			c.app.Selection.Clear(action.Category)
			return
		}
		c.highlight(action.Group, id)
		if err := c.app.Selection.Set(action.Category, action.ItemID); err != nil {
			c.logger.Warn("failed to store selection", "error", err)
		}
		c.turn(ctx, Input{Text: action.Text, Card: action.Card})
	case ActionPick:
		c.highlight(action.Group, id)
		c.turn(ctx, Input{Text: action.Text, Card: action.Card})
	case ActionSubmit:
		c.turn(ctx, Input{Text: action.Text, Card: action.Card})
	case ActionQuickReply:
		c.turn(ctx, TextInput(action.Text))
	case ActionSuggestion:
		c.turn(ctx, Input{Text: action.Text, CurrentAgent: action.AgentID, Suggested: true})
	default:
		c.logger.Warn("unknown action", "element_id", id, "action", action.Kind)
	}
}

// Cancel aborts the in-flight transport call, if any. The turn then
// finishes through the fallback path.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

func (c *Controller) highlight(group, id string) {
	for _, other := range c.app.Registry.Group(group) {
		c.view.SetClass(other, ClassSelected, false)
	}
	c.view.SetClass(id, ClassSelected, true)
}

// turn runs with the lock held.
func (c *Controller) turn(ctx context.Context, in Input) {
	if strings.TrimSpace(in.Text) == "" {
		c.logger.Warn("turn with empty message skipped")
		return
	}

	c.view.SetInput(false, PlaceholderBusy)
	defer c.view.SetInput(true, PlaceholderIdle)

	c.suggestions.Clear()
	c.messages.RenderMessage(ctx, SenderUser, in.Text, "")

	req := &Request{
		Message:          in.Text,
		CurrentAgent:     in.CurrentAgent,
		IsSuggestedReply: in.Suggested,
	}
	if in.Card != nil {
		req.CardData = in.Card.Data()
	}

	resp, err := c.exchange(ctx, req)
	if err != nil {
		c.logger.Warn("turn failed", "error", err)
		c.messages.RenderMessage(ctx, SenderBot, FallbackText, AgentOrchestrator)
		return
	}
	c.render(ctx, resp)
}

// exchange sends req under the turn timeout while the typing indicator is
// shown, then waits out the reply delay.
func (c *Controller) exchange(ctx context.Context, req *Request) (*Response, error) {
	turnCtx, cancel := context.WithTimeout(ctx, c.timeout)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()

	typing := &Element{ID: c.messages.newID(), Tag: TagTyping, Classes: []string{"typing-indicator"}}
	c.view.Append(typing)
	c.view.ScrollToEnd()

	resp, err := c.transport.Send(turnCtx, req)
	c.view.Remove(typing.ID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("transport returned no response")
	}
	if err := pause(turnCtx, c.pacing.Reply); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Controller) render(ctx context.Context, resp *Response) {
	agent := normalizeAgent(resp.Agent)

	if len(resp.Cards) > 0 {
		c.cards.RenderCards(ctx, SenderBot, resp.Cards, resp.Response, agent)
	} else if !c.messages.RenderMessage(ctx, SenderBot, resp.Response, agent) {
		c.logger.Warn("empty reply from service", "agent", agent)
	}

	if c.confirmed(resp) {
		c.cards.ClearSelections()
	}

	if len(resp.SuggestedReplies) > 0 {
		if err := pause(ctx, c.pacing.Suggestions); err != nil {
			return
		}
		c.suggestions.RenderSuggestions(resp.SuggestedReplies, agent)
	}
}

// confirmed reports whether resp completes a booking.
func (c *Controller) confirmed(resp *Response) bool {
	if resp.Confirmed != nil {
		return *resp.Confirmed
	}
	if !c.heuristic || len(resp.Cards) > 0 {
		return false
	}
	text := strings.ToLower(resp.Response)
	return strings.Contains(text, "appointment id") || strings.Contains(text, "confirmed")
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
