// ABOUTME: Element trees handed to views, and the Action values bound to them.
// ABOUTME: Clicks are data: a view reports an element id, never calls back.

package chat

import "slices"

// Tag names the role of an element. Views map tags to their own widgets.
type Tag string

const (
	TagBubble      Tag = "bubble"
	TagAvatar      Tag = "avatar"
	TagBody        Tag = "body"
	TagBadge       Tag = "badge"
	TagText        Tag = "text"
	TagTime        Tag = "time"
	TagCards       Tag = "cards"
	TagCard        Tag = "card"
	TagTitle       Tag = "title"
	TagSubtitle    Tag = "subtitle"
	TagDescription Tag = "description"
	TagMeta        Tag = "meta"
	TagField       Tag = "field"
	TagSection     Tag = "section"
	TagList        Tag = "list"
	TagItem        Tag = "item"
	TagImage       Tag = "image"
	TagButton      Tag = "button"
	TagHeader      Tag = "header"
	TagNote        Tag = "note"
	TagSuggestions Tag = "suggestions"
	TagTyping      Tag = "typing"
)

// Well-known attribute keys.
const (
	AttrSender      = "sender"
	AttrAgent       = "agent"
	AttrSrc         = "src"
	AttrAlt         = "alt"
	AttrFallback    = "fallback"
	AttrOrdered     = "ordered"
	AttrInteractive = "interactive"
)

// ClassSelected marks the highlighted card of a selection group.
const ClassSelected = "selected"

// Element is a node in a rendered tree.
type Element struct {
	ID       string
	Tag      Tag
	Classes  []string
	Label    string // field label, e.g. "Dosage"
	Text     string
	Attrs    map[string]string
	Children []*Element
	Action   *Action // non-nil when the element is clickable
}

// Add appends children and returns e.
func (e *Element) Add(children ...*Element) *Element {
	for _, child := range children {
		if child != nil {
			e.Children = append(e.Children, child)
		}
	}
	return e
}

// Attr returns the value of an attribute.
func (e *Element) Attr(key string) string {
	return e.Attrs[key]
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(key, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[key] = value
	return e
}

// HasClass reports whether e carries class.
func (e *Element) HasClass(class string) bool {
	return slices.Contains(e.Classes, class)
}

// SetClass adds or removes class.
func (e *Element) SetClass(class string, on bool) {
	has := e.HasClass(class)
	switch {
	case on && !has:
		e.Classes = append(e.Classes, class)
	case !on && has:
		e.Classes = slices.DeleteFunc(e.Classes, func(c string) bool { return c == class })
	}
}

// Walk visits e and its descendants depth-first. Returning false from fn
// stops the walk.
func (e *Element) Walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, child := range e.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the descendant (or e itself) with the given id.
func (e *Element) Find(id string) *Element {
	var found *Element
	e.Walk(func(el *Element) bool {
		if el.ID == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// ActionKind says what a click on an element does.
type ActionKind int

const (
	// ActionSelect toggles a stored selection, then starts a turn when the
	// card became selected.
	ActionSelect ActionKind = iota + 1
	// ActionPick highlights the card exclusively in its group and starts a turn.
	ActionPick
	// ActionSubmit starts a turn carrying the card payload.
	ActionSubmit
	// ActionQuickReply starts a turn as if the text had been typed.
	ActionQuickReply
	// ActionSuggestion starts a suggested-reply turn for the producing agent.
	ActionSuggestion
)

func (k ActionKind) String() string {
	switch k {
	case ActionSelect:
		return "select"
	case ActionPick:
		return "pick"
	case ActionSubmit:
		return "submit"
	case ActionQuickReply:
		return "quick_reply"
	case ActionSuggestion:
		return "suggestion"
	default:
		return "unknown"
	}
}

// Action is the follow-up bound to a clickable element.
type Action struct {
	Kind ActionKind
	Text string
	Card Card

	// Category and ItemID are set for ActionSelect.
	Category Category
	ItemID   string

	// Group scopes exclusive highlighting for ActionSelect and ActionPick.
	Group string

	// AgentID is the producing agent for ActionSuggestion.
	AgentID string
}
