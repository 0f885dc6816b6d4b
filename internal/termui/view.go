// ABOUTME: Terminal implementation of chat.View: bubbles, boxed cards and
// ABOUTME: numbered widgets that the user activates by typing #n.

package termui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/2389/wellness-client/internal/chat"
)

const defaultWidth = 72

var (
	userColor    = color.New(color.FgGreen, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	selectColor  = color.New(color.FgGreen)
	headerColor  = color.New(color.FgCyan, color.Bold)
	numberColor  = color.New(color.FgYellow, color.Bold)
	defaultAgent = color.New(color.FgBlue, color.Bold)

	agentColors = map[string]*color.Color{
		"orchestrator":    color.New(color.FgBlue, color.Bold),
		"symptom":         color.New(color.FgRed, color.Bold),
		"care_plan":       color.New(color.FgGreen, color.Bold),
		"policy_analysis": color.New(color.FgMagenta, color.Bold),
		"scheduling":      color.New(color.FgCyan, color.Bold),
		"pharmacy":        color.New(color.FgYellow, color.Bold),
		"lab_test":        color.New(color.FgHiMagenta, color.Bold),
	}
)

// Option configures a View.
type Option func(*View)

// WithWidth sets the card box width in columns.
func WithWidth(width int) Option {
	return func(v *View) {
		if width > 20 {
			v.width = width
		}
	}
}

// WithInputHook is called whenever the controller enables or disables input,
// so the caller can update its prompt.
func WithInputHook(fn func(enabled bool, placeholder string)) Option {
	return func(v *View) {
		v.onInput = fn
	}
}

// View renders the conversation as text.
type View struct {
	mu      sync.Mutex
	out     io.Writer
	width   int
	onInput func(enabled bool, placeholder string)

	next     int
	ids      map[int]string      // widget number -> element id
	owned    map[string][]int    // top-level element id -> widget numbers inside it
	titles   map[string]string   // element id -> title, for selection notices
	selected map[string]struct{} // element ids currently highlighted

	cardStyle     lipgloss.Style
	selectedStyle lipgloss.Style
}

// New creates a View writing to out.
func New(out io.Writer, opts ...Option) *View {
	v := &View{
		out:      out,
		width:    defaultWidth,
		ids:      make(map[int]string),
		owned:    make(map[string][]int),
		titles:   make(map[string]string),
		selected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.cardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(v.width - 2)
	v.selectedStyle = v.cardStyle.BorderForeground(lipgloss.Color("2"))
	return v
}

// Append implements chat.View.
func (v *View) Append(el *chat.Element) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	switch el.Tag {
	case chat.TagBubble:
		v.bubble(&b, el)
	case chat.TagSuggestions:
		v.suggestions(&b, el)
	case chat.TagTyping:
		b.WriteString(dimColor.Sprint("  ✦ typing…") + "\n")
	default:
		b.WriteString(v.block(el.ID, el) + "\n")
	}
	fmt.Fprint(v.out, b.String())
}

// Remove implements chat.View. Printed text stays on screen; the widgets
// inside the removed element stop resolving.
func (v *View) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, n := range v.owned[id] {
		delete(v.ids, n)
	}
	delete(v.owned, id)
}

// SetClass implements chat.View. Highlight changes print a one-line notice.
func (v *View) SetClass(id, class string, on bool) {
	if class != chat.ClassSelected {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	_, was := v.selected[id]
	title := v.titles[id]
	switch {
	case on && !was:
		v.selected[id] = struct{}{}
		fmt.Fprintln(v.out, selectColor.Sprintf("  ✓ Selected: %s", title))
	case !on && was:
		delete(v.selected, id)
		fmt.Fprintln(v.out, dimColor.Sprintf("  ○ Cleared: %s", title))
	}
}

// SetInput implements chat.View.
func (v *View) SetInput(enabled bool, placeholder string) {
	v.mu.Lock()
	hook := v.onInput
	v.mu.Unlock()
	if hook != nil {
		hook(enabled, placeholder)
	}
}

// ScrollToEnd implements chat.View. A terminal is always at the end.
func (v *View) ScrollToEnd() {}

// Resolve maps "#3" to the element id of widget 3. A bare "3" is typed
// text, not a widget reference.
func (v *View) Resolve(ref string) (string, bool) {
	num, ok := strings.CutPrefix(strings.TrimSpace(ref), "#")
	if !ok {
		return "", false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return "", false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.ids[n]
	return id, ok
}

// number assigns the next widget number to id under owner.
func (v *View) number(owner, id string) int {
	v.next++
	v.ids[v.next] = id
	v.owned[owner] = append(v.owned[owner], v.next)
	return v.next
}

func (v *View) bubble(b *strings.Builder, el *chat.Element) {
	sender := chat.Sender(el.Attr(chat.AttrSender))
	var body *chat.Element
	for _, child := range el.Children {
		if child.Tag == chat.TagBody {
			body = child
		}
	}
	if body == nil {
		return
	}

	var badge, stamp string
	for _, child := range body.Children {
		switch child.Tag {
		case chat.TagBadge:
			badge = child.Text
		case chat.TagTime:
			stamp = child.Text
		}
	}

	b.WriteString("\n")
	if sender == chat.SenderUser {
		b.WriteString(userColor.Sprint("You") + " " + dimColor.Sprint(stamp) + "\n")
	} else {
		c, ok := agentColors[el.Attr(chat.AttrAgent)]
		if !ok {
			c = defaultAgent
		}
		b.WriteString(c.Sprint("✦ "+badge) + " " + dimColor.Sprint(stamp) + "\n")
	}

	for _, child := range body.Children {
		switch child.Tag {
		case chat.TagText:
			for _, line := range strings.Split(child.Text, "\n") {
				b.WriteString("  " + line + "\n")
			}
		case chat.TagCards:
			for _, card := range child.Children {
				b.WriteString(v.block(el.ID, card) + "\n")
			}
		}
	}
}

func (v *View) suggestions(b *strings.Builder, el *chat.Element) {
	for _, child := range el.Children {
		switch child.Tag {
		case chat.TagHeader:
			b.WriteString(headerColor.Sprint("  "+child.Text) + "\n")
		case chat.TagList:
			for _, btn := range child.Children {
				n := v.number(el.ID, btn.ID)
				b.WriteString("    " + numberColor.Sprintf("[%d]", n) + " " + btn.Text + "\n")
			}
		}
	}
}

// block renders a card inside a box. Clickable cards and buttons get widget
// numbers owned by owner.
func (v *View) block(owner string, card *chat.Element) string {
	var lines []string
	prefix := ""
	if card.Action != nil {
		prefix = numberColor.Sprintf("[%d]", v.number(owner, card.ID)) + " "
	}
	v.titles[card.ID] = cardTitle(card)

	first := true
	for _, child := range card.Children {
		line := v.line(owner, child)
		if line == "" {
			continue
		}
		if first {
			line = prefix + line
			first = false
		}
		lines = append(lines, line)
	}
	if first && prefix != "" {
		lines = append(lines, prefix)
	}

	style := v.cardStyle
	if card.Attr(chat.AttrInteractive) == "false" {
		style = v.selectedStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (v *View) line(owner string, el *chat.Element) string {
	bold := lipgloss.NewStyle().Bold(true)
	switch el.Tag {
	case chat.TagTitle:
		return bold.Render(el.Text)
	case chat.TagSubtitle:
		return lipgloss.NewStyle().Italic(true).Render(el.Text)
	case chat.TagDescription, chat.TagText:
		return el.Text
	case chat.TagMeta:
		return dimColor.Sprint(el.Text)
	case chat.TagField:
		return dimColor.Sprint(el.Label+": ") + el.Text
	case chat.TagBadge:
		return "(" + el.Text + ")"
	case chat.TagNote:
		return lipgloss.NewStyle().Italic(true).Render(el.Text)
	case chat.TagImage:
		return dimColor.Sprintf("[image: %s]", el.Attr(chat.AttrAlt))
	case chat.TagAvatar:
		return el.Text
	case chat.TagList:
		items := make([]string, 0, len(el.Children))
		for i, item := range el.Children {
			marker := "•"
			if el.Attr(chat.AttrOrdered) == "true" {
				marker = strconv.Itoa(i+1) + "."
			}
			items = append(items, "  "+marker+" "+item.Text)
		}
		return strings.Join(items, "\n")
	case chat.TagButton:
		return numberColor.Sprintf("[%d]", v.number(owner, el.ID)) + " " + el.Text
	case chat.TagHeader:
		parts := make([]string, 0, len(el.Children))
		for _, child := range el.Children {
			if s := v.line(owner, child); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case chat.TagSection:
		parts := make([]string, 0, len(el.Children))
		for _, child := range el.Children {
			if s := v.line(owner, child); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return el.Text
	}
}

// cardTitle finds the first title in card's subtree.
func cardTitle(card *chat.Element) string {
	title := ""
	card.Walk(func(e *chat.Element) bool {
		if e.Tag == chat.TagTitle {
			title = e.Text
			return false
		}
		return true
	})
	return title
}
