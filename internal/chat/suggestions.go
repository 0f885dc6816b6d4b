// ABOUTME: Suggestion bar: transient quick replies tied to the producing agent.
// ABOUTME: At most one bar is live; rendering or taking any turn removes it.

package chat

import (
	"strings"
	"sync"
)

// SuggestionsHeader labels every suggestion bar.
const SuggestionsHeader = "Quick questions:"

// SuggestionBar renders suggested replies.
type SuggestionBar struct {
	view     View
	registry *Registry
	newID    func() string

	mu   sync.Mutex
	bars map[string][]string // bar id -> button ids
}

func newSuggestionBar(view View, registry *Registry, newID func() string) *SuggestionBar {
	return &SuggestionBar{
		view:     view,
		registry: registry,
		newID:    newID,
		bars:     make(map[string][]string),
	}
}

// RenderSuggestions replaces any displayed bar with one button per
// non-blank suggestion. It reports false and leaves existing bars alone when
// there is nothing to show.
func (b *SuggestionBar) RenderSuggestions(suggestions []string, agentID string) bool {
	var texts []string
	for _, s := range suggestions {
		if strings.TrimSpace(s) != "" {
			texts = append(texts, s)
		}
	}
	if len(texts) == 0 {
		return false
	}

	b.Clear()

	agentID = normalizeAgent(agentID)
	bar := &Element{ID: b.newID(), Tag: TagSuggestions, Classes: []string{"suggested-replies-container"}}
	bar.SetAttr(AttrAgent, agentID)
	bar.Add(&Element{Tag: TagHeader, Classes: []string{"suggested-replies-header"}, Text: SuggestionsHeader})

	buttons := &Element{Tag: TagList, Classes: []string{"suggested-replies-list"}}
	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		action := Action{Kind: ActionSuggestion, Text: text, AgentID: agentID}
		btn := &Element{
			ID:      b.newID(),
			Tag:     TagButton,
			Classes: []string{"suggested-reply", "agent-" + agentID},
			Text:    text,
			Action:  &action,
		}
		b.registry.Bind(btn.ID, action)
		ids = append(ids, btn.ID)
		buttons.Add(btn)
	}
	bar.Add(buttons)

	b.mu.Lock()
	b.bars[bar.ID] = ids
	b.mu.Unlock()

	b.view.Append(bar)
	b.view.ScrollToEnd()
	return true
}

// Clear removes every displayed bar and unbinds its buttons.
func (b *SuggestionBar) Clear() {
	b.mu.Lock()
	bars := b.bars
	b.bars = make(map[string][]string)
	b.mu.Unlock()

	for barID, ids := range bars {
		for _, id := range ids {
			b.registry.Unbind(id)
		}
		b.view.Remove(barID)
	}
}

// Live reports how many bars are displayed.
func (b *SuggestionBar) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bars)
}
