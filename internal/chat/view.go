// ABOUTME: View is the presentation capability the controller draws through.
// ABOUTME: Registry tracks which live element ids are bound to which Action.

package chat

import "sync"

// View is implemented by presentation layers (terminal, web).
//
// Calls arrive from the goroutine running the current turn; a view that
// shares state with other goroutines must do its own locking.
type View interface {
	// Append adds a top-level element at the end of the transcript.
	Append(el *Element)
	// Remove deletes a top-level element by id. Unknown ids are ignored.
	Remove(id string)
	// SetClass adds or removes a class on any rendered element.
	SetClass(id, class string, on bool)
	// SetInput enables or disables the input surface.
	SetInput(enabled bool, placeholder string)
	// ScrollToEnd brings the newest entry into view.
	ScrollToEnd()
}

// Input placeholders.
const (
	PlaceholderIdle = "Ask me anything..."
	PlaceholderBusy = "Processing..."
)

// DefaultLiveCardBubbles is how many card bubbles stay clickable.
const DefaultLiveCardBubbles = 50

// Registry maps live element ids to their actions and highlight groups.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Action
	groups   map[string][]string

	// owners lists card bubbles oldest first with the ids bound inside them.
	owners []ownedIDs
	limit  int
}

type ownedIDs struct {
	owner string
	ids   []string
}

// Binding is an id together with the action it was bound to.
type Binding struct {
	ID     string
	Action Action
}

// NewRegistry returns an empty registry that keeps the bindings of at most
// limit owners. A limit of zero or less means DefaultLiveCardBubbles.
func NewRegistry(limit int) *Registry {
	if limit <= 0 {
		limit = DefaultLiveCardBubbles
	}
	return &Registry{
		bindings: make(map[string]Action),
		groups:   make(map[string][]string),
		limit:    limit,
	}
}

// Own records that ids were bound inside owner. Once more than the limit of
// owners are live, the oldest owners' ids are unbound and returned.
func (r *Registry) Own(owner string, ids []string) []Binding {
	if len(ids) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners = append(r.owners, ownedIDs{owner: owner, ids: ids})

	var retired []Binding
	for len(r.owners) > r.limit {
		oldest := r.owners[0]
		r.owners = r.owners[1:]
		for _, id := range oldest.ids {
			if action, ok := r.unbind(id); ok {
				retired = append(retired, Binding{ID: id, Action: action})
			}
		}
	}
	return retired
}

// Bind associates id with action, adding it to action.Group when set.
func (r *Registry) Bind(id string, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = action
	if action.Group != "" {
		r.groups[action.Group] = append(r.groups[action.Group], id)
	}
}

// Unbind forgets id.
func (r *Registry) Unbind(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unbind(id)
}

func (r *Registry) unbind(id string) (Action, bool) {
	action, ok := r.bindings[id]
	if !ok {
		return Action{}, false
	}
	delete(r.bindings, id)
	if action.Group == "" {
		return action, true
	}
	ids := r.groups[action.Group]
	for i, gid := range ids {
		if gid == id {
			r.groups[action.Group] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(r.groups[action.Group]) == 0 {
		delete(r.groups, action.Group)
	}
	return action, true
}

// Len returns the number of bound ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Lookup returns the action bound to id.
func (r *Registry) Lookup(id string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.bindings[id]
	return action, ok
}

// Group returns the ids in a highlight group.
func (r *Registry) Group(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.groups[name]...)
}

// Highlightable returns every id that belongs to any highlight group.
func (r *Registry) Highlightable() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, group := range r.groups {
		ids = append(ids, group...)
	}
	return ids
}
