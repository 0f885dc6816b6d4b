// ABOUTME: Browser implementation of chat.View that keeps the page as state
// ABOUTME: Every view operation updates the document and publishes a patch

package webui

import (
	"html/template"
	"log/slog"
	"slices"
	"sync"

	"github.com/2389/wellness-client/internal/chat"
)

// Patch operations sent to the browser.
const (
	OpAppend = "append"
	OpRemove = "remove"
	OpClass  = "class"
	OpInput  = "input"
	OpScroll = "scroll"
)

// Patch is one change to the page.
type Patch struct {
	Op          string        `json:"op"`
	ID          string        `json:"id,omitempty"`
	HTML        template.HTML `json:"html,omitempty"`
	Class       string        `json:"class,omitempty"`
	On          bool          `json:"on,omitempty"`
	Enabled     bool          `json:"enabled,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
}

// View is the page of one browser session. It is safe for concurrent use:
// the controller mutates it from turn goroutines while handlers read it.
type View struct {
	mu       sync.Mutex
	doc      []*chat.Element          // top-level elements in page order
	index    map[string]*chat.Element // every element with an id
	enabled  bool
	hint     string
	renderer *Renderer
	publish  func(Patch)
	logger   *slog.Logger
}

// NewView creates an empty page. publish receives every patch; it may be nil.
func NewView(renderer *Renderer, publish func(Patch), logger *slog.Logger) *View {
	if publish == nil {
		publish = func(Patch) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		index:    make(map[string]*chat.Element),
		enabled:  true,
		hint:     chat.PlaceholderIdle,
		renderer: renderer,
		publish:  publish,
		logger:   logger,
	}
}

// Append implements chat.View.
func (v *View) Append(el *chat.Element) {
	html, err := v.renderer.Render(el)
	if err != nil {
		v.logger.Error("failed to render element", "element_id", el.ID, "error", err)
		return
	}

	v.mu.Lock()
	v.doc = append(v.doc, el)
	el.Walk(func(e *chat.Element) bool {
		if e.ID != "" {
			v.index[e.ID] = e
		}
		return true
	})
	v.mu.Unlock()

	v.publish(Patch{Op: OpAppend, ID: el.ID, HTML: html})
}

// Remove implements chat.View.
func (v *View) Remove(id string) {
	v.mu.Lock()
	el, ok := v.index[id]
	if !ok {
		v.mu.Unlock()
		return
	}
	el.Walk(func(e *chat.Element) bool {
		delete(v.index, e.ID)
		return true
	})
	v.doc = slices.DeleteFunc(v.doc, func(e *chat.Element) bool { return e.ID == id })
	v.mu.Unlock()

	v.publish(Patch{Op: OpRemove, ID: id})
}

// SetClass implements chat.View. Setting a class an element already has (or
// clearing one it lacks) publishes nothing.
func (v *View) SetClass(id, class string, on bool) {
	v.mu.Lock()
	el, ok := v.index[id]
	if !ok || el.HasClass(class) == on {
		v.mu.Unlock()
		return
	}
	el.SetClass(class, on)
	v.mu.Unlock()

	v.publish(Patch{Op: OpClass, ID: id, Class: class, On: on})
}

// SetInput implements chat.View.
func (v *View) SetInput(enabled bool, placeholder string) {
	v.mu.Lock()
	v.enabled = enabled
	v.hint = placeholder
	v.mu.Unlock()

	v.publish(Patch{Op: OpInput, Enabled: enabled, Placeholder: placeholder})
}

// ScrollToEnd implements chat.View.
func (v *View) ScrollToEnd() {
	v.publish(Patch{Op: OpScroll})
}

// Input returns the current state of the input surface.
func (v *View) Input() (enabled bool, placeholder string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled, v.hint
}

// Page renders the whole document, for a fresh page load.
func (v *View) Page() []template.HTML {
	v.mu.Lock()
	defer v.mu.Unlock()

	parts := make([]template.HTML, 0, len(v.doc))
	for _, el := range v.doc {
		html, err := v.renderer.Render(el)
		if err != nil {
			v.logger.Error("failed to render element", "element_id", el.ID, "error", err)
			continue
		}
		parts = append(parts, html)
	}
	return parts
}

// Len returns the number of top-level elements on the page.
func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.doc)
}
