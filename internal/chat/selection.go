// ABOUTME: Per-category selection state for selection-bearing cards.
// ABOUTME: Holds at most one selected id per category; no view side effects.

package chat

import (
	"fmt"
	"sync"
)

// Category is a fixed selection category.
type Category string

const (
	CategoryHospital  Category = "hospital"
	CategoryMedicine  Category = "medicine"
	CategoryLab       Category = "lab"
	CategoryVisitType Category = "visit_type"
)

// Categories lists every selection category.
var Categories = []Category{CategoryHospital, CategoryMedicine, CategoryLab, CategoryVisitType}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Selection maps each category to at most one selected id.
type Selection struct {
	mu       sync.RWMutex
	selected map[Category]string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{selected: make(map[Category]string)}
}

// Get returns the selected id for c.
func (s *Selection) Get(c Category) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.selected[c]
	return id, ok
}

// Set replaces the selection for c with id.
func (s *Selection) Set(c Category, id string) error {
	if !c.Valid() {
		return fmt.Errorf("unknown selection category %q", c)
	}
	if id == "" {
		return fmt.Errorf("empty id for category %q", c)
	}
	s.mu.Lock()
	s.selected[c] = id
	s.mu.Unlock()
	return nil
}

// Clear removes the selection for c.
func (s *Selection) Clear(c Category) {
	s.mu.Lock()
	delete(s.selected, c)
	s.mu.Unlock()
}

// ClearAll removes every selection.
func (s *Selection) ClearAll() {
	s.mu.Lock()
	clear(s.selected)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current selections.
func (s *Selection) Snapshot() map[Category]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Category]string, len(s.selected))
	for c, id := range s.selected {
		out[c] = id
	}
	return out
}

// Empty reports whether no category has a selection.
func (s *Selection) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected) == 0
}
