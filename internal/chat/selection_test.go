// ABOUTME: Tests for the per-category selection store.
// ABOUTME: Covers set/replace, clear, clear-all and snapshot isolation.

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionHoldsOneIDPerCategory(t *testing.T) {
	s := NewSelection()
	assert.True(t, s.Empty())

	require.NoError(t, s.Set(CategoryHospital, "h-1"))
	require.NoError(t, s.Set(CategoryHospital, "h-2"))
	require.NoError(t, s.Set(CategoryLab, "l-1"))

	id, ok := s.Get(CategoryHospital)
	assert.True(t, ok)
	assert.Equal(t, "h-2", id)

	_, ok = s.Get(CategoryMedicine)
	assert.False(t, ok)

	assert.Equal(t, map[Category]string{CategoryHospital: "h-2", CategoryLab: "l-1"}, s.Snapshot())
}

func TestSelectionRejectsUnknownCategoryAndEmptyID(t *testing.T) {
	s := NewSelection()
	assert.Error(t, s.Set(Category("pharmacy"), "x"))
	assert.Error(t, s.Set(CategoryHospital, ""))
	assert.True(t, s.Empty())
}

func TestSelectionClear(t *testing.T) {
	s := NewSelection()
	for _, c := range Categories {
		require.NoError(t, s.Set(c, string(c)+"-id"))
	}

	s.Clear(CategoryLab)
	_, ok := s.Get(CategoryLab)
	assert.False(t, ok)
	assert.Len(t, s.Snapshot(), len(Categories)-1)

	s.ClearAll()
	assert.True(t, s.Empty())
}

func TestSelectionSnapshotIsACopy(t *testing.T) {
	s := NewSelection()
	require.NoError(t, s.Set(CategoryVisitType, "home"))

	snap := s.Snapshot()
	snap[CategoryVisitType] = "lab"

	id, _ := s.Get(CategoryVisitType)
	assert.Equal(t, "home", id)
}
