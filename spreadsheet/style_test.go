package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleRegistryInternDeduplicates(t *testing.T) {
	r := NewStyleRegistry()
	s := CellStyle{Font: Font{Name: "Arial", Size: 10}}
	id1 := r.Intern(s)
	id2 := r.Intern(s)
	assert.Equal(t, id1, id2, "identical styles intern to the same id")

	other := CellStyle{Font: Font{Name: "Arial", Size: 12}}
	id3 := r.Intern(other)
	assert.NotEqual(t, id1, id3)
}

func TestStyleRegistryGetAndContains(t *testing.T) {
	r := NewStyleRegistry()
	s := CellStyle{Font: Font{Name: "Courier"}}
	id := r.Intern(s)

	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, s, got)
	assert.True(t, r.Contains(id))
	assert.False(t, r.Contains(StyleId(9999)))
}

func TestStyleRegistryReindexDropsUnusedAndCompactsIDs(t *testing.T) {
	r := NewStyleRegistry()
	idA := r.Intern(CellStyle{Font: Font{Name: "A"}})
	_ = r.Intern(CellStyle{Font: Font{Name: "B"}})
	idC := r.Intern(CellStyle{Font: Font{Name: "C"}})

	used := map[StyleId]struct{}{idA: {}, idC: {}}
	reindexed, remap := r.Reindex(used)

	assert.Len(t, reindexed.All(), 2, "unused style B is dropped")
	assert.Len(t, remap, 2)

	newIDForA := remap[idA]
	style, ok := reindexed.Get(newIDForA)
	require.True(t, ok)
	assert.Equal(t, "A", style.Font.Name)
}

func TestStyleRegistryCloneIsIndependent(t *testing.T) {
	r := NewStyleRegistry()
	id := r.Intern(CellStyle{Font: Font{Name: "Arial"}})
	clone := r.Clone()

	newID := clone.Intern(CellStyle{Font: Font{Name: "New"}})
	assert.False(t, r.Contains(newID), "mutating the clone does not affect the original")
	assert.True(t, clone.Contains(id), "the clone retains pre-existing entries")
}

func TestStyleRegistryAllReturnsSnapshot(t *testing.T) {
	r := NewStyleRegistry()
	id := r.Intern(CellStyle{Font: Font{Name: "Arial"}})
	all := r.All()
	require.Len(t, all, 1)
	delete(all, id)
	assert.True(t, r.Contains(id), "mutating the returned map does not affect the registry")
}
