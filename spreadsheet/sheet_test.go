package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetPutGetRemoveIsValueSemantics(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, err := NewSheetName("Sheet1")
	require.NoError(t, err)
	s0 := NewSheet(sheetName, styles)

	ref := mustRef(t, "A1")
	s1 := s0.Put(ref, NewNumberFromFloat(42))

	assert.True(t, s0.Get(ref).Value.IsEmpty(), "original sheet is unaffected by Put")
	assert.True(t, s1.Get(ref).Value.Equal(NewNumberFromFloat(42)))

	s2 := s1.Remove(ref)
	assert.True(t, s2.Get(ref).Value.IsEmpty())
	assert.True(t, s1.Get(ref).Value.Equal(NewNumberFromFloat(42)), "removing from s2 does not affect s1")
}

func TestSheetPutEmptyRemovesCell(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)
	ref := mustRef(t, "B2")
	s = s.Put(ref, NewNumberFromFloat(1))
	s = s.Put(ref, Empty)
	assert.True(t, s.Get(ref).Value.IsEmpty())
	assert.NotContains(t, s.AllCells(), ref)
}

func TestSheetPutStyledPreservesStyleID(t *testing.T) {
	styles := NewStyleRegistry()
	id := styles.Intern(CellStyle{Font: Font{Name: "Arial", Size: 10}})
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)
	ref := mustRef(t, "A1")
	s = s.PutStyled(ref, NewNumberFromFloat(1), id)
	cell := s.Get(ref)
	require.NotNil(t, cell.StyleId)
	assert.Equal(t, id, *cell.StyleId)
}

func TestSheetMergeRejectsOverlap(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)
	rng1, _ := ParseCellRange("A1:B2")
	rng2, _ := ParseCellRange("B2:C3")

	s2, err := s.Merge(rng1)
	require.NoError(t, err)

	_, err = s2.Merge(rng2)
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, ErrMergeOverlap, structErr.Kind)
}

func TestSheetUsedRangeReflectsCellsAndProperties(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)

	_, ok := s.UsedRange()
	assert.False(t, ok, "an empty sheet has no used range")

	s = s.Put(mustRef(t, "C3"), NewNumberFromFloat(1))
	used, ok := s.UsedRange()
	require.True(t, ok)
	assert.Equal(t, "C3", used.ToA1())

	s = s.SetRowProperties(Row(9), RowProperties{Height: 20})
	used, ok = s.UsedRange()
	require.True(t, ok)
	assert.Equal(t, Row(9), used.End.Row, "explicit row properties extend the used range")
}

func TestSheetFormulaCellsColumnMajorOrder(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)
	s = s.Put(mustRef(t, "B1"), NewFormula("1", nil))
	s = s.Put(mustRef(t, "A2"), NewFormula("2", nil))
	s = s.Put(mustRef(t, "A1"), NewNumberFromFloat(5))

	formulas := s.FormulaCells()
	require.Len(t, formulas, 2)
	assert.Equal(t, "A2", formulas[0].ToA1())
	assert.Equal(t, "B1", formulas[1].ToA1())
}

func TestSheetCommentsAndTablesEnumeration(t *testing.T) {
	styles := NewStyleRegistry()
	sheetName, _ := NewSheetName("Sheet1")
	s := NewSheet(sheetName, styles)
	ref := mustRef(t, "A1")
	s = s.Comment(ref, Comment{Author: "a", Text: "note"})

	comments := s.Comments()
	require.Contains(t, comments, ref)
	assert.Equal(t, "note", comments[ref].Text)

	rng, _ := ParseCellRange("A1:B2")
	s = s.AddTable(TableSpec{Name: "t1", Range: rng, Headers: []string{"a", "b"}})
	tables := s.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "t1", tables[0].Name)
}
