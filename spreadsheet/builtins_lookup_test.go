package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupTableCells() map[string]CellValue {
	return map[string]CellValue{
		"A1": NewNumberFromFloat(1), "B1": NewText("one"),
		"A2": NewNumberFromFloat(2), "B2": NewText("two"),
		"A3": NewNumberFromFloat(3), "B3": NewText("three"),
	}
}

func TestBuiltinVLOOKUPExactMatch(t *testing.T) {
	got := evalInSheet(t, lookupTableCells(), "VLOOKUP(2,A1:B3,2,FALSE)")
	assert.Equal(t, "two", got.ToPlainText())
}

func TestBuiltinVLOOKUPApproximateMatch(t *testing.T) {
	got := evalInSheet(t, lookupTableCells(), "VLOOKUP(2.5,A1:B3,2)")
	assert.Equal(t, "two", got.ToPlainText(), "approximate match falls back to the largest value <= lookup")
}

func TestBuiltinVLOOKUPNotFound(t *testing.T) {
	got := evalInSheet(t, lookupTableCells(), "VLOOKUP(99,A1:B3,2,FALSE)")
	assert.Equal(t, ErrNA, got.Error)
}

func TestBuiltinVLOOKUPBadColumnIndex(t *testing.T) {
	got := evalInSheet(t, lookupTableCells(), "VLOOKUP(1,A1:B3,5,FALSE)")
	assert.Equal(t, ErrRef, got.Error)
}

func TestBuiltinHLOOKUP(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewText("id"), "B1": NewText("name"), "C1": NewText("qty"),
		"A2": NewNumberFromFloat(1), "B2": NewText("widget"), "C2": NewNumberFromFloat(5),
	}
	got := evalInSheet(t, cells, `HLOOKUP("name",A1:C2,2,FALSE)`)
	assert.Equal(t, "widget", got.ToPlainText())
}

func TestBuiltinINDEX(t *testing.T) {
	cells := lookupTableCells()
	assert.Equal(t, "two", evalInSheet(t, cells, "INDEX(A1:B3,2,2)").ToPlainText())
	assert.True(t, evalInSheet(t, cells, "INDEX(A1:B3,3,1)").Equal(NewNumberFromFloat(3)))
	assert.Equal(t, ErrRef, evalInSheet(t, cells, "INDEX(A1:B3,9,1)").Error)
}

func TestBuiltinMATCH(t *testing.T) {
	cells := lookupTableCells()
	assert.True(t, evalInSheet(t, cells, "MATCH(2,A1:A3,0)").Equal(NewNumberFromFloat(2)))
	assert.True(t, evalInSheet(t, cells, "MATCH(2.5,A1:A3,1)").Equal(NewNumberFromFloat(2)), "match type 1 finds largest value <= lookup")
	assert.Equal(t, ErrNA, evalInSheet(t, cells, "MATCH(0,A1:A3,0)").Error)
}

func TestBuiltinMATCHDescendingLookup(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(3),
		"A2": NewNumberFromFloat(2),
		"A3": NewNumberFromFloat(1),
	}
	got := evalInSheet(t, cells, "MATCH(2.5,A1:A3,-1)")
	assert.True(t, got.Equal(NewNumberFromFloat(1)), "match type -1 finds smallest value >= lookup in a descending list")
}
