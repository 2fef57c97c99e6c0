package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalInSheet(t *testing.T, cells map[string]CellValue, expr string) CellValue {
	t.Helper()
	wb, sheetName := buildWorkbookWithSheet(t, "Sheet1", cells)
	got, err := EvaluateFormula(wb, sheetName, expr, FixedClock{})
	require.NoError(t, err)
	return got
}

func TestBuiltinAggregateFunctions(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(1),
		"A2": NewNumberFromFloat(2),
		"A3": NewNumberFromFloat(3),
		"A4": NewText("not a number"),
	}
	assert.True(t, evalInSheet(t, cells, "SUM(A1:A4)").Equal(NewNumberFromFloat(6)))
	assert.True(t, evalInSheet(t, cells, "AVERAGE(A1:A3)").Equal(NewNumberFromFloat(2)))
	assert.True(t, evalInSheet(t, cells, "MIN(A1:A3)").Equal(NewNumberFromFloat(1)))
	assert.True(t, evalInSheet(t, cells, "MAX(A1:A3)").Equal(NewNumberFromFloat(3)))
	assert.True(t, evalInSheet(t, cells, "COUNT(A1:A4)").Equal(NewNumberFromFloat(3)), "COUNT ignores non-numeric text")
	assert.True(t, evalInSheet(t, cells, "COUNTA(A1:A4)").Equal(NewNumberFromFloat(4)), "COUNTA counts any non-empty cell")
}

func TestBuiltinAverageOfEmptyRangeIsDivByZero(t *testing.T) {
	got := evalInSheet(t, nil, "AVERAGE(A1:A3)")
	assert.Equal(t, ErrDiv0, got.Error)
}

func TestBuiltinSumIfAndCountIf(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(10),
		"A2": NewNumberFromFloat(20),
		"A3": NewNumberFromFloat(30),
		"B1": NewNumberFromFloat(1),
		"B2": NewNumberFromFloat(2),
		"B3": NewNumberFromFloat(3),
	}
	assert.True(t, evalInSheet(t, cells, `SUMIF(A1:A3,">15")`).Equal(NewNumberFromFloat(50)))
	assert.True(t, evalInSheet(t, cells, `SUMIF(A1:A3,">15",B1:B3)`).Equal(NewNumberFromFloat(5)), "sum range offsets from the criteria range")
	assert.True(t, evalInSheet(t, cells, `COUNTIF(A1:A3,">=20")`).Equal(NewNumberFromFloat(2)))
	assert.True(t, evalInSheet(t, cells, `COUNTIF(A1:A3,10)`).Equal(NewNumberFromFloat(1)))
}

func TestBuiltinCountIfTextCriteria(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewText("apple"),
		"A2": NewText("Apple"),
		"A3": NewText("banana"),
	}
	assert.True(t, evalInSheet(t, cells, `COUNTIF(A1:A3,"apple")`).Equal(NewNumberFromFloat(2)), "text criteria matches case-insensitively")
}

func TestBuiltinAggregatePropagatesError(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(1),
		"A2": NewError(ErrRef),
	}
	assert.Equal(t, ErrRef, evalInSheet(t, cells, "SUM(A1:A2)").Error)
}
