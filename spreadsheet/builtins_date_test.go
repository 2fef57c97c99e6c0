package spreadsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalExprWithClock(t *testing.T, expr string, clock Clock) CellValue {
	t.Helper()
	wb := NewWorkbook()
	sheetName, err := NewSheetName("Sheet1")
	require.NoError(t, err)
	wb, err = wb.AddSheet(sheetName)
	require.NoError(t, err)
	got, err := EvaluateFormula(wb, sheetName, expr, clock)
	require.NoError(t, err)
	return got
}

func TestBuiltinDATEConstructsCalendarDate(t *testing.T) {
	got := evalExpr(t, "DATE(2026,7,31)")
	want := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, KindDateTime, got.Kind)
	assert.True(t, got.DateTime.Equal(want))
}

func TestBuiltinTODAYandNOWUseInjectedClock(t *testing.T) {
	fixed := FixedClock{At: time.Date(2026, time.July, 31, 15, 4, 5, 0, time.UTC)}
	today := evalExprWithClock(t, "TODAY()", fixed)
	assert.True(t, today.DateTime.Equal(time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)))

	now := evalExprWithClock(t, "NOW()", fixed)
	assert.True(t, now.DateTime.Equal(fixed.At))
}

func TestBuiltinYearMonthDay(t *testing.T) {
	got := evalExpr(t, "YEAR(DATE(2026,7,31))")
	assert.True(t, got.Equal(NewNumberFromFloat(2026)))
	got = evalExpr(t, "MONTH(DATE(2026,7,31))")
	assert.True(t, got.Equal(NewNumberFromFloat(7)))
	got = evalExpr(t, "DAY(DATE(2026,7,31))")
	assert.True(t, got.Equal(NewNumberFromFloat(31)))
}

func TestBuiltinDATEDIF(t *testing.T) {
	assert.True(t, evalExpr(t, `DATEDIF(DATE(2020,1,1),DATE(2026,7,31),"Y")`).Equal(NewNumberFromFloat(6)))
	assert.True(t, evalExpr(t, `DATEDIF(DATE(2026,1,1),DATE(2026,7,31),"M")`).Equal(NewNumberFromFloat(6)))
	assert.True(t, evalExpr(t, `DATEDIF(DATE(2026,7,1),DATE(2026,7,31),"D")`).Equal(NewNumberFromFloat(30)))
}

func TestBuiltinDATEDIFRejectsUnsupportedUnitAndBackwardsRange(t *testing.T) {
	assert.Equal(t, ErrNum, evalExpr(t, `DATEDIF(DATE(2020,1,1),DATE(2021,1,1),"YM")`).Error)
	assert.Equal(t, ErrNum, evalExpr(t, `DATEDIF(DATE(2021,1,1),DATE(2020,1,1),"Y")`).Error)
}

func TestBuiltinEOMONTH(t *testing.T) {
	got := evalExpr(t, "EOMONTH(DATE(2026,2,10),0)")
	assert.True(t, got.DateTime.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)))

	got = evalExpr(t, "EOMONTH(DATE(2026,1,15),1)")
	assert.True(t, got.DateTime.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)))
}
