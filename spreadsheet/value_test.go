package spreadsheet

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellErrorExcelRoundTrip(t *testing.T) {
	codes := []CellError{ErrDiv0, ErrName, ErrNum, ErrRef, ErrValue, ErrNull, ErrNA, ErrGettingData, ErrCalcSpill}
	for _, c := range codes {
		excel := c.ToExcel()
		back, err := ParseCellError(excel)
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestCellErrorCircularIsInternalOnly(t *testing.T) {
	// #CIRC! is not a standard Excel error code; it exists only so the
	// evaluator can tag a cell before the caller decides how to surface it.
	assert.Equal(t, "#CIRC!", ErrCircular.ToExcel())
}

func TestParseCellErrorRejectsUnknown(t *testing.T) {
	_, err := ParseCellError("#NOTREAL!")
	assert.Error(t, err)
}

func TestCellValueEqual(t *testing.T) {
	assert.True(t, NewNumberFromFloat(1.5).Equal(NewNumber(decimal.NewFromFloat(1.5))))
	assert.False(t, NewNumberFromFloat(1.5).Equal(NewNumberFromFloat(2)))
	assert.True(t, NewText("a").Equal(NewText("a")))
	assert.False(t, NewText("a").Equal(NewText("b")))
	assert.True(t, Empty.Equal(CellValue{Kind: KindEmpty}))
	assert.False(t, NewBool(true).Equal(NewNumberFromFloat(1)))
}

func TestCellValueToPlainText(t *testing.T) {
	assert.Equal(t, "TRUE", NewBool(true).ToPlainText())
	assert.Equal(t, "FALSE", NewBool(false).ToPlainText())
	assert.Equal(t, "#DIV/0!", NewError(ErrDiv0).ToPlainText())
	assert.Equal(t, "hi", NewText("hi").ToPlainText())
	rich := NewRichText([]TextRun{{Text: "a"}, {Text: "b"}})
	assert.Equal(t, "ab", rich.ToPlainText())
}

func TestExcelSerialDateRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 31, 12, 30, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, want := range cases {
		serial := DateTimeToSerial(want)
		got := SerialToDateTime(serial)
		assert.True(t, got.Equal(want), "round trip mismatch: want %v got %v (serial %s)", want, got, serial)
	}
}

func TestExcelSerialDateLeapBugKnownValues(t *testing.T) {
	// Jan 1 1900 is serial 1; the phantom Feb 29 1900 is serial 60; Mar 1
	// 1900 is serial 61 -- the classic Lotus 1-2-3 compatibility bug Excel
	// still honors.
	jan1 := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	mar1 := time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, DateTimeToSerial(jan1).Equal(decimal.NewFromInt(1)))
	assert.True(t, DateTimeToSerial(mar1).Equal(decimal.NewFromInt(61)))
}

func TestEscapeFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", EscapeFormulaInjection("=SUM(A1)"))
	assert.Equal(t, "'+1", EscapeFormulaInjection("+1"))
	assert.Equal(t, "'-1", EscapeFormulaInjection("-1"))
	assert.Equal(t, "'@cmd", EscapeFormulaInjection("@cmd"))
	assert.Equal(t, "plain", EscapeFormulaInjection("plain"))
	assert.Equal(t, "", EscapeFormulaInjection(""))
}
