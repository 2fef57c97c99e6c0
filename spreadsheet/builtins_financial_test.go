package spreadsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func financialNumber(t *testing.T, v CellValue) float64 {
	t.Helper()
	f, _ := v.Number.Float64()
	return f
}

func mustDate(t *testing.T, y int, m time.Month, d int) time.Time {
	t.Helper()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuiltinPMTZeroRate(t *testing.T) {
	got := evalExpr(t, "PMT(0,10,-1000)")
	assert.True(t, got.Equal(NewNumberFromFloat(100)))
}

func TestBuiltinPMTKnownAnalyticCase(t *testing.T) {
	// Borrowing 100 for a single period at 10% must repay exactly 110.
	got := evalExpr(t, "PMT(0.1,1,-100)")
	assert.InDelta(t, 110.0, financialNumber(t, got), 1e-9)
}

func TestBuiltinFVAndPVZeroRate(t *testing.T) {
	assert.True(t, evalExpr(t, "FV(0,10,-100)").Equal(NewNumberFromFloat(1000)))
	assert.True(t, evalExpr(t, "PV(0,10,-100)").Equal(NewNumberFromFloat(1000)))
}

func TestBuiltinNPERZeroRate(t *testing.T) {
	got := evalExpr(t, "NPER(0,-100,1000)")
	assert.True(t, got.Equal(NewNumberFromFloat(10)))
}

func TestBuiltinIRRConvergesWithinIterationCap(t *testing.T) {
	// Invest 100, receive 110 back one period later: IRR is exactly 10%.
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(-100),
		"A2": NewNumberFromFloat(110),
	}
	got := evalInSheet(t, cells, "IRR(A1:A2)")
	assert.InDelta(t, 0.1, financialNumber(t, got), 1e-6)
}

func TestBuiltinNPVDiscountsOnePeriod(t *testing.T) {
	cells := map[string]CellValue{"B1": NewNumberFromFloat(110)}
	got := evalInSheet(t, cells, "NPV(0.1,B1:B1)")
	assert.InDelta(t, 100.0, financialNumber(t, got), 1e-9)
}

func TestBuiltinRATEConvergesToKnownSolution(t *testing.T) {
	// A single-period loan of 100 repaid at 110 implies a 10% rate.
	got := evalExpr(t, "RATE(1,0,-100,110)")
	assert.InDelta(t, 0.1, financialNumber(t, got), 1e-6)
}

func TestBuiltinXIRRConvergesForTwoFlows(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(-1000),
		"A2": NewNumberFromFloat(1100),
		"B1": NewDateTime(mustDate(t, 2025, 1, 1)),
		"B2": NewDateTime(mustDate(t, 2026, 1, 1)),
	}
	got := evalInSheet(t, cells, "XIRR(A1:A2,B1:B2)")
	assert.InDelta(t, 0.1, financialNumber(t, got), 1e-4)
}

func TestBuiltinFinancialErrorPaths(t *testing.T) {
	assert.Equal(t, ErrDiv0, evalExpr(t, "NPER(0,0,1000)").Error)
}

func TestBuiltinIRRNonConvergenceFailsAsGoError(t *testing.T) {
	// Two negative flows and no sign change: no rate makes npv(rate)=0,
	// so the Newton solver never converges.
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(-100),
		"A2": NewNumberFromFloat(-50),
	}
	wb, sheetName := buildWorkbookWithSheet(t, "Sheet1", cells)
	_, err := EvaluateFormula(wb, sheetName, "IRR(A1:A2, 0.1)", FixedClock{})
	require.Error(t, err)
	var failed *EvalFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "IRR", failed.Context)
}

func TestBuiltinXIRRNonConvergenceFailsAsGoError(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(-100),
		"A2": NewNumberFromFloat(-50),
		"B1": NewDateTime(mustDate(t, 2025, 1, 1)),
		"B2": NewDateTime(mustDate(t, 2026, 1, 1)),
	}
	wb, sheetName := buildWorkbookWithSheet(t, "Sheet1", cells)
	_, err := EvaluateFormula(wb, sheetName, "XIRR(A1:A2,B1:B2,0.1)", FixedClock{})
	require.Error(t, err)
	var failed *EvalFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "XIRR", failed.Context)
}

func TestBuiltinIFERRORDoesNotAbsorbEvalFailed(t *testing.T) {
	cells := map[string]CellValue{
		"A1": NewNumberFromFloat(-100),
		"A2": NewNumberFromFloat(-50),
	}
	wb, sheetName := buildWorkbookWithSheet(t, "Sheet1", cells)
	_, err := EvaluateFormula(wb, sheetName, `IFERROR(IRR(A1:A2, 0.1), -1)`, FixedClock{})
	require.Error(t, err)
	var failed *EvalFailedError
	require.ErrorAs(t, err, &failed)
}
