package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltinMathFunctions(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want CellValue
	}{
		{"ABS negative", "ABS(-5)", NewNumberFromFloat(5)},
		{"ROUND half away from zero", "ROUND(2.345, 2)", NewNumberFromFloat(2.35)},
		{"FLOOR to nearest significance", "FLOOR(7.5, 2)", NewNumberFromFloat(6)},
		{"CEILING to nearest significance", "CEILING(7.5, 2)", NewNumberFromFloat(8)},
		{"SQRT", "SQRT(16)", NewNumberFromFloat(4)},
		{"POWER", "POWER(2,10)", NewNumberFromFloat(1024)},
		{"MOD positive", "MOD(7,3)", NewNumberFromFloat(1)},
		{"MOD sign follows divisor", "MOD(-7,3)", NewNumberFromFloat(2)},
		{"LN of e", "LN(EXP(1))", NewNumberFromFloat(1)},
		{"LOG base 10 default", "LOG(100)", NewNumberFromFloat(2)},
		{"LOG explicit base", "LOG(8,2)", NewNumberFromFloat(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalExpr(t, tt.expr)
			a := assert.New(t)
			a.True(tt.want.Equal(roundForCompare(got)), "expr %q: want %v got %v", tt.expr, tt.want, got)
		})
	}
}

// roundForCompare rounds a float-derived number result to 9 places so
// math.Pow/math.Log's float64 noise does not break exact decimal equality.
func roundForCompare(v CellValue) CellValue {
	if v.Kind != KindNumber {
		return v
	}
	return NewNumber(v.Number.Round(9))
}

func TestBuiltinMathErrorPaths(t *testing.T) {
	assert.Equal(t, ErrNum, evalExpr(t, "SQRT(-1)").Error)
	assert.Equal(t, ErrDiv0, evalExpr(t, "MOD(1,0)").Error)
	assert.Equal(t, ErrDiv0, evalExpr(t, "FLOOR(1,0)").Error)
	assert.Equal(t, ErrNum, evalExpr(t, "LN(0)").Error)
	assert.Equal(t, ErrNum, evalExpr(t, "LN(-1)").Error)
	assert.Equal(t, ErrValue, evalExpr(t, `ABS("x")`).Error)
}

func TestBuiltinLogicalFunctions(t *testing.T) {
	assert.Equal(t, "yes", evalExpr(t, `IF(TRUE, "yes", "no")`).ToPlainText())
	assert.Equal(t, "no", evalExpr(t, `IF(FALSE, "yes", "no")`).ToPlainText())
	assert.False(t, evalExpr(t, `IF(FALSE, "yes")`).Bool)
	assert.True(t, evalExpr(t, "AND(TRUE, TRUE, 1)").Bool)
	assert.False(t, evalExpr(t, "AND(TRUE, FALSE)").Bool)
	assert.True(t, evalExpr(t, "OR(FALSE, FALSE, 1)").Bool)
	assert.True(t, evalExpr(t, "NOT(FALSE)").Bool)
	assert.True(t, evalExpr(t, `ISBLANK(IF(FALSE,1))`).Bool == false, "IF with no false-branch returns FALSE, not blank")
	assert.True(t, evalExpr(t, "ISERROR(1/0)").Bool)
	assert.False(t, evalExpr(t, "ISERROR(1)").Bool)
	assert.Equal(t, "fallback", evalExpr(t, `IFERROR(1/0, "fallback")`).ToPlainText())
	assert.True(t, evalExpr(t, "IFERROR(5, -1)").Equal(NewNumberFromFloat(5)))
}
