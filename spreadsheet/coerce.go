package spreadsheet

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// coerceNumber converts a CellValue to a decimal: booleans become 0/1,
// numeric text parses, empty is zero, a date-time becomes its Excel
// serial, everything else fails.
func coerceNumber(v CellValue) (decimal.Decimal, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindBool:
		if v.Bool {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case KindEmpty:
		return decimal.Zero, true
	case KindDateTime:
		return DateTimeToSerial(v.DateTime), true
	case KindText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Text))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// coerceText renders a CellValue to text: numbers use shortest
// round-trip formatting, booleans render as TRUE/FALSE.
func coerceText(v CellValue) string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		f, _ := v.Number.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindEmpty:
		return ""
	default:
		return v.ToPlainText()
	}
}

// coerceBool converts a CellValue to a boolean.
func coerceBool(v CellValue) (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindNumber:
		return !v.Number.IsZero(), true
	case KindEmpty:
		return false, true
	case KindText:
		switch strings.ToUpper(v.Text) {
		case "TRUE":
			return true, true
		case "FALSE":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// comparePrimitives implements Excel's cross-type ordering: numbers <
// text < booleans. Returns ok=false when the two values cannot be
// compared (e.g. an Error operand).
func comparePrimitives(left, right CellValue) (int, bool) {
	if left.IsError() || right.IsError() {
		return 0, false
	}
	leftRank, leftOk := compareRank(left)
	rightRank, rightOk := compareRank(right)
	if !leftOk || !rightOk {
		return 0, false
	}
	if leftRank != rightRank {
		if leftRank < rightRank {
			return -1, true
		}
		return 1, true
	}
	switch leftRank {
	case 0:
		return 0, true
	case 1:
		ln, _ := coerceNumber(left)
		rn, _ := coerceNumber(right)
		return ln.Cmp(rn), true
	}
	switch left.Kind {
	case KindText:
		return strings.Compare(strings.ToUpper(left.Text), strings.ToUpper(right.Text)), true
	case KindBool:
		if left.Bool == right.Bool {
			return 0, true
		}
		if !left.Bool {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func compareRank(v CellValue) (int, bool) {
	switch v.Kind {
	case KindEmpty:
		return 0, true
	case KindNumber, KindDateTime:
		return 1, true
	case KindText:
		return 2, true
	case KindBool:
		return 3, true
	default:
		return 0, false
	}
}
