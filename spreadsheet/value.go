package spreadsheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind tags the active variant of a CellValue, extended for rich
// text and error codes spec.md §3 requires.
type ValueKind uint8

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindBool
	KindText
	KindRichText
	KindDateTime
	KindError
	KindFormula
)

// TextRun is one run of a RichText value: a span of text with an optional
// font name and optional raw run-properties XML preserved from the source
// file.
type TextRun struct {
	Text      string
	Font      string
	RawRPRXML string
}

// CellError is one of the canonical Excel spreadsheet error codes, plus
// the two internal-only extensions spec.md §3 names (Circular,
// GettingData are standard; CalcSpill and Circular's #CIRC! form are
// noted as non-standard in spec.md §9).
type CellError uint8

const (
	ErrDiv0 CellError = iota
	ErrName
	ErrNum
	ErrRef
	ErrValue
	ErrNull
	ErrNA
	ErrCircular
	ErrGettingData
	ErrCalcSpill
)

var cellErrorToExcel = map[CellError]string{
	ErrDiv0:        "#DIV/0!",
	ErrName:        "#NAME?",
	ErrNum:         "#NUM!",
	ErrRef:         "#REF!",
	ErrValue:       "#VALUE!",
	ErrNull:        "#NULL!",
	ErrNA:          "#N/A",
	ErrCircular:    "#CIRC!",
	ErrGettingData: "#GETTING_DATA",
	ErrCalcSpill:   "#CALC!",
}

var excelToCellError = func() map[string]CellError {
	m := make(map[string]CellError, len(cellErrorToExcel))
	for k, v := range cellErrorToExcel {
		m[v] = k
	}
	return m
}()

// ToExcel returns the canonical Excel string for the error code.
func (e CellError) ToExcel() string {
	if s, ok := cellErrorToExcel[e]; ok {
		return s
	}
	return "#ERROR!"
}

// ParseCellError maps a canonical Excel error string back to a CellError,
// failing with InvalidError if the string is not recognized.
func ParseCellError(s string) (CellError, error) {
	if e, ok := excelToCellError[s]; ok {
		return e, nil
	}
	return 0, fmt.Errorf("InvalidError: %q is not a recognized spreadsheet error code", s)
}

// CellValue is the sum type spec.md §3 defines: exactly one variant is
// meaningful per the Kind tag.
type CellValue struct {
	Kind ValueKind

	Number   decimal.Decimal
	Bool     bool
	Text     string
	RichText []TextRun
	DateTime time.Time
	Error    CellError

	// Formula-kind fields: the raw expression (no leading '=') and the
	// advisory last-known evaluated value.
	Expression string
	Cached     *CellValue
}

// Empty is the canonical empty CellValue.
var Empty = CellValue{Kind: KindEmpty}

// NewNumber builds a Number CellValue.
func NewNumber(d decimal.Decimal) CellValue { return CellValue{Kind: KindNumber, Number: d} }

// NewNumberFromFloat builds a Number CellValue from a float64, the common
// case for literals and arithmetic results that started as a float.
func NewNumberFromFloat(f float64) CellValue {
	return CellValue{Kind: KindNumber, Number: decimal.NewFromFloat(f)}
}

// NewBool builds a Bool CellValue.
func NewBool(b bool) CellValue { return CellValue{Kind: KindBool, Bool: b} }

// NewText builds a plain Text CellValue.
func NewText(s string) CellValue { return CellValue{Kind: KindText, Text: s} }

// NewRichText builds a RichText CellValue.
func NewRichText(runs []TextRun) CellValue { return CellValue{Kind: KindRichText, RichText: runs} }

// NewDateTime builds a DateTime CellValue.
func NewDateTime(t time.Time) CellValue { return CellValue{Kind: KindDateTime, DateTime: t} }

// NewError builds an Error CellValue.
func NewError(e CellError) CellValue { return CellValue{Kind: KindError, Error: e} }

// NewFormula builds a Formula CellValue. expression carries no leading '='.
func NewFormula(expression string, cached *CellValue) CellValue {
	return CellValue{Kind: KindFormula, Expression: expression, Cached: cached}
}

// IsEmpty reports whether the value is the Empty variant.
func (v CellValue) IsEmpty() bool { return v.Kind == KindEmpty }

// IsError reports whether the value is an Error variant.
func (v CellValue) IsError() bool { return v.Kind == KindError }

// ToPlainText concatenates RichText runs in order with no separator, or
// returns the Text field, or the Excel string form of any other variant.
func (v CellValue) ToPlainText() string {
	switch v.Kind {
	case KindRichText:
		var b strings.Builder
		for _, r := range v.RichText {
			b.WriteString(r.Text)
		}
		return b.String()
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number.String()
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return v.Error.ToExcel()
	case KindDateTime:
		return v.DateTime.Format("2006-01-02T15:04:05")
	default:
		return ""
	}
}

// Equal reports value equality across variants, used by the evaluator's
// comparison operators and by tests.
func (v CellValue) Equal(other CellValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number.Equal(other.Number)
	case KindBool:
		return v.Bool == other.Bool
	case KindText:
		return v.Text == other.Text
	case KindDateTime:
		return v.DateTime.Equal(other.DateTime)
	case KindError:
		return v.Error == other.Error
	case KindEmpty:
		return true
	default:
		return v.ToPlainText() == other.ToPlainText()
	}
}

// --- Excel serial date/time codec -----------------------------------------
//
// Excel's 1900 date system has a historical bug: it treats 1900 as a leap
// year, so serial 60 is the non-existent Feb 29 1900. Counting days from
// the Dec 30 1899 epoch, dates on or after March 1 1900 have serial =
// days since epoch (March 1 1900 is 61); dates strictly before March 1
// 1900 are one less (Jan 1 1900 is 1), matching real Excel behavior
// (spec.md §4.2).

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
var excelLeapBugCutover = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)

// DateTimeToSerial encodes a civil date-time to its Excel serial number.
func DateTimeToSerial(t time.Time) decimal.Decimal {
	t = t.UTC()
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int64(dayStart.Sub(excelEpoch).Hours() / 24)
	if dayStart.Before(excelLeapBugCutover) {
		days--
	}
	fraction := float64(t.Sub(dayStart)) / float64(24*time.Hour)
	return decimal.NewFromInt(days).Add(decimal.NewFromFloat(fraction))
}

// SerialToDateTime decodes an Excel serial number back to a civil
// date-time.
func SerialToDateTime(serial decimal.Decimal) time.Time {
	daysDec := serial.Truncate(0)
	days := daysDec.IntPart()
	fraction, _ := serial.Sub(daysDec).Float64()

	// Un-shift the 1900 leap-year bug compensation: serials >= 61 map to
	// dates on/after March 1 1900 without adjustment; serials < 61 (i.e.
	// Jan 1 1900 .. Feb 28 1900, plus the phantom Feb 29) were shifted
	// back by one day during encoding.
	if days < 61 {
		days++
	}
	base := excelEpoch.AddDate(0, 0, int(days))
	return base.Add(time.Duration(fraction * float64(24*time.Hour)))
}

// EscapeFormulaInjection prefixes text beginning with =, +, -, or @ with a
// leading apostrophe, per spec.md §4.2's optional writer configuration.
func EscapeFormulaInjection(text string) string {
	if text == "" {
		return text
	}
	switch text[0] {
	case '=', '+', '-', '@':
		return "'" + text
	default:
		return text
	}
}
