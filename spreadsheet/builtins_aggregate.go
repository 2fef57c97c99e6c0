package spreadsheet

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// registerAggregateFunctions registers the range-aggregation family
// spec.md §4.5 names. SUM/AVERAGE/MIN/MAX/COUNT/COUNTA flatten their
// arguments through allCells; SUMIF/COUNTIF expand their range arguments
// with CallArgs.Cells.
func registerAggregateFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "SUM", Arity: RangeArity(1, -1), Eval: fnSUM})
	r.Register(&FunctionSpec{Name: "AVERAGE", Arity: RangeArity(1, -1), Eval: fnAVERAGE})
	r.Register(&FunctionSpec{Name: "MIN", Arity: RangeArity(1, -1), Eval: fnMIN})
	r.Register(&FunctionSpec{Name: "MAX", Arity: RangeArity(1, -1), Eval: fnMAX})
	r.Register(&FunctionSpec{Name: "COUNT", Arity: RangeArity(1, -1), Eval: fnCOUNT})
	r.Register(&FunctionSpec{Name: "COUNTA", Arity: RangeArity(1, -1), Eval: fnCOUNTA})
	r.Register(&FunctionSpec{Name: "SUMIF", Arity: RangeArity(2, 3), Eval: fnSUMIF})
	r.Register(&FunctionSpec{Name: "COUNTIF", Arity: RangeArity(2, 2), Eval: fnCOUNTIF})
}

// allCells flattens every argument position's expanded cells into one
// slice, so SUM(A1, B2:B4, 5) and similar mixed ref/literal calls work.
// Reference arguments expand through CallArgs.Cells, any other argument is
// evaluated as a scalar, and empty values are dropped.
func allCells(args *CallArgs) ([]CellValue, error) {
	var out []CellValue
	for i := 0; i < args.Len(); i++ {
		var vs []CellValue
		var err error
		switch args.Raw[i].(type) {
		case *RefNode, *SheetRefNode, *RangeRefNode, *SheetRangeNode:
			vs, err = args.Cells(i)
		default:
			var v CellValue
			v, err = args.Value(i)
			vs = []CellValue{v}
		}
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			if !v.IsEmpty() {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func fnSUM(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	sum := decimal.Zero
	for _, v := range cells {
		if v.IsError() {
			return v, nil
		}
		if n, ok := coerceNumber(v); ok {
			sum = sum.Add(n)
		}
	}
	return NewNumber(sum), nil
}

func fnAVERAGE(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	sum := decimal.Zero
	count := 0
	for _, v := range cells {
		if v.IsError() {
			return v, nil
		}
		if n, ok := coerceNumber(v); ok {
			sum = sum.Add(n)
			count++
		}
	}
	if count == 0 {
		return NewError(ErrDiv0), nil
	}
	return NewNumber(sum.Div(decimal.NewFromInt(int64(count)))), nil
}

func fnMIN(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	var min decimal.Decimal
	seen := false
	for _, v := range cells {
		if v.IsError() {
			return v, nil
		}
		n, ok := coerceNumber(v)
		if !ok {
			continue
		}
		if !seen || n.LessThan(min) {
			min = n
			seen = true
		}
	}
	return NewNumber(min), nil
}

func fnMAX(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	var max decimal.Decimal
	seen := false
	for _, v := range cells {
		if v.IsError() {
			return v, nil
		}
		n, ok := coerceNumber(v)
		if !ok {
			continue
		}
		if !seen || n.GreaterThan(max) {
			max = n
			seen = true
		}
	}
	return NewNumber(max), nil
}

func fnCOUNT(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	count := 0
	for _, v := range cells {
		if _, ok := coerceNumber(v); ok {
			count++
		}
	}
	return NewNumberFromFloat(float64(count)), nil
}

func fnCOUNTA(args *CallArgs) (CellValue, error) {
	cells, err := allCells(args)
	if err != nil {
		return CellValue{}, err
	}
	count := 0
	for _, v := range cells {
		if !v.IsEmpty() {
			count++
		}
	}
	return NewNumberFromFloat(float64(count)), nil
}

// matchesCriteria evaluates the SUMIF/COUNTIF criteria grammar: a bare
// value tests for equality, a leading comparison operator (">","<",">=",
// "<=","<>","=") tests numerically against the remainder.
func matchesCriteria(v CellValue, criteria CellValue) bool {
	critText := strings.TrimSpace(coerceText(criteria))
	for _, op := range []string{">=", "<=", "<>", ">", "<", "="} {
		if strings.HasPrefix(critText, op) {
			rhs := strings.TrimSpace(strings.TrimPrefix(critText, op))
			rhsNum, err := strconv.ParseFloat(rhs, 64)
			if err != nil {
				continue
			}
			n, ok := coerceNumber(v)
			if !ok {
				return false
			}
			f, _ := n.Float64()
			switch op {
			case ">=":
				return f >= rhsNum
			case "<=":
				return f <= rhsNum
			case "<>":
				return f != rhsNum
			case ">":
				return f > rhsNum
			case "<":
				return f < rhsNum
			case "=":
				return f == rhsNum
			}
		}
	}
	if n, ok := coerceNumber(criteria); ok {
		if vn, ok := coerceNumber(v); ok {
			return vn.Equal(n)
		}
		return false
	}
	return strings.EqualFold(coerceText(v), critText)
}

func fnSUMIF(args *CallArgs) (CellValue, error) {
	rangeCells, err := args.Cells(0)
	if err != nil {
		return CellValue{}, err
	}
	criteria, err := args.Value(1)
	if err != nil {
		return CellValue{}, err
	}
	sumCells := rangeCells
	if args.Len() > 2 {
		sumCells, err = args.Cells(2)
		if err != nil {
			return CellValue{}, err
		}
	}
	sum := decimal.Zero
	for i, v := range rangeCells {
		if !matchesCriteria(v, criteria) {
			continue
		}
		if i >= len(sumCells) {
			continue
		}
		if n, ok := coerceNumber(sumCells[i]); ok {
			sum = sum.Add(n)
		}
	}
	return NewNumber(sum), nil
}

func fnCOUNTIF(args *CallArgs) (CellValue, error) {
	rangeCells, err := args.Cells(0)
	if err != nil {
		return CellValue{}, err
	}
	criteria, err := args.Value(1)
	if err != nil {
		return CellValue{}, err
	}
	count := 0
	for _, v := range rangeCells {
		if matchesCriteria(v, criteria) {
			count++
		}
	}
	return NewNumberFromFloat(float64(count)), nil
}
