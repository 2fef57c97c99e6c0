package spreadsheet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// registerTextFunctions registers the string family spec.md §4.5 names.
func registerTextFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "CONCATENATE", Arity: RangeArity(1, -1), Eval: fnCONCAT})
	r.Register(&FunctionSpec{Name: "CONCAT", Arity: RangeArity(1, -1), Eval: fnCONCAT})
	r.Register(&FunctionSpec{Name: "LEN", Arity: Fixed(1), Eval: fnLEN})
	r.Register(&FunctionSpec{Name: "UPPER", Arity: Fixed(1), Eval: fnUPPER})
	r.Register(&FunctionSpec{Name: "LOWER", Arity: Fixed(1), Eval: fnLOWER})
	r.Register(&FunctionSpec{Name: "TRIM", Arity: Fixed(1), Eval: fnTRIM})
	r.Register(&FunctionSpec{Name: "LEFT", Arity: RangeArity(1, 2), Eval: fnLEFT})
	r.Register(&FunctionSpec{Name: "RIGHT", Arity: RangeArity(1, 2), Eval: fnRIGHT})
	r.Register(&FunctionSpec{Name: "MID", Arity: Fixed(3), Eval: fnMID})
	r.Register(&FunctionSpec{Name: "TEXT", Arity: Fixed(2), Eval: fnTEXT})
}

func scalarText(args *CallArgs, i int) (string, *CellValue, error) {
	v, err := args.Value(i)
	if err != nil {
		return "", nil, err
	}
	if v.IsError() {
		return "", &v, nil
	}
	return coerceText(v), nil, nil
}

func fnCONCAT(args *CallArgs) (CellValue, error) {
	var b strings.Builder
	for i := 0; i < args.Len(); i++ {
		s, errVal, err := scalarText(args, i)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		b.WriteString(s)
	}
	return NewText(b.String()), nil
}

func fnLEN(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewNumberFromFloat(float64(len([]rune(s)))), nil
}

func fnUPPER(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewText(strings.ToUpper(s)), nil
}

func fnLOWER(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewText(strings.ToLower(s)), nil
}

func fnTRIM(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	fields := strings.Fields(s)
	return NewText(strings.Join(fields, " ")), nil
}

func fnLEFT(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	n := 1
	if args.Len() > 1 {
		count, errVal, err := scalarNumber(args, 1)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		n = int(count.IntPart())
	}
	runes := []rune(s)
	if n < 0 {
		return NewError(ErrValue), nil
	}
	if n > len(runes) {
		n = len(runes)
	}
	return NewText(string(runes[:n])), nil
}

func fnRIGHT(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	n := 1
	if args.Len() > 1 {
		count, errVal, err := scalarNumber(args, 1)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		n = int(count.IntPart())
	}
	runes := []rune(s)
	if n < 0 {
		return NewError(ErrValue), nil
	}
	if n > len(runes) {
		n = len(runes)
	}
	return NewText(string(runes[len(runes)-n:])), nil
}

func fnMID(args *CallArgs) (CellValue, error) {
	s, errVal, err := scalarText(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	startDec, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	lenDec, errVal, err := scalarNumber(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	start := int(startDec.IntPart())
	length := int(lenDec.IntPart())
	if start < 1 || length < 0 {
		return NewError(ErrValue), nil
	}
	runes := []rune(s)
	if start > len(runes) {
		return NewText(""), nil
	}
	begin := start - 1
	end := begin + length
	if end > len(runes) {
		end = len(runes)
	}
	return NewText(string(runes[begin:end])), nil
}

// fnTEXT is a minimal TEXT(value, format) implementation: it recognizes
// the handful of number-format codes the core otherwise carries opaquely
// in CellStyle.NumFmt ("0", "0.00", "0%", "0.00%"); any other format code
// falls back to the value's plain-text rendering, since full custom
// number-format parsing is out of the core's scope (spec.md §1).
func fnTEXT(args *CallArgs) (CellValue, error) {
	v, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	if v.IsError() {
		return v, nil
	}
	format, errVal, err := scalarText(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	n, ok := coerceNumber(v)
	if !ok {
		return NewText(coerceText(v)), nil
	}
	switch format {
	case "0":
		return NewText(n.Round(0).String()), nil
	case "0.00":
		return NewText(n.StringFixed(2)), nil
	case "0%":
		return NewText(n.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"), nil
	case "0.00%":
		return NewText(n.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"), nil
	default:
		return NewText(n.String()), nil
	}
}
