package spreadsheet

import (
	"math"

	"github.com/shopspring/decimal"
)

// registerMathFunctions registers the numeric function family spec.md
// §4.5 names (ROUND/FLOOR/CEILING/ABS/MOD/POWER/SQRT/LN/LOG/EXP) as
// FunctionSpec table entries per spec.md §9.
func registerMathFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "ABS", Arity: Fixed(1), Eval: fnABS})
	r.Register(&FunctionSpec{Name: "ROUND", Arity: Fixed(2), Eval: fnROUND})
	r.Register(&FunctionSpec{Name: "FLOOR", Arity: Fixed(2), Eval: fnFLOOR})
	r.Register(&FunctionSpec{Name: "CEILING", Arity: Fixed(2), Eval: fnCEILING})
	r.Register(&FunctionSpec{Name: "SQRT", Arity: Fixed(1), Eval: fnSQRT})
	r.Register(&FunctionSpec{Name: "POWER", Arity: Fixed(2), Eval: fnPOWER})
	r.Register(&FunctionSpec{Name: "MOD", Arity: Fixed(2), Eval: fnMOD})
	r.Register(&FunctionSpec{Name: "LN", Arity: Fixed(1), Eval: fnLN})
	r.Register(&FunctionSpec{Name: "LOG", Arity: RangeArity(1, 2), Eval: fnLOG})
	r.Register(&FunctionSpec{Name: "EXP", Arity: Fixed(1), Eval: fnEXP})
}

func scalarNumber(args *CallArgs, i int) (decimal.Decimal, *CellValue, error) {
	v, err := args.Value(i)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if v.IsError() {
		return decimal.Zero, &v, nil
	}
	n, ok := coerceNumber(v)
	if !ok {
		e := NewError(ErrValue)
		return decimal.Zero, &e, nil
	}
	return n, nil, nil
}

func fnABS(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewNumber(n.Abs()), nil
}

func derefOrErr(v *CellValue) CellValue {
	if v != nil {
		return *v
	}
	return CellValue{}
}

func fnROUND(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	digits, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	places := int32(digits.IntPart())
	return NewNumber(n.Round(places)), nil
}

func fnFLOOR(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	sig, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if sig.IsZero() {
		return NewError(ErrDiv0), nil
	}
	ratio := n.Div(sig)
	return NewNumber(ratio.Floor().Mul(sig)), nil
}

func fnCEILING(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	sig, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if sig.IsZero() {
		return NewError(ErrDiv0), nil
	}
	ratio := n.Div(sig)
	return NewNumber(ratio.Ceil().Mul(sig)), nil
}

func fnSQRT(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if n.IsNegative() {
		return NewError(ErrNum), nil
	}
	f, _ := n.Float64()
	return NewNumberFromFloat(math.Sqrt(f)), nil
}

func fnPOWER(args *CallArgs) (CellValue, error) {
	base, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	exp, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	bf, _ := base.Float64()
	ef, _ := exp.Float64()
	return NewNumberFromFloat(math.Pow(bf, ef)), nil
}

func fnMOD(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	d, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if d.IsZero() {
		return NewError(ErrDiv0), nil
	}
	result := n.Mod(d)
	if !result.IsZero() && result.Sign() != d.Sign() {
		result = result.Add(d)
	}
	return NewNumber(result), nil
}

func fnLN(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if !n.IsPositive() {
		return NewError(ErrNum), nil
	}
	f, _ := n.Float64()
	return NewNumberFromFloat(math.Log(f)), nil
}

func fnLOG(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if !n.IsPositive() {
		return NewError(ErrNum), nil
	}
	base := 10.0
	if args.Len() > 1 {
		b, errVal, err := scalarNumber(args, 1)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		base, _ = b.Float64()
	}
	f, _ := n.Float64()
	return NewNumberFromFloat(math.Log(f) / math.Log(base)), nil
}

func fnEXP(args *CallArgs) (CellValue, error) {
	n, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	f, _ := n.Float64()
	return NewNumberFromFloat(math.Exp(f)), nil
}
