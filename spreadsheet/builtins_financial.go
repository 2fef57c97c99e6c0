package spreadsheet

import (
	"fmt"
	"math"
)

// registerFinancialFunctions registers the time-value-of-money family
// spec.md §4.5 names: closed-form PMT/FV/PV/NPER, direct discounted sums
// for NPV/XNPV, and Newton's-method iterative solvers for IRR/XIRR/RATE
// per spec.md §4.5's convergence requirements: default guess 0.1,
// tolerance 1e-7.
func registerFinancialFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "NPV", Arity: RangeArity(2, -1), Eval: fnNPV})
	r.Register(&FunctionSpec{Name: "IRR", Arity: RangeArity(1, 2), Eval: fnIRR})
	r.Register(&FunctionSpec{Name: "XNPV", Arity: Fixed(3), Eval: fnXNPV})
	r.Register(&FunctionSpec{Name: "XIRR", Arity: RangeArity(2, 3), Eval: fnXIRR})
	r.Register(&FunctionSpec{Name: "PMT", Arity: RangeArity(3, 5), Eval: fnPMT})
	r.Register(&FunctionSpec{Name: "FV", Arity: RangeArity(3, 5), Eval: fnFV})
	r.Register(&FunctionSpec{Name: "PV", Arity: RangeArity(3, 5), Eval: fnPV})
	r.Register(&FunctionSpec{Name: "NPER", Arity: RangeArity(3, 5), Eval: fnNPER})
	r.Register(&FunctionSpec{Name: "RATE", Arity: RangeArity(3, 6), Eval: fnRATE})
}

const (
	financialTolerance = 1e-7
	irrMaxIterations   = 50
	xirrMaxIterations  = 100
	rateMaxIterations  = 100
	newtonGuess        = 0.1
)

func scalarFloat(args *CallArgs, i int) (float64, *CellValue, error) {
	n, errVal, err := scalarNumber(args, i)
	if err != nil || errVal != nil {
		return 0, errVal, err
	}
	f, _ := n.Float64()
	return f, nil, nil
}

func fnNPV(args *CallArgs) (CellValue, error) {
	rate, errVal, err := scalarFloat(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	var flows []float64
	for i := 1; i < args.Len(); i++ {
		cells, err := args.Cells(i)
		if err != nil {
			return CellValue{}, err
		}
		for _, c := range cells {
			if c.IsError() {
				return c, nil
			}
			n, ok := coerceNumber(c)
			if !ok {
				continue
			}
			f, _ := n.Float64()
			flows = append(flows, f)
		}
	}
	sum := npvAt(rate, flows)
	return NewNumberFromFloat(sum), nil
}

func npvAt(rate float64, flows []float64) float64 {
	sum := 0.0
	for i, f := range flows {
		sum += f / math.Pow(1+rate, float64(i+1))
	}
	return sum
}

// fnIRR solves npv(rate, flows)=0 by Newton's method starting from an
// initial guess of 0.1, capped at 50 iterations per spec.md §4.5.
func fnIRR(args *CallArgs) (CellValue, error) {
	cells, err := args.Cells(0)
	if err != nil {
		return CellValue{}, err
	}
	var flows []float64
	for _, c := range cells {
		if c.IsError() {
			return c, nil
		}
		n, ok := coerceNumber(c)
		if !ok {
			continue
		}
		f, _ := n.Float64()
		flows = append(flows, f)
	}
	guess := newtonGuess
	if args.Len() > 1 {
		g, errVal, err := scalarFloat(args, 1)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		guess = g
	}
	rate, err := solveIRR(flows, guess, irrMaxIterations)
	if err != nil {
		return CellValue{}, err
	}
	return NewNumberFromFloat(rate), nil
}

func solveIRR(flows []float64, guess float64, maxIter int) (float64, error) {
	rate := guess
	for iter := 0; iter < maxIter; iter++ {
		npv := 0.0
		deriv := 0.0
		for i, f := range flows {
			t := float64(i)
			denom := math.Pow(1+rate, t)
			npv += f / denom
			deriv -= t * f / (denom * (1 + rate))
		}
		if math.Abs(deriv) < 1e-10 {
			return 0, &EvalFailedError{Reason: "derivative near zero", Context: "IRR"}
		}
		next := rate - npv/deriv
		if math.Abs(next-rate) < financialTolerance {
			return next, nil
		}
		rate = next
	}
	return 0, &EvalFailedError{Reason: fmt.Sprintf("did not converge after %d iterations", maxIter), Context: "IRR"}
}

// fnXNPV discounts irregular cash flow dates against a 365-day year.
func fnXNPV(args *CallArgs) (CellValue, error) {
	rate, errVal, err := scalarFloat(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	flows, err := args.Cells(1)
	if err != nil {
		return CellValue{}, err
	}
	dates, err := args.Cells(2)
	if err != nil {
		return CellValue{}, err
	}
	if len(flows) != len(dates) || len(flows) == 0 {
		return NewError(ErrValue), nil
	}
	sum, err := xnpvAt(rate, flows, dates)
	if err != nil {
		return CellValue{}, err
	}
	return NewNumberFromFloat(sum), nil
}

func xnpvAt(rate float64, flows, dates []CellValue) (float64, error) {
	first := dates[0]
	firstSerial, ok := coerceNumber(first)
	if !ok {
		return 0, fmt.Errorf("invalid date")
	}
	sum := 0.0
	for i := range flows {
		fn, ok := coerceNumber(flows[i])
		if !ok {
			continue
		}
		f, _ := fn.Float64()
		dn, ok := coerceNumber(dates[i])
		if !ok {
			return 0, fmt.Errorf("invalid date")
		}
		days := dn.Sub(firstSerial)
		daysF, _ := days.Float64()
		sum += f / math.Pow(1+rate, daysF/365.0)
	}
	return sum, nil
}

// fnXIRR solves xnpv(rate)=0 by Newton's method, 100-iteration cap per
// spec.md §4.5.
func fnXIRR(args *CallArgs) (CellValue, error) {
	flows, err := args.Cells(0)
	if err != nil {
		return CellValue{}, err
	}
	dates, err := args.Cells(1)
	if err != nil {
		return CellValue{}, err
	}
	if len(flows) != len(dates) || len(flows) == 0 {
		return NewError(ErrValue), nil
	}
	guess := newtonGuess
	if args.Len() > 2 {
		g, errVal, err := scalarFloat(args, 2)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		guess = g
	}
	rate := guess
	const h = 1e-6
	for iter := 0; iter < xirrMaxIterations; iter++ {
		f0, err := xnpvAt(rate, flows, dates)
		if err != nil {
			return CellValue{}, &EvalFailedError{Reason: err.Error(), Context: "XIRR"}
		}
		f1, err := xnpvAt(rate+h, flows, dates)
		if err != nil {
			return CellValue{}, &EvalFailedError{Reason: err.Error(), Context: "XIRR"}
		}
		deriv := (f1 - f0) / h
		if math.Abs(deriv) < 1e-14 {
			return CellValue{}, &EvalFailedError{Reason: "derivative near zero", Context: "XIRR"}
		}
		next := rate - f0/deriv
		if math.Abs(next-rate) < financialTolerance {
			return NewNumberFromFloat(next), nil
		}
		rate = next
	}
	return CellValue{}, &EvalFailedError{Reason: fmt.Sprintf("did not converge after %d iterations", xirrMaxIterations), Context: "XIRR"}
}

// pmtArgs reads the (rate, nper, pv, [fv], [type]) argument shape. PMT
// uses all of it; FV and PV use only its rate, nper and type and read
// their own payment and value arguments; NPER reads its own arguments.
func pmtArgs(args *CallArgs) (rate, nper, pv, fv float64, due bool, errVal *CellValue, err error) {
	rate, errVal, err = scalarFloat(args, 0)
	if err != nil || errVal != nil {
		return
	}
	nper, errVal, err = scalarFloat(args, 1)
	if err != nil || errVal != nil {
		return
	}
	pv, errVal, err = scalarFloat(args, 2)
	if err != nil || errVal != nil {
		return
	}
	if args.Len() > 3 {
		fv, errVal, err = scalarFloat(args, 3)
		if err != nil || errVal != nil {
			return
		}
	}
	if args.Len() > 4 {
		var typ float64
		typ, errVal, err = scalarFloat(args, 4)
		if err != nil || errVal != nil {
			return
		}
		due = typ != 0
	}
	return
}

func fnPMT(args *CallArgs) (CellValue, error) {
	rate, nper, pv, fv, due, errVal, err := pmtArgs(args)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if rate == 0 {
		return NewNumberFromFloat(-(pv + fv) / nper), nil
	}
	factor := math.Pow(1+rate, nper)
	pmt := -rate * (pv*factor + fv) / (factor - 1)
	if due {
		pmt /= 1 + rate
	}
	return NewNumberFromFloat(pmt), nil
}

func fnFV(args *CallArgs) (CellValue, error) {
	rate, nper, _, _, due, errVal, err := pmtArgs(args)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if args.Len() < 3 {
		return NewError(ErrValue), nil
	}
	payment, errVal, err := scalarFloat(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	presentValue := 0.0
	if args.Len() > 3 {
		presentValue, errVal, err = scalarFloat(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
	}
	if rate == 0 {
		return NewNumberFromFloat(-(presentValue + payment*nper)), nil
	}
	factor := math.Pow(1+rate, nper)
	annuityFactor := (factor - 1) / rate
	if due {
		annuityFactor *= 1 + rate
	}
	result := -(presentValue*factor + payment*annuityFactor)
	return NewNumberFromFloat(result), nil
}

func fnPV(args *CallArgs) (CellValue, error) {
	rate, nper, _, _, due, errVal, err := pmtArgs(args)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if args.Len() < 3 {
		return NewError(ErrValue), nil
	}
	payment, errVal, err := scalarFloat(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	futureValue := 0.0
	if args.Len() > 3 {
		futureValue, errVal, err = scalarFloat(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
	}
	if rate == 0 {
		return NewNumberFromFloat(-(futureValue + payment*nper)), nil
	}
	factor := math.Pow(1+rate, nper)
	annuityFactor := (factor - 1) / rate
	if due {
		annuityFactor *= 1 + rate
	}
	result := -(futureValue + payment*annuityFactor) / factor
	return NewNumberFromFloat(result), nil
}

func fnNPER(args *CallArgs) (CellValue, error) {
	rate, errVal, err := scalarFloat(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if args.Len() < 3 {
		return NewError(ErrValue), nil
	}
	payment, errVal, err := scalarFloat(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	presentValue, errVal, err := scalarFloat(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	futureValue := 0.0
	if args.Len() > 3 {
		futureValue, errVal, err = scalarFloat(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
	}
	due := false
	if args.Len() > 4 {
		typ, errVal, err := scalarFloat(args, 4)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		due = typ != 0
	}
	if rate == 0 {
		if payment == 0 {
			return NewError(ErrDiv0), nil
		}
		return NewNumberFromFloat(-(presentValue + futureValue) / payment), nil
	}
	paymentAdj := payment
	if due {
		paymentAdj *= 1 + rate
	}
	numerator := paymentAdj - futureValue*rate
	denominator := presentValue*rate + paymentAdj
	if numerator <= 0 || denominator <= 0 {
		return NewError(ErrNum), nil
	}
	n := math.Log(numerator/denominator) / math.Log(1+rate)
	return NewNumberFromFloat(-n), nil
}

// fnRATE solves for the periodic rate implied by (nper, pmt, pv, fv) via
// Newton's method on the same residual PMT would have produced, 100
// -iteration cap and 0.1 default guess per spec.md §4.5.
func fnRATE(args *CallArgs) (CellValue, error) {
	nper, errVal, err := scalarFloat(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	payment, errVal, err := scalarFloat(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	presentValue, errVal, err := scalarFloat(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	futureValue := 0.0
	if args.Len() > 3 {
		futureValue, errVal, err = scalarFloat(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
	}
	due := false
	if args.Len() > 4 {
		typ, errVal, err := scalarFloat(args, 4)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		due = typ != 0
	}
	guess := newtonGuess
	if args.Len() > 5 {
		g, errVal, err := scalarFloat(args, 5)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		guess = g
	}
	residual := func(rate float64) float64 {
		if rate == 0 {
			return presentValue + payment*nper + futureValue
		}
		factor := math.Pow(1+rate, nper)
		annuityFactor := (factor - 1) / rate
		paymentAdj := payment
		if due {
			paymentAdj *= 1 + rate
		}
		return presentValue*factor + paymentAdj*annuityFactor + futureValue
	}
	rate := guess
	const h = 1e-6
	for iter := 0; iter < rateMaxIterations; iter++ {
		f0 := residual(rate)
		f1 := residual(rate + h)
		deriv := (f1 - f0) / h
		if math.Abs(deriv) < 1e-14 {
			return CellValue{}, &EvalFailedError{Reason: "derivative near zero", Context: "RATE"}
		}
		next := rate - f0/deriv
		if math.Abs(next-rate) < financialTolerance {
			return NewNumberFromFloat(next), nil
		}
		rate = next
	}
	return CellValue{}, &EvalFailedError{Reason: fmt.Sprintf("did not converge after %d iterations", rateMaxIterations), Context: "RATE"}
}
