package spreadsheet

import (
	"time"
)

// registerDateFunctions registers the calendar family spec.md §4.5 names.
// TODAY/NOW consult the injected Clock rather than time.Now() directly,
// per spec.md §9.
func registerDateFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "DATE", Arity: Fixed(3), Eval: fnDATE})
	r.Register(&FunctionSpec{Name: "TODAY", Arity: Fixed(0), Eval: fnTODAY, Volatile: true})
	r.Register(&FunctionSpec{Name: "NOW", Arity: Fixed(0), Eval: fnNOW, Volatile: true})
	r.Register(&FunctionSpec{Name: "YEAR", Arity: Fixed(1), Eval: fnYEAR})
	r.Register(&FunctionSpec{Name: "MONTH", Arity: Fixed(1), Eval: fnMONTH})
	r.Register(&FunctionSpec{Name: "DAY", Arity: Fixed(1), Eval: fnDAY})
	r.Register(&FunctionSpec{Name: "DATEDIF", Arity: Fixed(3), Eval: fnDATEDIF})
	r.Register(&FunctionSpec{Name: "EOMONTH", Arity: Fixed(2), Eval: fnEOMONTH})
}

func scalarDateTime(args *CallArgs, i int) (time.Time, *CellValue, error) {
	v, err := args.Value(i)
	if err != nil {
		return time.Time{}, nil, err
	}
	if v.IsError() {
		return time.Time{}, &v, nil
	}
	if v.Kind == KindDateTime {
		return v.DateTime, nil, nil
	}
	n, ok := coerceNumber(v)
	if !ok {
		e := NewError(ErrValue)
		return time.Time{}, &e, nil
	}
	return SerialToDateTime(n), nil, nil
}

func fnDATE(args *CallArgs) (CellValue, error) {
	yDec, errVal, err := scalarNumber(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	mDec, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	dDec, errVal, err := scalarNumber(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	y := int(yDec.IntPart())
	m := int(mDec.IntPart())
	d := int(dDec.IntPart())
	t := time.Date(y, time.Month(1), 1, 0, 0, 0, 0, time.UTC).AddDate(0, m-1, d-1)
	return NewDateTime(t), nil
}

func fnTODAY(args *CallArgs) (CellValue, error) {
	now := args.Clock().Now()
	t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return NewDateTime(t), nil
}

func fnNOW(args *CallArgs) (CellValue, error) {
	return NewDateTime(args.Clock().Now()), nil
}

func fnYEAR(args *CallArgs) (CellValue, error) {
	t, errVal, err := scalarDateTime(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewNumberFromFloat(float64(t.Year())), nil
}

func fnMONTH(args *CallArgs) (CellValue, error) {
	t, errVal, err := scalarDateTime(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewNumberFromFloat(float64(t.Month())), nil
}

func fnDAY(args *CallArgs) (CellValue, error) {
	t, errVal, err := scalarDateTime(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	return NewNumberFromFloat(float64(t.Day())), nil
}

// fnDATEDIF implements the "Y"/"M"/"D" units spec.md §4.5 requires; other
// Excel units ("MD","YM","YD") are rejected with #NUM! since the core has
// no use for them.
func fnDATEDIF(args *CallArgs) (CellValue, error) {
	start, errVal, err := scalarDateTime(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	end, errVal, err := scalarDateTime(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	unit, errVal, err := scalarText(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	if end.Before(start) {
		return NewError(ErrNum), nil
	}
	switch unit {
	case "Y", "y":
		years := end.Year() - start.Year()
		anniversary := start.AddDate(years, 0, 0)
		if anniversary.After(end) {
			years--
		}
		return NewNumberFromFloat(float64(years)), nil
	case "M", "m":
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		anniversary := start.AddDate(0, months, 0)
		if anniversary.After(end) {
			months--
		}
		return NewNumberFromFloat(float64(months)), nil
	case "D", "d":
		days := int(end.Sub(start).Hours() / 24)
		return NewNumberFromFloat(float64(days)), nil
	default:
		return NewError(ErrNum), nil
	}
}

// fnEOMONTH returns the last day of the month that is months offset from
// date.
func fnEOMONTH(args *CallArgs) (CellValue, error) {
	t, errVal, err := scalarDateTime(args, 0)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	offDec, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	offset := int(offDec.IntPart())
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset+1, 0)
	lastDay := firstOfTarget.AddDate(0, 0, -1)
	return NewDateTime(lastDay), nil
}
