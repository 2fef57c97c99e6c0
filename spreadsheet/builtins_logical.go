package spreadsheet

// registerLogicalFunctions registers IF/AND/OR/NOT plus the error-absorbing
// family ISBLANK/ISERROR/IFERROR spec.md §4.5 names.
func registerLogicalFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "IF", Arity: RangeArity(2, 3), Eval: fnIF})
	r.Register(&FunctionSpec{Name: "AND", Arity: RangeArity(1, -1), Eval: fnAND})
	r.Register(&FunctionSpec{Name: "OR", Arity: RangeArity(1, -1), Eval: fnOR})
	r.Register(&FunctionSpec{Name: "NOT", Arity: Fixed(1), Eval: fnNOT})
	r.Register(&FunctionSpec{Name: "ISBLANK", Arity: Fixed(1), Eval: fnISBLANK})
	r.Register(&FunctionSpec{Name: "ISERROR", Arity: Fixed(1), Eval: fnISERROR})
	r.Register(&FunctionSpec{Name: "IFERROR", Arity: Fixed(2), Eval: fnIFERROR})
}

func fnIF(args *CallArgs) (CellValue, error) {
	cond, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	if cond.IsError() {
		return cond, nil
	}
	b, ok := coerceBool(cond)
	if !ok {
		return NewError(ErrValue), nil
	}
	if b {
		return args.Value(1)
	}
	if args.Len() > 2 {
		return args.Value(2)
	}
	return NewBool(false), nil
}

func fnAND(args *CallArgs) (CellValue, error) {
	result := true
	for i := 0; i < args.Len(); i++ {
		v, err := args.Value(i)
		if err != nil {
			return CellValue{}, err
		}
		if v.IsError() {
			return v, nil
		}
		b, ok := coerceBool(v)
		if !ok {
			return NewError(ErrValue), nil
		}
		result = result && b
	}
	return NewBool(result), nil
}

func fnOR(args *CallArgs) (CellValue, error) {
	result := false
	for i := 0; i < args.Len(); i++ {
		v, err := args.Value(i)
		if err != nil {
			return CellValue{}, err
		}
		if v.IsError() {
			return v, nil
		}
		b, ok := coerceBool(v)
		if !ok {
			return NewError(ErrValue), nil
		}
		result = result || b
	}
	return NewBool(result), nil
}

func fnNOT(args *CallArgs) (CellValue, error) {
	v, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	if v.IsError() {
		return v, nil
	}
	b, ok := coerceBool(v)
	if !ok {
		return NewError(ErrValue), nil
	}
	return NewBool(!b), nil
}

func fnISBLANK(args *CallArgs) (CellValue, error) {
	v, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	return NewBool(v.IsEmpty()), nil
}

func fnISERROR(args *CallArgs) (CellValue, error) {
	v, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	return NewBool(v.IsError()), nil
}

// fnIFERROR absorbs any in-expression CellValue error, per spec.md §4.7
// and the end-to-end scenario in §8 (IFERROR(B1,-1) where B1 is #DIV/0!).
func fnIFERROR(args *CallArgs) (CellValue, error) {
	v, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	if v.IsError() {
		return args.Value(1)
	}
	return v, nil
}
