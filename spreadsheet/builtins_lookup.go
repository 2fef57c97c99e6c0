package spreadsheet

// registerLookupFunctions registers the table-search family spec.md §4.5
// names (VLOOKUP/HLOOKUP/INDEX/MATCH), built against CallArgs.Cells
// rather than a flattened two-dimensional grid helper.
func registerLookupFunctions(r *Registry) {
	r.Register(&FunctionSpec{Name: "VLOOKUP", Arity: RangeArity(3, 4), Eval: fnVLOOKUP})
	r.Register(&FunctionSpec{Name: "HLOOKUP", Arity: RangeArity(3, 4), Eval: fnHLOOKUP})
	r.Register(&FunctionSpec{Name: "INDEX", Arity: RangeArity(2, 3), Eval: fnINDEX})
	r.Register(&FunctionSpec{Name: "MATCH", Arity: RangeArity(2, 3), Eval: fnMATCH})
}

// tableShape reads argument i's range as a row-major grid of values by
// consulting its underlying CellRange width, so VLOOKUP/HLOOKUP/INDEX can
// walk it by (row, col) rather than only a flat list.
func tableShape(args *CallArgs, i int) ([]CellValue, int, int, error) {
	refs, err := args.CellRefs(i)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(refs) == 0 {
		return nil, 0, 0, nil
	}
	minCol, maxCol := refs[0].Ref.Col, refs[0].Ref.Col
	minRow, maxRow := refs[0].Ref.Row, refs[0].Ref.Row
	for _, r := range refs {
		if r.Ref.Col < minCol {
			minCol = r.Ref.Col
		}
		if r.Ref.Col > maxCol {
			maxCol = r.Ref.Col
		}
		if r.Ref.Row < minRow {
			minRow = r.Ref.Row
		}
		if r.Ref.Row > maxRow {
			maxRow = r.Ref.Row
		}
	}
	cols := int(maxCol-minCol) + 1
	rows := int(maxRow-minRow) + 1
	values, err := args.Cells(i)
	if err != nil {
		return nil, 0, 0, err
	}
	return values, rows, cols, nil
}

func fnVLOOKUP(args *CallArgs) (CellValue, error) {
	lookup, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	values, rows, cols, err := tableShape(args, 1)
	if err != nil {
		return CellValue{}, err
	}
	colIdxDec, errVal, err := scalarNumber(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	colIdx := int(colIdxDec.IntPart())
	if colIdx < 1 || colIdx > cols {
		return NewError(ErrRef), nil
	}
	exact := false
	if args.Len() > 3 {
		b, errVal, err := scalarBool(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		exact = !b
	}
	for row := 0; row < rows; row++ {
		candidate := values[row*cols]
		eq, ok := comparePrimitives(candidate, lookup)
		if exact {
			if ok && eq == 0 {
				return values[row*cols+colIdx-1], nil
			}
			continue
		}
		if ok && eq == 0 {
			return values[row*cols+colIdx-1], nil
		}
		if ok && eq > 0 {
			if row == 0 {
				return NewError(ErrNA), nil
			}
			return values[(row-1)*cols+colIdx-1], nil
		}
	}
	if !exact && rows > 0 {
		return values[(rows-1)*cols+colIdx-1], nil
	}
	return NewError(ErrNA), nil
}

func fnHLOOKUP(args *CallArgs) (CellValue, error) {
	lookup, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	values, rows, cols, err := tableShape(args, 1)
	if err != nil {
		return CellValue{}, err
	}
	rowIdxDec, errVal, err := scalarNumber(args, 2)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	rowIdx := int(rowIdxDec.IntPart())
	if rowIdx < 1 || rowIdx > rows {
		return NewError(ErrRef), nil
	}
	exact := false
	if args.Len() > 3 {
		b, errVal, err := scalarBool(args, 3)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		exact = !b
	}
	for col := 0; col < cols; col++ {
		candidate := values[col]
		eq, ok := comparePrimitives(candidate, lookup)
		if ok && eq == 0 {
			return values[(rowIdx-1)*cols+col], nil
		}
		if !exact && ok && eq > 0 {
			if col == 0 {
				return NewError(ErrNA), nil
			}
			return values[(rowIdx-1)*cols+col-1], nil
		}
	}
	if !exact && cols > 0 {
		return values[(rowIdx-1)*cols+cols-1], nil
	}
	return NewError(ErrNA), nil
}

func fnINDEX(args *CallArgs) (CellValue, error) {
	values, rows, cols, err := tableShape(args, 0)
	if err != nil {
		return CellValue{}, err
	}
	rowDec, errVal, err := scalarNumber(args, 1)
	if err != nil || errVal != nil {
		return derefOrErr(errVal), err
	}
	row := int(rowDec.IntPart())
	col := 1
	if args.Len() > 2 {
		colDec, errVal, err := scalarNumber(args, 2)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		col = int(colDec.IntPart())
	}
	if row < 1 || row > rows || col < 1 || col > cols {
		return NewError(ErrRef), nil
	}
	return values[(row-1)*cols+col-1], nil
}

func fnMATCH(args *CallArgs) (CellValue, error) {
	lookup, err := args.Value(0)
	if err != nil {
		return CellValue{}, err
	}
	cells, err := args.Cells(1)
	if err != nil {
		return CellValue{}, err
	}
	matchType := 1
	if args.Len() > 2 {
		d, errVal, err := scalarNumber(args, 2)
		if err != nil || errVal != nil {
			return derefOrErr(errVal), err
		}
		matchType = int(d.IntPart())
	}
	switch matchType {
	case 0:
		for i, v := range cells {
			if eq, ok := comparePrimitives(v, lookup); ok && eq == 0 {
				return NewNumberFromFloat(float64(i + 1)), nil
			}
		}
		return NewError(ErrNA), nil
	case 1:
		best := -1
		for i, v := range cells {
			eq, ok := comparePrimitives(v, lookup)
			if !ok {
				continue
			}
			if eq <= 0 {
				best = i
			} else {
				break
			}
		}
		if best < 0 {
			return NewError(ErrNA), nil
		}
		return NewNumberFromFloat(float64(best + 1)), nil
	case -1:
		best := -1
		for i, v := range cells {
			eq, ok := comparePrimitives(v, lookup)
			if !ok {
				continue
			}
			if eq >= 0 {
				best = i
			} else {
				break
			}
		}
		if best < 0 {
			return NewError(ErrNA), nil
		}
		return NewNumberFromFloat(float64(best + 1)), nil
	default:
		return NewError(ErrValue), nil
	}
}

func scalarBool(args *CallArgs, i int) (bool, *CellValue, error) {
	v, err := args.Value(i)
	if err != nil {
		return false, nil, err
	}
	if v.IsError() {
		return false, &v, nil
	}
	b, ok := coerceBool(v)
	if !ok {
		e := NewError(ErrValue)
		return false, &e, nil
	}
	return b, nil, nil
}
