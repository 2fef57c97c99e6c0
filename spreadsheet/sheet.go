package spreadsheet

import "sort"

// Sheet is a value type: every mutating operation returns a new Sheet,
// sharing the StyleRegistry but cloning its own maps. Every call threads
// an "operation returns a handle" pattern through the API, except the
// handle is a true persistent value rather than a pointer to shared
// mutable storage.
type Sheet struct {
	name             SheetName
	cells            map[ARef]Cell
	rowProps         map[Row]RowProperties
	colProps         map[Column]ColumnProperties
	merges           []CellRange
	comments         map[ARef]Comment
	tables           []TableSpec
	styles           *StyleRegistry
	usedRangeCache   *CellRange
}

// NewSheet returns an empty sheet with the given name, sharing styles.
func NewSheet(name SheetName, styles *StyleRegistry) *Sheet {
	return &Sheet{
		name:     name,
		cells:    make(map[ARef]Cell),
		rowProps: make(map[Row]RowProperties),
		colProps: make(map[Column]ColumnProperties),
		comments: make(map[ARef]Comment),
		styles:   styles,
	}
}

// Name returns the sheet's name.
func (s *Sheet) Name() SheetName { return s.name }

// Styles returns the shared style registry.
func (s *Sheet) Styles() *StyleRegistry { return s.styles }

func (s *Sheet) clone() *Sheet {
	cells := make(map[ARef]Cell, len(s.cells))
	for k, v := range s.cells {
		cells[k] = v
	}
	rowProps := make(map[Row]RowProperties, len(s.rowProps))
	for k, v := range s.rowProps {
		rowProps[k] = v
	}
	colProps := make(map[Column]ColumnProperties, len(s.colProps))
	for k, v := range s.colProps {
		colProps[k] = v
	}
	comments := make(map[ARef]Comment, len(s.comments))
	for k, v := range s.comments {
		comments[k] = v
	}
	merges := make([]CellRange, len(s.merges))
	copy(merges, s.merges)
	tables := make([]TableSpec, len(s.tables))
	copy(tables, s.tables)
	return &Sheet{
		name:     s.name,
		cells:    cells,
		rowProps: rowProps,
		colProps: colProps,
		merges:   merges,
		comments: comments,
		tables:   tables,
		styles:   s.styles,
	}
}

// Get returns the cell at ref, or an empty cell if absent.
func (s *Sheet) Get(ref ARef) Cell {
	if c, ok := s.cells[ref]; ok {
		return c
	}
	return Cell{Ref: ref, Value: Empty}
}

// Put returns a new Sheet with ref set to value. Putting Empty removes the
// cell (spec.md §4.3).
func (s *Sheet) Put(ref ARef, value CellValue) *Sheet {
	out := s.clone()
	out.usedRangeCache = nil
	if value.IsEmpty() {
		delete(out.cells, ref)
		return out
	}
	existing := out.cells[ref]
	out.cells[ref] = Cell{Ref: ref, Value: value, StyleId: existing.StyleId}
	return out
}

// PutStyled is Put plus an explicit style index.
func (s *Sheet) PutStyled(ref ARef, value CellValue, styleID StyleId) *Sheet {
	out := s.Put(ref, value)
	c := out.cells[ref]
	c.Ref = ref
	id := styleID
	c.StyleId = &id
	out.cells[ref] = c
	return out
}

// Remove is equivalent to Put(ref, Empty).
func (s *Sheet) Remove(ref ARef) *Sheet {
	return s.Put(ref, Empty)
}

// rangesOverlap reports whether two ranges share any cell.
func rangesOverlap(a, b CellRange) bool {
	_, ok := a.Intersect(b)
	return ok
}

// Merge returns a new Sheet with rng added to the merged-range set. Fails
// with MergeOverlap if rng intersects an existing merge (spec.md §4.3).
func (s *Sheet) Merge(rng CellRange) (*Sheet, error) {
	for _, existing := range s.merges {
		if rangesOverlap(existing, rng) {
			return nil, &StructureError{Kind: ErrMergeOverlap, Detail: rng.ToA1() + " overlaps " + existing.ToA1()}
		}
	}
	out := s.clone()
	out.merges = append(out.merges, rng)
	return out, nil
}

// MergedRanges returns the sheet's merged ranges.
func (s *Sheet) MergedRanges() []CellRange {
	out := make([]CellRange, len(s.merges))
	copy(out, s.merges)
	return out
}

// Comment returns a new Sheet with a comment attached at ref.
func (s *Sheet) Comment(ref ARef, c Comment) *Sheet {
	out := s.clone()
	out.comments[ref] = c
	return out
}

// GetComment returns the comment at ref, if any.
func (s *Sheet) GetComment(ref ARef) (Comment, bool) {
	c, ok := s.comments[ref]
	return c, ok
}

// Comments returns a copy of every ref-to-comment mapping, for
// collaborators that need to enumerate rather than probe one ref at a
// time (e.g. a persistence writer).
func (s *Sheet) Comments() map[ARef]Comment {
	out := make(map[ARef]Comment, len(s.comments))
	for k, v := range s.comments {
		out[k] = v
	}
	return out
}

// SetRowProperties returns a new Sheet with row properties set.
func (s *Sheet) SetRowProperties(row Row, props RowProperties) *Sheet {
	out := s.clone()
	out.usedRangeCache = nil
	out.rowProps[row] = props
	return out
}

// RowProperties returns the properties for a row, or the zero value.
func (s *Sheet) RowProperties(row Row) RowProperties {
	return s.rowProps[row]
}

// SetColumnProperties returns a new Sheet with column properties set.
func (s *Sheet) SetColumnProperties(col Column, props ColumnProperties) *Sheet {
	out := s.clone()
	out.usedRangeCache = nil
	out.colProps[col] = props
	return out
}

// ColumnProperties returns the properties for a column, or the zero value.
func (s *Sheet) ColumnProperties(col Column) ColumnProperties {
	return s.colProps[col]
}

// RowPropertiesAll returns a copy of every row-to-properties mapping.
func (s *Sheet) RowPropertiesAll() map[Row]RowProperties {
	out := make(map[Row]RowProperties, len(s.rowProps))
	for k, v := range s.rowProps {
		out[k] = v
	}
	return out
}

// ColumnPropertiesAll returns a copy of every column-to-properties mapping.
func (s *Sheet) ColumnPropertiesAll() map[Column]ColumnProperties {
	out := make(map[Column]ColumnProperties, len(s.colProps))
	for k, v := range s.colProps {
		out[k] = v
	}
	return out
}

// AddTable returns a new Sheet with table appended.
func (s *Sheet) AddTable(table TableSpec) *Sheet {
	out := s.clone()
	out.tables = append(out.tables, table)
	return out
}

// Tables returns the sheet's tables in insertion order.
func (s *Sheet) Tables() []TableSpec {
	out := make([]TableSpec, len(s.tables))
	copy(out, s.tables)
	return out
}

// UsedRange returns the smallest CellRange enclosing all non-empty cells
// and explicit row/column properties, computed lazily and cached.
func (s *Sheet) UsedRange() (CellRange, bool) {
	if s.usedRangeCache != nil {
		return *s.usedRangeCache, true
	}
	haveAny := false
	var minC, maxC Column
	var minR, maxR Row
	for ref := range s.cells {
		if !haveAny {
			minC, maxC, minR, maxR = ref.Col, ref.Col, ref.Row, ref.Row
			haveAny = true
			continue
		}
		minC, maxC = minCol(minC, ref.Col), maxCol(maxC, ref.Col)
		minR, maxR = minRow(minR, ref.Row), maxRow(maxR, ref.Row)
	}
	for row := range s.rowProps {
		if !haveAny {
			minC, maxC, minR, maxR = 0, 0, row, row
			haveAny = true
			continue
		}
		minR, maxR = minRow(minR, row), maxRow(maxR, row)
	}
	for col := range s.colProps {
		if !haveAny {
			minC, maxC, minR, maxR = col, col, 0, 0
			haveAny = true
			continue
		}
		minC, maxC = minCol(minC, col), maxCol(maxC, col)
	}
	if !haveAny {
		return CellRange{}, false
	}
	result := CellRange{Start: ARef{Col: minC, Row: minR}, End: ARef{Col: maxC, Row: maxR}}
	s.usedRangeCache = &result
	return result, true
}

// FormulaCells returns the sheet's formula cells in column-major insertion
// order (spec.md §5: ties are broken by this order).
func (s *Sheet) FormulaCells() []ARef {
	var out []ARef
	for ref, cell := range s.cells {
		if cell.IsFormula() {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// AllCells returns every non-empty ARef in the sheet, in column-major
// order.
func (s *Sheet) AllCells() []ARef {
	out := make([]ARef, 0, len(s.cells))
	for ref := range s.cells {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
