package spreadsheet

import (
	"github.com/google/uuid"
)

// DefinedNameScope indicates whether a defined name is workbook-global or
// scoped to a specific sheet.
type DefinedNameScope struct {
	Global bool
	Sheet  SheetName
}

// DefinedName is a named formula or range stored at workbook or sheet
// scope.
type DefinedName struct {
	Name       string
	Scope      DefinedNameScope
	Expression string // formula text, or a range reference for a named range
}

// Workbook is an ordered list of Sheets plus defined names and a shared
// style registry. Sheet names are unique (case-insensitive) and order is
// significant (spec.md §3).
type Workbook struct {
	// ID is a stable handle a CLI session map can key on; it plays no role
	// in the engine's semantics.
	ID uuid.UUID

	sheets       []*Sheet
	definedNames []DefinedName
	styles       *StyleRegistry
}

// NewWorkbook returns an empty workbook with a fresh style registry.
func NewWorkbook() *Workbook {
	return &Workbook{
		ID:     uuid.New(),
		styles: NewStyleRegistry(),
	}
}

func (w *Workbook) clone() *Workbook {
	sheets := make([]*Sheet, len(w.sheets))
	copy(sheets, w.sheets)
	names := make([]DefinedName, len(w.definedNames))
	copy(names, w.definedNames)
	return &Workbook{
		ID:           w.ID,
		sheets:       sheets,
		definedNames: names,
		styles:       w.styles,
	}
}

// Sheets returns the workbook's sheets in order.
func (w *Workbook) Sheets() []*Sheet {
	out := make([]*Sheet, len(w.sheets))
	copy(out, w.sheets)
	return out
}

// SheetNames returns the workbook's sheet names in order.
func (w *Workbook) SheetNames() []SheetName {
	out := make([]SheetName, len(w.sheets))
	for i, s := range w.sheets {
		out[i] = s.Name()
	}
	return out
}

// Styles returns the shared style registry.
func (w *Workbook) Styles() *StyleRegistry { return w.styles }

// Sheet looks up a sheet by name, case-insensitively.
func (w *Workbook) Sheet(name SheetName) (*Sheet, bool) {
	for _, s := range w.sheets {
		if s.Name().EqualFold(name) {
			return s, true
		}
	}
	return nil, false
}

// AddSheet returns a new Workbook with sheet appended. Fails with
// DuplicateSheet if a sheet with the same name (case-insensitive) exists.
func (w *Workbook) AddSheet(name SheetName) (*Workbook, error) {
	if _, ok := w.Sheet(name); ok {
		return nil, &AddressError{Kind: ErrDuplicateSheet, Input: string(name), Reason: "a sheet with this name already exists"}
	}
	out := w.clone()
	out.sheets = append(out.sheets, NewSheet(name, w.styles))
	return out, nil
}

// ReplaceSheet returns a new Workbook with the sheet of the same name
// replaced by sheet. Fails with SheetNotFound if no such sheet exists.
func (w *Workbook) ReplaceSheet(sheet *Sheet) (*Workbook, error) {
	out := w.clone()
	for i, s := range out.sheets {
		if s.Name().EqualFold(sheet.Name()) {
			out.sheets[i] = sheet
			return out, nil
		}
	}
	return nil, &AddressError{Kind: ErrSheetNotFound, Input: string(sheet.Name()), Reason: "no sheet with this name"}
}

// RemoveSheet returns a new Workbook without the named sheet.
func (w *Workbook) RemoveSheet(name SheetName) (*Workbook, error) {
	out := w.clone()
	for i, s := range out.sheets {
		if s.Name().EqualFold(name) {
			out.sheets = append(out.sheets[:i], out.sheets[i+1:]...)
			return out, nil
		}
	}
	return nil, &AddressError{Kind: ErrSheetNotFound, Input: string(name), Reason: "no sheet with this name"}
}

// DefineName returns a new Workbook with name added or replaced.
func (w *Workbook) DefineName(dn DefinedName) *Workbook {
	out := w.clone()
	for i, existing := range out.definedNames {
		if existing.Name == dn.Name && existing.Scope == dn.Scope {
			out.definedNames[i] = dn
			return out
		}
	}
	out.definedNames = append(out.definedNames, dn)
	return out
}

// ResolveName looks up a defined name, sheet scope first, then global.
func (w *Workbook) ResolveName(name string, sheet SheetName) (DefinedName, bool) {
	for _, dn := range w.definedNames {
		if dn.Name == name && !dn.Scope.Global && dn.Scope.Sheet.EqualFold(sheet) {
			return dn, true
		}
	}
	for _, dn := range w.definedNames {
		if dn.Name == name && dn.Scope.Global {
			return dn, true
		}
	}
	return DefinedName{}, false
}

// DefinedNames returns all defined names.
func (w *Workbook) DefinedNames() []DefinedName {
	out := make([]DefinedName, len(w.definedNames))
	copy(out, w.definedNames)
	return out
}
