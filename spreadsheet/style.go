package spreadsheet

import "fmt"

// StyleId is an opaque index into a workbook's StyleRegistry.
type StyleId uint32

// Font describes the subset of font attributes the core needs to round
// trip: family, size, bold/italic/underline, and an RGB color.
type Font struct {
	Name      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	ColorRGB  string
}

// Fill describes a solid cell background.
type Fill struct {
	PatternType string
	FgColorRGB  string
	BgColorRGB  string
}

// Alignment describes horizontal/vertical alignment and wrap behavior.
type Alignment struct {
	Horizontal string
	Vertical   string
	WrapText   bool
	Indent     int
}

// NumFmt is a number format code, e.g. "0.00%".
type NumFmt struct {
	Code string
	ID   int
}

// CellStyle is one de-duplicated style record.
type CellStyle struct {
	Font      Font
	Fill      Fill
	Alignment Alignment
	NumFmt    NumFmt
}

func (s CellStyle) key() string {
	return fmt.Sprintf("%+v|%+v|%+v|%+v", s.Font, s.Fill, s.Alignment, s.NumFmt)
}

// StyleRegistry is a workbook-shared, de-duplicating catalog of
// CellStyles, addressed by StyleId. It grows monotonically during a
// mutation session; Reindex builds a compacted copy holding only the
// styles in use (spec.md §3 lifecycle rules), and the internal/persist
// JSON writer writes every entry without reindexing. It follows the standard
// interning-table shape: a forward map keyed by content, a reverse map
// keyed by ID.
type StyleRegistry struct {
	byKey  map[string]StyleId
	byID   map[StyleId]CellStyle
	nextID StyleId
}

// NewStyleRegistry returns an empty registry.
func NewStyleRegistry() *StyleRegistry {
	return &StyleRegistry{
		byKey: make(map[string]StyleId),
		byID:  make(map[StyleId]CellStyle),
	}
}

// Intern returns the StyleId for style, creating a new entry if an
// identical style is not already registered.
func (r *StyleRegistry) Intern(style CellStyle) StyleId {
	k := style.key()
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.byKey[k] = id
	r.byID[id] = style
	return id
}

// Get returns the CellStyle for id.
func (r *StyleRegistry) Get(id StyleId) (CellStyle, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Contains reports whether id is present in the registry — used to
// enforce spec.md §3's invariant that no cell references a missing style.
func (r *StyleRegistry) Contains(id StyleId) bool {
	_, ok := r.byID[id]
	return ok
}

// Reindex returns a new registry containing only the styles in `used`,
// with fresh, densely packed IDs, plus a mapping from old to new IDs. This
// is the re-indexing write-path step spec.md §3 calls for.
func (r *StyleRegistry) Reindex(used map[StyleId]struct{}) (*StyleRegistry, map[StyleId]StyleId) {
	out := NewStyleRegistry()
	remap := make(map[StyleId]StyleId, len(used))
	for id := range used {
		style, ok := r.byID[id]
		if !ok {
			continue
		}
		remap[id] = out.Intern(style)
	}
	return out, remap
}

// All returns a copy of every id-to-style mapping, for collaborators that
// need to enumerate the registry (e.g. a persistence writer).
func (r *StyleRegistry) All() map[StyleId]CellStyle {
	out := make(map[StyleId]CellStyle, len(r.byID))
	for k, v := range r.byID {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy: interning into the copy leaves the original
// unchanged. Workbook mutations do not call it; every copy-on-write
// Workbook shares one registry.
func (r *StyleRegistry) Clone() *StyleRegistry {
	out := &StyleRegistry{
		byKey:  make(map[string]StyleId, len(r.byKey)),
		byID:   make(map[StyleId]CellStyle, len(r.byID)),
		nextID: r.nextID,
	}
	for k, v := range r.byKey {
		out.byKey[k] = v
	}
	for k, v := range r.byID {
		out.byID[k] = v
	}
	return out
}
