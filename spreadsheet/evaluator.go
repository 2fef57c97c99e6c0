package spreadsheet

import (
	"github.com/rs/zerolog"
)

// EvalContext is the evaluation-time environment a TExpr walks against: a
// workbook snapshot, the formula's home sheet, an injected clock, and a
// per-call memo of already-evaluated cells (spec.md §5: "a per-call
// evaluation context may memoise already-evaluated cells within a single
// evaluate_with_dependency_check invocation").
type EvalContext struct {
	Workbook         *Workbook
	CurrentSheetName SheetName
	Clock            Clock
	Registry         *Registry
	Log              zerolog.Logger

	// overrides holds already-evaluated formula results for the current
	// evaluate_with_dependency_check pass, keyed by qualified cell. It
	// takes precedence over the sheet's stored (possibly stale) cached
	// value.
	overrides map[QualifiedRef]CellValue
}

// NewEvalContext builds a context rooted at sheet within workbook.
func NewEvalContext(workbook *Workbook, sheet SheetName, clock Clock, registry *Registry) *EvalContext {
	return &EvalContext{
		Workbook:         workbook,
		CurrentSheetName: sheet,
		Clock:            clock,
		Registry:         registry,
		Log:              zerolog.Nop(),
	}
}

func (ctx *EvalContext) withSheet(sheet SheetName) *EvalContext {
	cp := *ctx
	cp.CurrentSheetName = sheet
	return &cp
}

// ResolveRef resolves a cell's CellValue, evaluating it if it holds a
// Formula, per spec.md §4.7's PolyRef rule.
func (ctx *EvalContext) ResolveRef(sheetName SheetName, ref ARef) (CellValue, error) {
	qref := QualifiedRef{Sheet: sheetName, Ref: ref}
	if ctx.overrides != nil {
		if v, ok := ctx.overrides[qref]; ok {
			return v, nil
		}
	}
	sheet, ok := ctx.Workbook.Sheet(sheetName)
	if !ok {
		return NewError(ErrRef), nil
	}
	cell := sheet.Get(ref)
	if cell.Value.Kind != KindFormula {
		return cell.Value, nil
	}
	return ctx.EvalExpression(cell.Value.Expression, sheetName)
}

// EvalExpression parses and evaluates a formula expression (no leading
// '=') against sheetName, returning a plain CellValue.
func (ctx *EvalContext) EvalExpression(expression string, sheetName SheetName) (CellValue, error) {
	expr, err := ParseFormula(expression, ctx.Registry)
	if err != nil {
		return CellValue{}, &FormulaError{Expression: expression, Reason: err.Error()}
	}
	return expr.Eval(ctx.withSheet(sheetName))
}

// clipFor returns the bounding range to clip unbounded ranges against:
// the target sheet's used range, or a degenerate empty range if the sheet
// has no content (spec.md §4.1: "unbounded enumeration is forbidden").
func (ctx *EvalContext) clipFor(sheetName SheetName) CellRange {
	sheet, ok := ctx.Workbook.Sheet(sheetName)
	if !ok {
		return CellRange{}
	}
	used, ok := sheet.UsedRange()
	if !ok {
		return CellRange{}
	}
	return used
}

// ExpandToRefs resolves node (a Ref, Range, SheetRef, or SheetRange node)
// into its bounded list of QualifiedRefs, clipping any unbounded range to
// the target sheet's used range first.
func (ctx *EvalContext) ExpandToRefs(node TExpr) ([]QualifiedRef, error) {
	switch n := node.(type) {
	case *RefNode:
		return []QualifiedRef{{Sheet: ctx.CurrentSheetName, Ref: n.Ref}}, nil
	case *SheetRefNode:
		return []QualifiedRef{{Sheet: n.Sheet, Ref: n.Ref}}, nil
	case *RangeRefNode:
		return ctx.expandRange(ctx.CurrentSheetName, n.Range), nil
	case *SheetRangeNode:
		return ctx.expandRange(n.Sheet, n.Range), nil
	default:
		return nil, &FormulaError{Reason: "expected a cell or range reference"}
	}
}

func (ctx *EvalContext) expandRange(sheetName SheetName, rng CellRange) []QualifiedRef {
	bounded := rng
	if rng.IsUnbounded() {
		clip := ctx.clipFor(sheetName)
		b, ok := rng.Bounded(clip)
		if !ok {
			return nil
		}
		bounded = b
	}
	var out []QualifiedRef
	bounded.Cells(func(ref ARef) bool {
		out = append(out, QualifiedRef{Sheet: sheetName, Ref: ref})
		return true
	})
	return out
}

// ExpandToValues is ExpandToRefs followed by ResolveRef on each ref.
func (ctx *EvalContext) ExpandToValues(node TExpr) ([]CellValue, error) {
	refs, err := ctx.ExpandToRefs(node)
	if err != nil {
		return nil, err
	}
	out := make([]CellValue, len(refs))
	for i, r := range refs {
		v, err := ctx.ResolveRef(r.Sheet, r.Ref)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DefaultRegistry is the function registry shared by every Parser/evaluator
// call that does not build its own; callers that want a customized
// function set construct their own Registry and EvalContext instead.
var DefaultRegistry = NewRegistry()

// EvaluateFormula implements spec.md §4.7's evaluate_formula: parse,
// type-check/evaluate, and return the resulting CellValue. Parse failures
// surface as a Go error (FormulaError); in-expression errors (#DIV/0!
// etc.) are returned as an Error CellValue with a nil error.
func EvaluateFormula(workbook *Workbook, sheetName SheetName, expression string, clock Clock) (CellValue, error) {
	ctx := NewEvalContext(workbook, sheetName, clock, DefaultRegistry)
	return ctx.EvalExpression(expression, sheetName)
}

// EvaluateCell implements evaluate_cell: if the cell holds a Formula,
// evaluate its expression; otherwise return the stored value unchanged.
func EvaluateCell(workbook *Workbook, sheetName SheetName, ref ARef, clock Clock) (CellValue, error) {
	ctx := NewEvalContext(workbook, sheetName, clock, DefaultRegistry)
	return ctx.ResolveRef(sheetName, ref)
}

// EvaluateWithDependencyCheck implements spec.md §4.7's five-step
// algorithm: build the single-sheet graph, detect cycles, topologically
// sort the formula cells, fold over that order evaluating each cell
// against an accumulator of already-evaluated predecessors, and return
// the final map. A failure at any cell aborts with no partial map
// observable.
func EvaluateWithDependencyCheck(workbook *Workbook, sheetName SheetName, clock Clock) (map[ARef]CellValue, error) {
	sheet, ok := workbook.Sheet(sheetName)
	if !ok {
		return nil, &AddressError{Kind: ErrSheetNotFound, Input: string(sheetName), Reason: "no sheet with this name"}
	}

	graph, err := BuildDependencyGraph(sheet, DefaultRegistry)
	if err != nil {
		return nil, err
	}
	if err := graph.DetectCycles(); err != nil {
		return nil, err
	}
	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	ctx := NewEvalContext(workbook, sheetName, clock, DefaultRegistry)
	ctx.overrides = make(map[QualifiedRef]CellValue, len(order))

	result := make(map[ARef]CellValue, len(order))
	for _, ref := range order {
		cell := sheet.Get(ref)
		if cell.Value.Kind != KindFormula {
			continue
		}
		v, err := ctx.EvalExpression(cell.Value.Expression, sheetName)
		if err != nil {
			return nil, err
		}
		ctx.overrides[QualifiedRef{Sheet: sheetName, Ref: ref}] = v
		result[ref] = v
	}
	return result, nil
}

// EvaluateAllFormulas is a convenience that delegates to
// EvaluateWithDependencyCheck, per spec.md §4.7.
func EvaluateAllFormulas(workbook *Workbook, sheetName SheetName, clock Clock) (map[ARef]CellValue, error) {
	return EvaluateWithDependencyCheck(workbook, sheetName, clock)
}
