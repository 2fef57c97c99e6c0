package spreadsheet

import "fmt"

// Arity describes how many arguments a function accepts: Fixed(n) is
// Min==Max==n; RangeArity(min,max) allows Max==-1 for unbounded, per spec.md
// §4.4.
type Arity struct {
	Min int
	Max int // -1 means unbounded
}

// Fixed returns an Arity requiring exactly n arguments.
func Fixed(n int) Arity { return Arity{Min: n, Max: n} }

// RangeArity returns an Arity requiring between min and max arguments
// inclusive; max<0 means unbounded.
func RangeArity(min, max int) Arity { return Arity{Min: min, Max: max} }

func (a Arity) check(n int) error {
	if n < a.Min {
		return fmt.Errorf("too few arguments: got %d, need at least %d", n, a.Min)
	}
	if a.Max >= 0 && n > a.Max {
		return fmt.Errorf("too many arguments: got %d, allow at most %d", n, a.Max)
	}
	return nil
}

// CallArgs is what a FunctionSpec's evaluator closure receives: the raw
// (unevaluated) argument expressions plus the evaluation context, so each
// function can decide per spec.md §4.4 whether a position is an eagerly
// evaluated Expr, a symbolic Range, or an expanded Cells view.
type CallArgs struct {
	Raw []TExpr
	ctx *EvalContext
}

// Len returns the number of arguments supplied.
func (a *CallArgs) Len() int { return len(a.Raw) }

// Value evaluates argument i eagerly as a scalar CellValue (the Expr
// shape). Returns an Error value (never a Go error) if evaluation
// produces a spreadsheet error, consistent with spec.md §7's rule that
// in-expression errors propagate as values.
func (a *CallArgs) Value(i int) (CellValue, error) {
	if i >= len(a.Raw) {
		return Empty, nil
	}
	return a.Raw[i].Eval(a.ctx)
}

// Values evaluates every argument as a scalar.
func (a *CallArgs) Values() ([]CellValue, error) {
	out := make([]CellValue, len(a.Raw))
	for i := range a.Raw {
		v, err := a.Value(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Cells expands argument i (the Range/Cells shape) into its bounded cell
// values: a bare ref becomes a one-element slice, a range is expanded
// through the context's used-range clip.
func (a *CallArgs) Cells(i int) ([]CellValue, error) {
	if i >= len(a.Raw) {
		return nil, nil
	}
	return a.ctx.ExpandToValues(a.Raw[i])
}

// CellRefs expands argument i into its bounded ARefs (for functions that
// need addresses, not just values, such as VLOOKUP/HLOOKUP/INDEX, which
// read the range's shape).
func (a *CallArgs) CellRefs(i int) ([]QualifiedRef, error) {
	if i >= len(a.Raw) {
		return nil, nil
	}
	return a.ctx.ExpandToRefs(a.Raw[i])
}

// Clock exposes the context's injected Clock, for date/time functions
// such as TODAY and NOW that must never read the wall clock directly
// (spec.md §9's single non-determinism source rule).
func (a *CallArgs) Clock() Clock { return a.ctx.Clock }

// FunctionSpec is one registry entry: canonical name, arity, and the
// evaluator closure, per spec.md §4.4/§9's explicit design note that arity
// and shape should be data, not code. Volatile marks a function (TODAY,
// NOW) whose result can change with no change to its arguments; graph.go
// consults this flag when marking dependency-graph cells as volatile.
type FunctionSpec struct {
	Name     string
	Arity    Arity
	Eval     func(args *CallArgs) (CellValue, error)
	Volatile bool
}

// Registry is a mapping from upper-cased function name to FunctionSpec,
// rewritten as data per spec.md §9 rather than a switch over call sites.
type Registry struct {
	specs map[string]*FunctionSpec
}

// NewRegistry returns a registry pre-populated with every built-in
// function spec.md §4.5 names.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]*FunctionSpec)}
	registerMathFunctions(r)
	registerLogicalFunctions(r)
	registerTextFunctions(r)
	registerAggregateFunctions(r)
	registerLookupFunctions(r)
	registerDateFunctions(r)
	registerFinancialFunctions(r)
	return r
}

// Register adds or replaces a FunctionSpec, keyed by its upper-cased name.
func (r *Registry) Register(spec *FunctionSpec) {
	r.specs[upper(spec.Name)] = spec
}

// Lookup finds a FunctionSpec by name, case-insensitively.
func (r *Registry) Lookup(name string) (*FunctionSpec, bool) {
	s, ok := r.specs[upper(name)]
	return s, ok
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
