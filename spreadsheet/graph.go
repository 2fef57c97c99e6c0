package spreadsheet

import "sort"

// DependencyGraph is the single-sheet dependency graph spec.md §4.6
// defines: forward (deps) and reverse (dependents) adjacency keyed by
// ARef, split from the cross-sheet graph so single-sheet recalculation
// never pays for cross-sheet bookkeeping, and returning explicit cycle
// paths instead of a bare bool.
type DependencyGraph struct {
	deps         map[ARef]map[ARef]struct{}
	dependents   map[ARef]map[ARef]struct{}
	nodeOrder    []ARef // insertion order, for deterministic tie-breaking
	seen         map[ARef]struct{}
	volatileRefs map[ARef]struct{}
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps:         make(map[ARef]map[ARef]struct{}),
		dependents:   make(map[ARef]map[ARef]struct{}),
		seen:         make(map[ARef]struct{}),
		volatileRefs: make(map[ARef]struct{}),
	}
}

// MarkVolatile records that ref's formula calls a volatile function
// (TODAY, NOW): a collaborator doing incremental recalculation must always
// recompute it, never reuse a cached value, regardless of whether its
// precedents changed.
func (g *DependencyGraph) MarkVolatile(ref ARef) {
	g.touch(ref)
	g.volatileRefs[ref] = struct{}{}
}

// IsVolatile reports whether ref was marked volatile.
func (g *DependencyGraph) IsVolatile(ref ARef) bool {
	_, ok := g.volatileRefs[ref]
	return ok
}

// VolatileCells returns every cell marked volatile, sorted for determinism.
func (g *DependencyGraph) VolatileCells() []ARef {
	return setToSortedSlice(g.volatileRefs)
}

func (g *DependencyGraph) touch(ref ARef) {
	if _, ok := g.seen[ref]; !ok {
		g.seen[ref] = struct{}{}
		g.nodeOrder = append(g.nodeOrder, ref)
	}
}

// AddEdge records that `from` depends on `to` (an edge to->from in
// calculation order: `to` must be evaluated before `from`).
func (g *DependencyGraph) AddEdge(from, to ARef) {
	g.touch(from)
	g.touch(to)
	if g.deps[from] == nil {
		g.deps[from] = make(map[ARef]struct{})
	}
	g.deps[from][to] = struct{}{}
	if g.dependents[to] == nil {
		g.dependents[to] = make(map[ARef]struct{})
	}
	g.dependents[to][from] = struct{}{}
}

// Precedents returns the cells ref directly depends on.
func (g *DependencyGraph) Precedents(ref ARef) []ARef {
	return setToSortedSlice(g.deps[ref])
}

// Dependents returns the cells that directly depend on ref.
func (g *DependencyGraph) Dependents(ref ARef) []ARef {
	return setToSortedSlice(g.dependents[ref])
}

func setToSortedSlice(m map[ARef]struct{}) []ARef {
	out := make([]ARef, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// TransitiveDependencies returns every cell reachable from refs via
// forward edges (BFS), including the starting set, per spec.md §4.6.
func (g *DependencyGraph) TransitiveDependencies(refs []ARef) []ARef {
	visited := make(map[ARef]struct{})
	queue := append([]ARef{}, refs...)
	for _, r := range refs {
		visited[r] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.deps[cur] {
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return setToSortedSlice(visited)
}

// TransitiveDependents returns every cell reachable from refs via reverse
// edges (BFS), excluding the starting set, per spec.md §4.6.
func (g *DependencyGraph) TransitiveDependents(refs []ARef) []ARef {
	start := make(map[ARef]struct{}, len(refs))
	for _, r := range refs {
		start[r] = struct{}{}
	}
	visited := make(map[ARef]struct{})
	queue := append([]ARef{}, refs...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.dependents[cur] {
			if _, ok := start[next]; ok {
				continue
			}
			if _, ok := visited[next]; !ok {
				visited[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return setToSortedSlice(visited)
}

// DetectCycles runs Tarjan's SCC algorithm in O(V+E) and fails with
// CircularRefError if any strongly connected component has more than one
// node, or a single node with a self-loop, per spec.md §4.6.
func (g *DependencyGraph) DetectCycles() error {
	t := &tarjan{
		graph:   g,
		index:   make(map[ARef]int),
		lowlink: make(map[ARef]int),
		onStack: make(map[ARef]bool),
	}
	for _, n := range g.nodeOrder {
		if _, ok := t.index[n]; !ok {
			if cyc := t.strongConnect(n); cyc != nil {
				return &CircularRefError{Cycle: cyc}
			}
		}
	}
	return nil
}

type tarjan struct {
	graph   *DependencyGraph
	index   map[ARef]int
	lowlink map[ARef]int
	onStack map[ARef]bool
	stack   []ARef
	counter int
}

// strongConnect runs Tarjan's algorithm from node v, returning a
// representative cycle path (closed, first node repeated at the end) the
// moment it finds a non-trivial SCC or a self-loop, or nil if none found
// in this subtree.
func (t *tarjan) strongConnect(v ARef) []ARef {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	neighbors := setToSortedSlice(t.graph.deps[v])
	for _, w := range neighbors {
		if w == v {
			return []ARef{v, v}
		}
		if _, ok := t.index[w]; !ok {
			if cyc := t.strongConnect(w); cyc != nil {
				return cyc
			}
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []ARef
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			sort.Slice(scc, func(i, j int) bool { return scc[i].Less(scc[j]) })
			closed := append(append([]ARef{}, scc...), scc[0])
			return closed
		}
	}
	return nil
}

// TopologicalSort implements Kahn's algorithm: repeatedly remove
// zero-in-degree nodes, decrementing successors' in-degree. Ties are
// broken by ARef.Less (column-major order, spec.md §5). If the processed
// count is less than the node count,
// returns a CircularRefError reconstructed from the remaining nodes.
func (g *DependencyGraph) TopologicalSort() ([]ARef, error) {
	inDegree := make(map[ARef]int, len(g.nodeOrder))
	for _, n := range g.nodeOrder {
		inDegree[n] = len(g.deps[n])
	}

	var ready []ARef
	for _, n := range g.nodeOrder {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}

	var order []ARef
	remaining := make(map[ARef]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for dependent := range g.dependents[n] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) < len(g.nodeOrder) {
		var stuck []ARef
		for _, n := range g.nodeOrder {
			if remaining[n] > 0 {
				stuck = append(stuck, n)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return stuck[i].Less(stuck[j]) })
		if len(stuck) > 0 {
			closed := append(append([]ARef{}, stuck...), stuck[0])
			return nil, &CircularRefError{Cycle: closed}
		}
		return nil, &CircularRefError{Cycle: nil}
	}
	return order, nil
}

// BuildDependencyGraph builds a single-sheet DependencyGraph from sheet:
// for each formula cell, parse its expression, extract cell references
// via a bounded traversal (unbounded ranges clipped to the sheet's used
// range), and add forward/reverse edges. Cross-sheet references are
// ignored, per spec.md §4.6.
func BuildDependencyGraph(sheet *Sheet, registry *Registry) (*DependencyGraph, error) {
	g := NewDependencyGraph()
	clip, _ := sheet.UsedRange()

	for _, ref := range sheet.FormulaCells() {
		g.touch(ref)
		cell := sheet.Get(ref)
		expr, err := ParseFormula(cell.Value.Expression, registry)
		if err != nil {
			return nil, &FormulaError{Expression: cell.Value.Expression, Reason: err.Error()}
		}
		refs := extractLocalRefs(expr, clip)
		for _, dep := range refs {
			g.AddEdge(ref, dep)
		}
		if containsVolatileCall(expr) {
			g.MarkVolatile(ref)
		}
	}
	return g, nil
}

// containsVolatileCall reports whether expr's AST calls a function whose
// FunctionSpec is marked Volatile (TODAY, NOW).
func containsVolatileCall(expr TExpr) bool {
	found := false
	walkTExpr(expr, func(n TExpr) {
		if call, ok := n.(*CallNode); ok && call.Spec != nil && call.Spec.Volatile {
			found = true
		}
	})
	return found
}

// extractLocalRefs walks expr, collecting same-sheet cell references
// (bare Ref/Range nodes only; SheetRef/SheetRange nodes are ignored
// because they belong to the cross-sheet graph). Unbounded ranges are
// clipped to `clip` before enumeration.
func extractLocalRefs(expr TExpr, clip CellRange) []ARef {
	var out []ARef
	walkTExpr(expr, func(n TExpr) {
		switch v := n.(type) {
		case *RefNode:
			out = append(out, v.Ref)
		case *RangeRefNode:
			bounded := v.Range
			if bounded.IsUnbounded() {
				b, ok := bounded.Bounded(clip)
				if !ok {
					return
				}
				bounded = b
			}
			bounded.Cells(func(ref ARef) bool {
				out = append(out, ref)
				return true
			})
		}
	})
	return out
}

// walkTExpr visits every node of expr's tree, calling visit on each.
func walkTExpr(expr TExpr, visit func(TExpr)) {
	visit(expr)
	switch n := expr.(type) {
	case *BinaryNode:
		walkTExpr(n.Left, visit)
		walkTExpr(n.Right, visit)
	case *UnaryNode:
		walkTExpr(n.Operand, visit)
	case *CallNode:
		for _, a := range n.Args {
			walkTExpr(a, visit)
		}
	}
}

// ContainsCellReferences reports whether expr's AST contains any cell or
// range reference (local or cross-sheet), without expanding ranges.
func ContainsCellReferences(expr TExpr) bool {
	found := false
	walkTExpr(expr, func(n TExpr) {
		switch n.(type) {
		case *RefNode, *RangeRefNode, *SheetRefNode, *SheetRangeNode:
			found = true
		}
	})
	return found
}

// ContainsUnqualifiedCellReferences reports whether expr's AST contains a
// same-sheet (unqualified) cell or range reference.
func ContainsUnqualifiedCellReferences(expr TExpr) bool {
	found := false
	walkTExpr(expr, func(n TExpr) {
		switch n.(type) {
		case *RefNode, *RangeRefNode:
			found = true
		}
	})
	return found
}

// CrossSheetGraph is the workbook-wide dependency graph keyed by
// QualifiedRef, per spec.md §4.6.
type CrossSheetGraph struct {
	deps       map[QualifiedRef]map[QualifiedRef]struct{}
	dependents map[QualifiedRef]map[QualifiedRef]struct{}
	nodeOrder  []QualifiedRef
	seen       map[QualifiedRef]struct{}
}

// NewCrossSheetGraph returns an empty cross-sheet graph.
func NewCrossSheetGraph() *CrossSheetGraph {
	return &CrossSheetGraph{
		deps:       make(map[QualifiedRef]map[QualifiedRef]struct{}),
		dependents: make(map[QualifiedRef]map[QualifiedRef]struct{}),
		seen:       make(map[QualifiedRef]struct{}),
	}
}

func (g *CrossSheetGraph) touch(ref QualifiedRef) {
	if _, ok := g.seen[ref]; !ok {
		g.seen[ref] = struct{}{}
		g.nodeOrder = append(g.nodeOrder, ref)
	}
}

// AddEdge records that `from` depends on `to`.
func (g *CrossSheetGraph) AddEdge(from, to QualifiedRef) {
	g.touch(from)
	g.touch(to)
	if g.deps[from] == nil {
		g.deps[from] = make(map[QualifiedRef]struct{})
	}
	g.deps[from][to] = struct{}{}
	if g.dependents[to] == nil {
		g.dependents[to] = make(map[QualifiedRef]struct{})
	}
	g.dependents[to][from] = struct{}{}
}

// BuildCrossSheetGraph builds the workbook-wide graph: same-sheet
// references are qualified with the formula cell's own sheet; cross-sheet
// references use their explicit sheet name.
func BuildCrossSheetGraph(workbook *Workbook, registry *Registry) (*CrossSheetGraph, error) {
	g := NewCrossSheetGraph()
	for _, sheet := range workbook.Sheets() {
		clip, _ := sheet.UsedRange()
		for _, ref := range sheet.FormulaCells() {
			from := QualifiedRef{Sheet: sheet.Name(), Ref: ref}
			g.touch(from)
			cell := sheet.Get(ref)
			expr, err := ParseFormula(cell.Value.Expression, registry)
			if err != nil {
				return nil, &FormulaError{Expression: cell.Value.Expression, Reason: err.Error()}
			}
			for _, dep := range extractQualifiedRefs(expr, sheet.Name(), clip) {
				g.AddEdge(from, dep)
			}
		}
	}
	return g, nil
}

func extractQualifiedRefs(expr TExpr, homeSheet SheetName, clip CellRange) []QualifiedRef {
	var out []QualifiedRef
	walkTExpr(expr, func(n TExpr) {
		switch v := n.(type) {
		case *RefNode:
			out = append(out, QualifiedRef{Sheet: homeSheet, Ref: v.Ref})
		case *RangeRefNode:
			expandRangeInto(&out, homeSheet, v.Range, clip)
		case *SheetRefNode:
			out = append(out, QualifiedRef{Sheet: v.Sheet, Ref: v.Ref})
		case *SheetRangeNode:
			// Cross-sheet unbounded ranges clip against the home sheet's
			// used range; a precise implementation would clip against the
			// referenced sheet, but the workbook is not threaded through
			// this pure AST walk, so callers needing that precision use
			// ExpandToRefs via an EvalContext instead.
			expandRangeInto(&out, v.Sheet, v.Range, clip)
		}
	})
	return out
}

func expandRangeInto(out *[]QualifiedRef, sheet SheetName, rng CellRange, clip CellRange) {
	bounded := rng
	if rng.IsUnbounded() {
		b, ok := rng.Bounded(clip)
		if !ok {
			return
		}
		bounded = b
	}
	bounded.Cells(func(ref ARef) bool {
		*out = append(*out, QualifiedRef{Sheet: sheet, Ref: ref})
		return true
	})
}

// DetectCycles runs Tarjan's SCC on the cross-sheet graph, mirroring
// DependencyGraph.DetectCycles.
func (g *CrossSheetGraph) DetectCycles() error {
	t := &qrefTarjan{
		graph:   g,
		index:   make(map[QualifiedRef]int),
		lowlink: make(map[QualifiedRef]int),
		onStack: make(map[QualifiedRef]bool),
	}
	for _, n := range g.nodeOrder {
		if _, ok := t.index[n]; !ok {
			if cyc := t.strongConnect(n); cyc != nil {
				return &CircularRefError{Cycle: qrefsToARefs(cyc)}
			}
		}
	}
	return nil
}

func qrefsToARefs(qs []QualifiedRef) []ARef {
	out := make([]ARef, len(qs))
	for i, q := range qs {
		out[i] = q.Ref
	}
	return out
}

type qrefTarjan struct {
	graph   *CrossSheetGraph
	index   map[QualifiedRef]int
	lowlink map[QualifiedRef]int
	onStack map[QualifiedRef]bool
	stack   []QualifiedRef
	counter int
}

func (t *qrefTarjan) strongConnect(v QualifiedRef) []QualifiedRef {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	neighbors := make([]QualifiedRef, 0, len(t.graph.deps[v]))
	for w := range t.graph.deps[v] {
		neighbors = append(neighbors, w)
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Sheet != neighbors[j].Sheet {
			return neighbors[i].Sheet < neighbors[j].Sheet
		}
		return neighbors[i].Ref.Less(neighbors[j].Ref)
	})

	for _, w := range neighbors {
		if w == v {
			return []QualifiedRef{v, v}
		}
		if _, ok := t.index[w]; !ok {
			if cyc := t.strongConnect(w); cyc != nil {
				return cyc
			}
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []QualifiedRef
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 {
			closed := append(append([]QualifiedRef{}, scc...), scc[0])
			return closed
		}
	}
	return nil
}
