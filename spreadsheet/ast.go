package spreadsheet

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// BinOp enumerates binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpConcat
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// UnOp enumerates unary operators.
type UnOp int

const (
	OpNeg UnOp = iota
	OpPos
	OpPercent
)

// TExpr is the typed formula expression tree spec.md §4.4 describes: a
// tagged sum over literals, references, arithmetic, comparisons, and
// function calls. References carry a uniform sheet-qualified family
// (RefNode, SheetRefNode, RangeRefNode, SheetRangeNode) rather than a
// single worksheet-ID field.
type TExpr interface {
	Eval(ctx *EvalContext) (CellValue, error)
	String() string
}

// LiteralNode wraps a constant CellValue (number, string, or boolean
// literal).
type LiteralNode struct {
	Value CellValue
}

func (n *LiteralNode) Eval(*EvalContext) (CellValue, error) { return n.Value, nil }
func (n *LiteralNode) String() string                       { return n.Value.ToPlainText() }

// RefNode is a same-sheet cell reference. It is the PolyRef spec.md §4.4
// names: its concrete type is decided at evaluation time by the consuming
// context (arithmetic coerces to number, concat coerces to string, etc).
type RefNode struct {
	Ref ARef
}

func (n *RefNode) Eval(ctx *EvalContext) (CellValue, error) {
	return ctx.ResolveRef(ctx.CurrentSheetName, n.Ref)
}
func (n *RefNode) String() string { return n.Ref.ToA1() }

// RangeRefNode is a same-sheet range reference, used only where a
// function's argument shape expects a range (aggregate functions,
// lookups).
type RangeRefNode struct {
	Range CellRange
}

func (n *RangeRefNode) Eval(ctx *EvalContext) (CellValue, error) {
	return CellValue{}, &FormulaError{Reason: "a range cannot be evaluated as a single value"}
}
func (n *RangeRefNode) String() string { return n.Range.ToA1() }

// SheetRefNode is a cross-sheet cell reference ("Sheet2!A1").
type SheetRefNode struct {
	Sheet SheetName
	Ref   ARef
}

func (n *SheetRefNode) Eval(ctx *EvalContext) (CellValue, error) {
	return ctx.ResolveRef(n.Sheet, n.Ref)
}
func (n *SheetRefNode) String() string { return string(n.Sheet) + "!" + n.Ref.ToA1() }

// SheetRangeNode is a cross-sheet range reference.
type SheetRangeNode struct {
	Sheet SheetName
	Range CellRange
}

func (n *SheetRangeNode) Eval(ctx *EvalContext) (CellValue, error) {
	return CellValue{}, &FormulaError{Reason: "a range cannot be evaluated as a single value"}
}
func (n *SheetRangeNode) String() string { return string(n.Sheet) + "!" + n.Range.ToA1() }

// NamedRangeNode resolves a workbook- or sheet-scoped defined name at
// evaluation time.
type NamedRangeNode struct {
	Name string
}

func (n *NamedRangeNode) Eval(ctx *EvalContext) (CellValue, error) {
	dn, ok := ctx.Workbook.ResolveName(n.Name, ctx.CurrentSheetName)
	if !ok {
		return CellValue{}, &FormulaError{Reason: "undefined name: " + n.Name}
	}
	inner, err := ctx.EvalExpression(dn.Expression, ctx.CurrentSheetName)
	if err != nil {
		return CellValue{}, err
	}
	return inner, nil
}
func (n *NamedRangeNode) String() string { return n.Name }

// BinaryNode is an arithmetic, concatenation, or comparison operation.
// Evaluation errors surfacing from either operand propagate as a
// CellValue error before the operator is applied.
type BinaryNode struct {
	Op    BinOp
	Left  TExpr
	Right TExpr
}

func (n *BinaryNode) Eval(ctx *EvalContext) (CellValue, error) {
	left, err := n.Left.Eval(ctx)
	if err != nil {
		return CellValue{}, err
	}
	right, err := n.Right.Eval(ctx)
	if err != nil {
		return CellValue{}, err
	}
	if left.IsError() {
		return left, nil
	}
	if right.IsError() {
		return right, nil
	}

	switch n.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow:
		ln, lok := coerceNumber(left)
		rn, rok := coerceNumber(right)
		if !lok || !rok {
			return NewError(ErrValue), nil
		}
		switch n.Op {
		case OpAdd:
			return NewNumber(ln.Add(rn)), nil
		case OpSub:
			return NewNumber(ln.Sub(rn)), nil
		case OpMul:
			return NewNumber(ln.Mul(rn)), nil
		case OpDiv:
			if rn.IsZero() {
				return NewError(ErrDiv0), nil
			}
			return NewNumber(ln.Div(rn)), nil
		case OpPow:
			f, _ := rn.Float64()
			return NewNumber(decimalPow(ln, f)), nil
		}
	case OpConcat:
		return NewText(coerceText(left) + coerceText(right)), nil
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		cmp, ok := comparePrimitives(left, right)
		if !ok {
			return NewError(ErrValue), nil
		}
		switch n.Op {
		case OpEq:
			return NewBool(cmp == 0), nil
		case OpNeq:
			return NewBool(cmp != 0), nil
		case OpLt:
			return NewBool(cmp < 0), nil
		case OpLte:
			return NewBool(cmp <= 0), nil
		case OpGt:
			return NewBool(cmp > 0), nil
		case OpGte:
			return NewBool(cmp >= 0), nil
		}
	}
	return CellValue{}, &FormulaError{Reason: "unknown operator"}
}

func decimalPow(base decimal.Decimal, exp float64) decimal.Decimal {
	f, _ := base.Float64()
	return decimal.NewFromFloat(math.Pow(f, exp))
}

func (n *BinaryNode) String() string {
	return fmt.Sprintf("(%s%s%s)", n.Left.String(), binOpSymbol(n.Op), n.Right.String())
}

func binOpSymbol(op BinOp) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	case OpConcat:
		return "&"
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	}
	return "?"
}

// UnaryNode is a unary +, -, or trailing % operation.
type UnaryNode struct {
	Op      UnOp
	Operand TExpr
}

func (n *UnaryNode) Eval(ctx *EvalContext) (CellValue, error) {
	v, err := n.Operand.Eval(ctx)
	if err != nil {
		return CellValue{}, err
	}
	if v.IsError() {
		return v, nil
	}
	num, ok := coerceNumber(v)
	if !ok {
		return NewError(ErrValue), nil
	}
	switch n.Op {
	case OpNeg:
		return NewNumber(num.Neg()), nil
	case OpPos:
		return NewNumber(num), nil
	case OpPercent:
		return NewNumber(num.Div(decimal.NewFromInt(100))), nil
	}
	return CellValue{}, &FormulaError{Reason: "unknown unary operator"}
}

func (n *UnaryNode) String() string {
	switch n.Op {
	case OpNeg:
		return "-" + n.Operand.String()
	case OpPercent:
		return n.Operand.String() + "%"
	default:
		return "+" + n.Operand.String()
	}
}

// CallNode is a generic function-call node carrying a FunctionSpec and its
// raw (unevaluated) argument expressions, per spec.md §4.4.
type CallNode struct {
	Name string
	Spec *FunctionSpec
	Args []TExpr
}

func (n *CallNode) Eval(ctx *EvalContext) (CellValue, error) {
	if n.Spec == nil {
		return NewError(ErrName), nil
	}
	if err := n.Spec.Arity.check(len(n.Args)); err != nil {
		return CellValue{}, &FormulaError{Expression: n.Name, Reason: err.Error()}
	}
	return n.Spec.Eval(&CallArgs{Raw: n.Args, ctx: ctx})
}

func (n *CallNode) String() string {
	s := n.Name + "("
	for i, a := range n.Args {
		if i > 0 {
			s += ","
		}
		s += a.String()
	}
	return s + ")"
}

