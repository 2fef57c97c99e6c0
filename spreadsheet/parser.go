package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parser is a recursive-descent, precedence-climbing parser producing a
// TExpr tree:
// parseComparison -> parseConcatenation -> parseAddition ->
// parseMultiplication -> parsePower -> parseUnary -> parsePostfix ->
// parsePrimary, in the same precedence order.
type Parser struct {
	tokens   []Token
	pos      int
	registry *Registry
}

// ParseFormula tokenizes and parses expression (without its leading '='),
// returning a FormulaError-shaped error on failure, per spec.md §4.4's
// "parser contract."
func ParseFormula(expression string, registry *Registry) (TExpr, error) {
	lex := NewLexer(expression)
	tokens, lexErrs := lex.Tokenize()
	if len(lexErrs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(lexErrs, "; "))
	}
	p := &Parser{tokens: tokens, registry: registry}
	expr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing input at position %d: %q", p.current().Pos, p.current().Text)
	}
	return expr, nil
}

func (p *Parser) current() Token { return p.tokens[p.pos] }

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) match(tokType TokenType, text string) bool {
	t := p.current()
	return t.Type == tokType && (text == "" || strings.EqualFold(t.Text, text))
}

func (p *Parser) parseComparison() (TExpr, error) {
	left, err := p.parseConcatenation()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOp, "=") || p.match(TokenOp, "<>") || p.match(TokenOp, "<") ||
		p.match(TokenOp, "<=") || p.match(TokenOp, ">") || p.match(TokenOp, ">=") {
		opTok := p.advance()
		right, err := p.parseConcatenation()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: binOpFromToken(opTok.Text), Left: left, Right: right}
	}
	return left, nil
}

func binOpFromToken(text string) BinOp {
	switch text {
	case "=":
		return OpEq
	case "<>":
		return OpNeq
	case "<":
		return OpLt
	case "<=":
		return OpLte
	case ">":
		return OpGt
	case ">=":
		return OpGte
	}
	return OpEq
}

func (p *Parser) parseConcatenation() (TExpr, error) {
	left, err := p.parseAddition()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOp, "&") {
		p.advance()
		right, err := p.parseAddition()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: OpConcat, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAddition() (TExpr, error) {
	left, err := p.parseMultiplication()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOp, "+") || p.match(TokenOp, "-") {
		opTok := p.advance()
		right, err := p.parseMultiplication()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if opTok.Text == "-" {
			op = OpSub
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplication() (TExpr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOp, "*") || p.match(TokenOp, "/") {
		opTok := p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		op := OpMul
		if opTok.Text == "/" {
			op = OpDiv
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (TExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.match(TokenOp, "^") {
		p.advance()
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		return &BinaryNode{Op: OpPow, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (TExpr, error) {
	if p.match(TokenOp, "-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: OpNeg, Operand: operand}, nil
	}
	if p.match(TokenOp, "+") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: OpPos, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (TExpr, error) {
	operand, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOp, "%") {
		p.advance()
		operand = &UnaryNode{Op: OpPercent, Operand: operand}
	}
	return operand, nil
}

func (p *Parser) parsePrimary() (TExpr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		d, err := decimal.NewFromString(tok.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", tok.Text, tok.Pos)
		}
		return &LiteralNode{Value: NewNumber(d)}, nil
	case TokenString:
		p.advance()
		return &LiteralNode{Value: NewText(tok.Text)}, nil
	case TokenBoolean:
		p.advance()
		return &LiteralNode{Value: NewBool(strings.EqualFold(tok.Text, "TRUE"))}, nil
	case TokenRef:
		p.advance()
		return parseRefToken(tok.Text)
	case TokenRange:
		p.advance()
		return parseRangeToken(tok.Text)
	case TokenLeftParen:
		p.advance()
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if !p.match(TokenRightParen, "") {
			return nil, fmt.Errorf("expected ')' at position %d", p.current().Pos)
		}
		p.advance()
		return inner, nil
	case TokenIdent:
		return p.parseIdentOrCall()
	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", tok.Text, tok.Pos)
	}
}

func (p *Parser) parseIdentOrCall() (TExpr, error) {
	tok := p.advance()
	if p.match(TokenLeftParen, "") {
		p.advance()
		var args []TExpr
		if !p.match(TokenRightParen, "") {
			for {
				arg, err := p.parseComparison()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.match(TokenComma, "") {
					p.advance()
					continue
				}
				break
			}
		}
		if !p.match(TokenRightParen, "") {
			return nil, fmt.Errorf("expected ')' closing call to %s at position %d", tok.Text, p.current().Pos)
		}
		p.advance()
		spec, _ := p.registry.Lookup(tok.Text)
		return &CallNode{Name: strings.ToUpper(tok.Text), Spec: spec, Args: args}, nil
	}
	return &NamedRangeNode{Name: tok.Text}, nil
}

// parseRefToken parses a Ref-token's text ("A1", "$A$1", "Sheet1!A1",
// "'Quoted Name'!A1") into a RefNode or SheetRefNode.
func parseRefToken(text string) (TExpr, error) {
	sheet, rest, err := ParseSheetQualified(text)
	if err != nil {
		return nil, err
	}
	ref, err := ParseARef(rest)
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		return &RefNode{Ref: ref}, nil
	}
	sn, err := NewSheetName(sheet)
	if err != nil {
		return nil, err
	}
	return &SheetRefNode{Sheet: sn, Ref: ref}, nil
}

// parseRangeToken parses a Range-token's text ("A1:B2", "A:B", "1:3",
// "Sheet1!A1:B2") into a RangeRefNode or SheetRangeNode.
func parseRangeToken(text string) (TExpr, error) {
	sheet, rest, err := ParseSheetQualified(text)
	if err != nil {
		return nil, err
	}
	rng, err := ParseCellRange(rest)
	if err != nil {
		return nil, err
	}
	if sheet == "" {
		return &RangeRefNode{Range: rng}, nil
	}
	sn, err := NewSheetName(sheet)
	if err != nil {
		return nil, err
	}
	return &SheetRangeNode{Sheet: sn, Range: rng}, nil
}

