package sqlexpr

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// Expr = Or
// Or = And { 'or' And }
// And = Not { 'and' Not }
// Not = 'not' Not | Cmp
// Cmp = BitOr { ('<' | '<=' | '=' | '!=' | '<>' | '>=' | '>' | 'in' | 'is') BitOr }
// BitOr = BitAnd { '|' BitAnd }
// BitAnd = Shift { '&' Shift }
// Shift = Sum { ('<<' | '>>') Sum }
// Sum = Product { ('+' | '-') Product }
// Product = Prefix { ('*' | '/' | '%') Prefix }
// Prefix = ('+' | '-' | '~') Prefix | Pow
// Pow = Primary [ '^' Prefix ]
// Primary = int | float | string | name | name '(' [ Expr { ',' Expr } ] ')' | '(' Expr ')'
//
// A prefix operator directly to the right of a binary operator takes the
// binary operator's precedence for its operand, so x^-y^z is x^(-(y^z)) and
// x = not y is x = (not y).

// Expr is a parsed expression that can be compiled with a Compiler.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// vars and funcs are the names used in variable and call position.
	vars  []string
	funcs []string
}

// Parse parses a single expression from src. The given options are applied
// in order. Parse reads up to the end of src, or up to the end of the
// expression if StopOn is given.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	scan := lex(src)
	p := parsectx{
		vars:     make(map[string]bool),
		funcs:    make(map[string]bool),
		maxdepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	switch tok := scan.must(); tok.kind {
	case tokenEOF:
	case tokenSep:
		if !p.ceof {
			return nil, unexpected(tok, "end of input")
		}
	case tokenClose:
		return nil, &SyntaxError{Col: tok.pos, Msg: "close parenthesis with no open parenthesis"}
	default:
		panic("sqlexpr: expression ended on " + tok.String())
	}
	ex := Expr{
		n:     n,
		vars:  sortedkeys(p.vars),
		funcs: sortedkeys(p.funcs),
	}
	return &ex, nil
}

// ParseString is a shortcut to parse an expression from a string.
func ParseString(src string, opts ...ParseOption) (*Expr, error) {
	return Parse(strings.NewReader(src), opts...)
}

func sortedkeys(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sortstrs(names)
	return names
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// parseterm parses a term whose operators all bind more tightly than until.
// If there is no error, then parseterm pushes the last token it scans,
// including EOF.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	if err := p.enter(scan); err != nil {
		return nil, err
	}
	defer p.leave()
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := scan.next(p.stop())
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenOp:
			prec := binop(tok.text)
			if prec.op == nodeNone {
				return nil, unexpected(tok, "binary operator")
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n = &node{kind: nodeBinary, op: tok.text, left: n, right: rhs}
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		case tokenInt, tokenFloat, tokenString, tokenIdent, tokenOpen:
			return nil, unexpected(tok, "operator")
		default:
			panic("sqlexpr: unknown token: " + tok.String())
		}
	}
}

// parselhs parses the first component of a term. I.e., operators are unary,
// any encountered token must be valid as the start of a subexpression, and
// whitespace normally lexed as EOF is ignored.
func parselhs(scan *lexer, p *parsectx, until operator) (*node, error) {
	// Don't use EOF whitespace for LHS.
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenInt, tokenFloat, tokenString:
		return &node{kind: nodeLit, lit: literal(tok)}, nil
	case tokenIdent:
		ref := Variable{Name: tok.text, Components: strings.Split(tok.text, ".")}
		next, err := scan.next(p.stop())
		if err != nil {
			return nil, err
		}
		if next.kind != tokenOpen {
			scan.push(next)
			p.vars[ref.Name] = true
			return &node{kind: nodeVar, ref: ref}, nil
		}
		args, err := parseargs(scan, p, next)
		if err != nil {
			return nil, err
		}
		p.funcs[ref.Name] = true
		return &node{kind: nodeCall, ref: ref, args: args}, nil
	case tokenOp:
		prec := unop(tok.text)
		if prec.op == nodeNone {
			return nil, unexpected(tok, "operand")
		}
		if !prec.moreBinding(until) {
			// x^-y -> x^(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseterm(scan, p, prec)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeUnary, op: tok.text, left: rhs}, nil
	case tokenOpen:
		p.nest++
		rhs, err := parseterm(scan, p, exprprec)
		p.nest--
		if err != nil {
			return nil, err
		}
		if end := scan.must(); end.kind != tokenClose {
			return nil, unclosed(tok, end)
		}
		return rhs, nil
	case tokenClose, tokenSep, tokenEOF:
		return nil, unexpected(tok, "operand")
	default:
		panic("sqlexpr: unknown token: " + tok.String())
	}
}

// parseargs parses a parenthesized list of zero or more arguments following
// the open parenthesis open.
func parseargs(scan *lexer, p *parsectx, open lexToken) ([]*node, error) {
	p.nest++
	defer func() { p.nest-- }()
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	if tok.kind == tokenClose {
		// Niladic call.
		return nil, nil
	}
	scan.push(tok)
	var args []*node
	for {
		tok, err := scan.next("")
		if err != nil {
			return nil, err
		}
		scan.push(tok)
		if tok.kind == tokenSep || tok.kind == tokenClose {
			return nil, &SyntaxError{Col: tok.pos, Expected: "argument", Found: describe(tok), Msg: "empty argument"}
		}
		arg, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch end := scan.must(); end.kind {
		case tokenClose:
			return args, nil
		case tokenSep:
			// Another argument follows.
		case tokenEOF:
			return nil, unclosed(open, end)
		default:
			panic("sqlexpr: argument ended on non-end token " + end.String())
		}
	}
}

// literal converts a literal token to its value.
func literal(tok lexToken) Literal {
	switch tok.kind {
	case tokenInt:
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			panic("sqlexpr: lexer accepted invalid integer " + strconv.Quote(tok.text))
		}
		return Literal{Type: Int, Value: v, Text: tok.text}
	case tokenFloat:
		// Value is ±inf when the literal overflows float64.
		v, err := strconv.ParseFloat(tok.text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			panic("sqlexpr: lexer accepted invalid float " + strconv.Quote(tok.text))
		}
		return Literal{Type: Float, Value: v, Text: tok.text}
	case tokenString:
		return Literal{Type: String, Value: tok.text, Text: tok.text}
	default:
		panic("sqlexpr: not a literal: " + tok.String())
	}
}

// Vars returns the names used in variable position in the expression.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.vars...)
}

// Funcs returns the names of functions called in the expression.
func (e *Expr) Funcs() []string {
	return append(([]string)(nil), e.funcs...)
}

// String creates a string representation of the parsed expression, with
// parentheses around each operation.
func (e *Expr) String() string {
	return e.n.String()
}

type operator struct {
	// prec is the precedence value. Higher is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "or":
		return operator{1, false, nodeBinary}
	case "and":
		return operator{2, false, nodeBinary}
	case "<", "<=", "=", "!=", "<>", ">=", ">", "in", "is":
		return operator{4, false, nodeBinary}
	case "|":
		return operator{5, false, nodeBinary}
	case "&":
		return operator{6, false, nodeBinary}
	case "<<", ">>":
		return operator{7, false, nodeBinary}
	case "+", "-":
		return operator{8, false, nodeBinary}
	case "*", "/", "%":
		return operator{9, false, nodeBinary}
	case "^":
		return operator{11, true, nodeBinary}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "not":
		return operator{3, true, nodeUnary}
	case "+", "-", "~":
		return operator{10, true, nodeUnary}
	default:
		return operator{}
	}
}

// exprprec is the precedence required to parse an entire subexpression.
var exprprec = operator{-128, true, nodeNone}
