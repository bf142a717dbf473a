package sqlexpr

import (
	"strconv"
	"unicode"
)

// DefaultMaxDepth is the nesting limit used when no MaxDepth option is given.
const DefaultMaxDepth = 1000

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	eofopt struct {
		c  bool
		ws string
	}
	depthopt int
)

// parsectx holds general data for parsing.
type parsectx struct {
	// vars and funcs are the sets of names seen this parse in variable and
	// call position.
	vars  map[string]bool
	funcs map[string]bool
	// wseof is a string containing the whitespace characters that trigger an
	// EOF token from the lexer outside parentheses.
	wseof string
	// ceof indicates whether a comma is allowed at the end of an expression.
	ceof bool
	// nest is the number of open parentheses around the current token.
	nest int
	// depth is the current nesting of terms, limited to maxdepth.
	depth, maxdepth int
}

// stop returns the whitespace that ends the expression at the current token.
func (p *parsectx) stop() string {
	if p.nest > 0 {
		return ""
	}
	return p.wseof
}

// enter records entering a term and checks the nesting limit.
func (p *parsectx) enter(scan *lexer) error {
	p.depth++
	if p.maxdepth > 0 && p.depth > p.maxdepth {
		return &SyntaxError{Col: scan.rune, Msg: "expression nested more than " + strconv.Itoa(p.maxdepth) + " deep"}
	}
	return nil
}

func (p *parsectx) leave() {
	p.depth--
}

// StopOn tells the parser to treat a list of characters as ending the
// expression. Each rune must be a comma or whitespace codepoint. Whitespace
// does not end an expression where a term is expected, e.g. at the beginning
// of an expression or following an operator, nor inside parentheses. Commas
// do not end expressions inside function argument lists.
//
// StopOn overrides the effect of any previous StopOn in the parsing options.
// With no arguments, StopOn produces the default termination behavior, which
// is to parse to EOF.
func StopOn(chars ...rune) ParseOption {
	var o eofopt
	v := make([]rune, 0, len(chars))
	have := func(r rune) bool {
		for _, c := range v {
			if r == c {
				return true
			}
		}
		return false
	}
	for _, r := range chars {
		switch {
		case r == ',':
			o.c = true
		case unicode.IsSpace(r):
			if have(r) {
				continue
			}
			v = append(v, r)
		default:
			panic("sqlexpr: cannot stop on " + strconv.QuoteRune(r))
		}
	}
	o.ws = string(v)
	return &o
}

func (o *eofopt) parseOption(p parsectx) parsectx {
	p.ceof = o.c
	p.wseof = o.ws
	return p
}

// MaxDepth limits how deeply terms may nest. Parsing an expression that
// nests more deeply fails with a SyntaxError. A limit of zero or less
// removes the limit.
func MaxDepth(n int) ParseOption {
	return depthopt(n)
}

func (o depthopt) parseOption(p parsectx) parsectx {
	p.maxdepth = int(o)
	return p
}
