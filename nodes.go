package sqlexpr

import (
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	// op is the operator of unary and binary nodes.
	op  string
	lit Literal
	// ref is the name of variables and called functions.
	ref Variable

	left  *node
	right *node
	args  []*node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeLit    // lit
	nodeVar    // ref
	nodeUnary  // op applied to left
	nodeBinary // op applied to left, then right
	nodeCall   // ref called with args in order
)

var nodeNames = [...]string{
	nodeNone:   "None",
	nodeLit:    "Lit",
	nodeVar:    "Var",
	nodeUnary:  "Unary",
	nodeBinary: "Binary",
	nodeCall:   "Call",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeNames[k]
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

// fmt writes n fully parenthesized so that the result parses to the same
// tree.
func (n *node) fmt(b *strings.Builder) {
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteString("$#$")
	case nodeLit:
		b.WriteString(n.lit.String())
	case nodeVar:
		b.WriteString(n.ref.Name)
	case nodeUnary:
		b.WriteByte('(')
		b.WriteString(n.op)
		if isWord(n.op) {
			b.WriteByte(' ')
		}
		n.left.fmt(b)
		b.WriteByte(')')
	case nodeBinary:
		b.WriteByte('(')
		n.left.fmt(b)
		b.WriteByte(' ')
		b.WriteString(n.op)
		b.WriteByte(' ')
		n.right.fmt(b)
		b.WriteByte(')')
	case nodeCall:
		b.WriteString(n.ref.Name)
		b.WriteByte('(')
		for i, arg := range n.args {
			if i > 0 {
				b.WriteString(", ")
			}
			arg.fmt(b)
		}
		b.WriteByte(')')
	default:
		panic("sqlexpr: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// isWord reports whether an operator is spelled with letters.
func isWord(op string) bool {
	return op != "" && isLetter(rune(op[0]))
}
