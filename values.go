package sqlexpr

import (
	"strconv"
	"strings"
)

// Node is a value produced by the default compiler. Kind identifies the
// concrete type, so hooks can tell literals from references among compiled
// children without inspecting values.
type Node interface {
	Kind() NodeKind
	String() string
}

// NodeKind identifies the type of a Node.
type NodeKind int8

const (
	// LiteralNode is a Literal.
	LiteralNode NodeKind = iota + 1
	// VariableNode is a Variable.
	VariableNode
	// UnaryNode is a *UnaryOp.
	UnaryNode
	// BinaryNode is a *BinaryOp.
	BinaryNode
	// FunctionNode is a *FunctionCall.
	FunctionNode
)

func (k NodeKind) String() string {
	switch k {
	case LiteralNode:
		return "literal"
	case VariableNode:
		return "variable"
	case UnaryNode:
		return "unary"
	case BinaryNode:
		return "binary"
	case FunctionNode:
		return "function"
	default:
		return "NodeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// LiteralKind is the type of a literal's value.
type LiteralKind int8

const (
	// Int literals hold int64 values.
	Int LiteralKind = iota + 1
	// Float literals hold float64 values.
	Float
	// String literals hold string values.
	String
)

func (k LiteralKind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return "LiteralKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Literal is a constant appearing in an expression.
type Literal struct {
	Type LiteralKind
	// Value is an int64, float64, or string according to Type.
	Value any
	// Text is the literal as written, or the decoded contents for strings.
	Text string
}

// IntLit creates an integer literal.
func IntLit(v int64) Literal {
	return Literal{Type: Int, Value: v, Text: strconv.FormatInt(v, 10)}
}

// FloatLit creates a floating-point literal.
func FloatLit(v float64) Literal {
	return Literal{Type: Float, Value: v, Text: strconv.FormatFloat(v, 'g', -1, 64)}
}

// StringLit creates a string literal.
func StringLit(v string) Literal {
	return Literal{Type: String, Value: v, Text: v}
}

// Kind returns LiteralNode.
func (l Literal) Kind() NodeKind {
	return LiteralNode
}

// String formats the literal so that it lexes to the same value.
func (l Literal) String() string {
	switch l.Type {
	case String:
		return strconv.Quote(l.Text)
	case Float:
		if !strings.ContainsAny(l.Text, ".eE") {
			return l.Text + ".0"
		}
		return l.Text
	default:
		return l.Text
	}
}

// Variable is a reference to a variable, or to a function when it is called.
type Variable struct {
	// Name is Components joined with dots.
	Name string
	// Components are the dot-separated segments of the name.
	Components []string
}

// NewVariable creates a variable from its name segments.
func NewVariable(components ...string) Variable {
	return Variable{Name: strings.Join(components, "."), Components: components}
}

// Kind returns VariableNode.
func (v Variable) Kind() NodeKind {
	return VariableNode
}

func (v Variable) String() string {
	return v.Name
}

// UnaryOp is a prefix operator applied to a compiled operand.
type UnaryOp struct {
	Operator string
	Operand  Node
}

// Kind returns UnaryNode.
func (u *UnaryOp) Kind() NodeKind {
	return UnaryNode
}

func (u *UnaryOp) String() string {
	if isWord(u.Operator) {
		return "(" + u.Operator + " " + u.Operand.String() + ")"
	}
	return "(" + u.Operator + u.Operand.String() + ")"
}

// BinaryOp is an infix operator applied to two compiled operands.
type BinaryOp struct {
	Operator string
	Left     Node
	Right    Node
}

// Kind returns BinaryNode.
func (b *BinaryOp) Kind() NodeKind {
	return BinaryNode
}

func (b *BinaryOp) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}

// FunctionCall is a call of a named function with compiled arguments.
type FunctionCall struct {
	Func Variable
	Args []Node
}

// Kind returns FunctionNode.
func (f *FunctionCall) Kind() NodeKind {
	return FunctionNode
}

func (f *FunctionCall) String() string {
	var b strings.Builder
	b.WriteString(f.Func.Name)
	b.WriteByte('(')
	for i, arg := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}
