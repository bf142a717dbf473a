package sqlexpr

import (
	"fmt"
	"io"
)

// Compiler builds a value of type V from a parsed expression. Compile calls
// exactly one hook per node of the expression, children before parents and
// left before right, then calls Finalize on the result for the root. Every
// hook receives the context passed to Compile unchanged.
//
// A hook rejects the expression by returning an error. Compilation stops at
// the first error, and no further hooks are called.
//
// Implementations usually embed Base to inherit its default hooks and
// override the ones they need.
type Compiler[C, V any] interface {
	// Literal compiles a constant.
	Literal(ctx C, lit Literal) (V, error)
	// Variable compiles a reference to a variable.
	Variable(ctx C, v Variable) (V, error)
	// Unary compiles a prefix operator applied to a compiled operand.
	Unary(ctx C, op string, x V) (V, error)
	// Binary compiles an infix operator applied to compiled operands. x is
	// always compiled before y.
	Binary(ctx C, op string, x, y V) (V, error)
	// Function compiles a call of fn with compiled arguments in source
	// order. args is empty for a call with no arguments.
	Function(ctx C, fn Variable, args []V) (V, error)
	// Finalize adapts the compiled root of the expression into the result
	// of compilation.
	Finalize(ctx C, result V) (V, error)
}

// Compile compiles a parsed expression using c.
func Compile[C, V any](e *Expr, c Compiler[C, V], ctx C) (V, error) {
	var zero V
	r, err := compileNode(e.n, c, ctx)
	if err != nil {
		return zero, err
	}
	r, err = c.Finalize(ctx, r)
	if err != nil {
		return zero, semantic("finalize", err)
	}
	return r, nil
}

// CompileString parses and compiles an expression. Lexical and syntax errors
// are returned before any hook is called.
func CompileString[C, V any](src string, c Compiler[C, V], ctx C, opts ...ParseOption) (V, error) {
	e, err := ParseString(src, opts...)
	if err != nil {
		var zero V
		return zero, err
	}
	return Compile(e, c, ctx)
}

// CompileReader parses an expression from src and compiles it.
func CompileReader[C, V any](src io.RuneScanner, c Compiler[C, V], ctx C, opts ...ParseOption) (V, error) {
	e, err := Parse(src, opts...)
	if err != nil {
		var zero V
		return zero, err
	}
	return Compile(e, c, ctx)
}

// compileNode compiles n and its children in post-order.
func compileNode[C, V any](n *node, c Compiler[C, V], ctx C) (V, error) {
	var zero V
	switch n.kind {
	case nodeLit:
		r, err := c.Literal(ctx, n.lit)
		if err != nil {
			return zero, semantic("literal", err)
		}
		return r, nil
	case nodeVar:
		r, err := c.Variable(ctx, n.ref)
		if err != nil {
			return zero, semantic("variable", err)
		}
		return r, nil
	case nodeUnary:
		x, err := compileNode(n.left, c, ctx)
		if err != nil {
			return zero, err
		}
		r, err := c.Unary(ctx, n.op, x)
		if err != nil {
			return zero, semantic("unary", err)
		}
		return r, nil
	case nodeBinary:
		x, err := compileNode(n.left, c, ctx)
		if err != nil {
			return zero, err
		}
		y, err := compileNode(n.right, c, ctx)
		if err != nil {
			return zero, err
		}
		r, err := c.Binary(ctx, n.op, x, y)
		if err != nil {
			return zero, semantic("binary", err)
		}
		return r, nil
	case nodeCall:
		args := make([]V, 0, len(n.args))
		for _, arg := range n.args {
			v, err := compileNode(arg, c, ctx)
			if err != nil {
				return zero, err
			}
			args = append(args, v)
		}
		r, err := c.Function(ctx, n.ref, args)
		if err != nil {
			return zero, semantic("function", err)
		}
		return r, nil
	default:
		panic("sqlexpr: invalid AST node " + n.kind.String())
	}
}

// SemanticError is an error returned by a compiler hook.
type SemanticError struct {
	// Hook is the name of the hook that failed, e.g. "variable".
	Hook string
	// Msg is the message given to Errorf, if the hook used it.
	Msg string
	// Err is the error returned by the hook, if it did not use Errorf.
	Err error
}

// Errorf creates an error for a hook to reject an expression.
func Errorf(format string, args ...any) error {
	return &SemanticError{Msg: fmt.Sprintf(format, args...)}
}

func (err *SemanticError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Msg
}

func (err *SemanticError) Unwrap() error {
	return err.Err
}

// semantic wraps an error from a hook.
func semantic(hook string, err error) error {
	if se, ok := err.(*SemanticError); ok {
		if se.Hook != "" {
			return se
		}
		// Hooks may return shared errors, so never modify se.
		c := *se
		c.Hook = hook
		return &c
	}
	return &SemanticError{Hook: hook, Err: err}
}

// Base is the default compiler. It produces a tree of Node values mirroring
// the expression. Other compilers embed Base to reuse its hooks.
type Base[C any] struct{}

// Literal returns lit.
func (b Base[C]) Literal(ctx C, lit Literal) (Node, error) {
	return lit, nil
}

// Variable returns v.
func (b Base[C]) Variable(ctx C, v Variable) (Node, error) {
	return v, nil
}

// Unary returns a *UnaryOp.
func (b Base[C]) Unary(ctx C, op string, x Node) (Node, error) {
	return &UnaryOp{Operator: op, Operand: x}, nil
}

// Binary returns a *BinaryOp.
func (b Base[C]) Binary(ctx C, op string, x, y Node) (Node, error) {
	return &BinaryOp{Operator: op, Left: x, Right: y}, nil
}

// Function returns a *FunctionCall.
func (b Base[C]) Function(ctx C, fn Variable, args []Node) (Node, error) {
	return &FunctionCall{Func: fn, Args: args}, nil
}

// Finalize returns result.
func (b Base[C]) Finalize(ctx C, result Node) (Node, error) {
	return result, nil
}

// Tree parses src and compiles it with the default compiler.
func Tree(src string, opts ...ParseOption) (Node, error) {
	return CompileString[any, Node](src, Base[any]{}, nil, opts...)
}

var _ Compiler[any, Node] = Base[any]{}
