package sqlexpr

import (
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zephyrtronium/bigfloat"
)

// Context is a context for evaluating expressions with Evaluator. It is not
// safe to use a Context concurrently.
type Context struct {
	nums  map[string]*big.Float
	names map[string]*big.Float
	funcs map[string]Func
	prec  uint
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Float
	}
	varsopt map[string]*big.Float
	precopt uint
	funcopt struct {
		name string
		fn   Func
	}
)

func (varopt) ctxOption()  {}
func (varsopt) ctxOption() {}
func (precopt) ctxOption() {}
func (funcopt) ctxOption() {}

// SetVar sets the value of a variable in the context. Dotted names are
// set with their full name, e.g. "date.year".
func SetVar(name string, val *big.Float) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]*big.Float) ContextOption {
	return varsopt(vars)
}

// Prec sets the precision of calculations.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// SetFunc sets a function in the context. To remove a function, including a
// default one, pass nil for fn.
func SetFunc(name string, fn Func) ContextOption {
	return funcopt{name, fn}
}

// NewContext creates a new evaluation context with the default functions.
// If no precision is given, the default is 64.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{nums: make(map[string]*big.Float), funcs: globalfuncs, prec: 64}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression and returns the result.
func (ctx *Context) Eval(e *Expr) (*big.Float, error) {
	return Compile[*Context, *big.Float](e, Evaluator{}, ctx)
}

// Set sets the value of a variable. Returns ctx for chaining.
func (ctx *Context) Set(name string, value *big.Float) *Context {
	if ctx.names == nil {
		ctx.names = make(map[string]*big.Float)
	}
	ctx.names[name] = new(big.Float).SetPrec(ctx.prec).Set(value)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then the result is nil.
func (ctx *Context) Lookup(name string) *big.Float {
	v := ctx.names[name]
	if v == nil {
		return nil
	}
	return new(big.Float).Copy(v)
}

// Names returns the names of the variables set in the context, sorted.
func (ctx *Context) Names() []string {
	names := make([]string, 0, len(ctx.names))
	for k := range ctx.names {
		names = append(names, k)
	}
	sortstrs(names)
	return names
}

// Func returns the function with the given name, or nil if there is none.
func (ctx *Context) Func(name string) Func {
	return ctx.funcs[name]
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		nums:  make(map[string]*big.Float, len(ctx.nums)),
		names: make(map[string]*big.Float, len(ctx.names)),
		funcs: ctx.funcs,
		prec:  ctx.prec,
	}
	// First, check for a precision setting. Loop backward so we apply the last
	// precision.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(precopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Copy numbers only if the new precision is no higher than the old, so
	// that we always use the precision we need.
	if n.prec <= ctx.prec {
		for k, v := range ctx.nums {
			n.nums[k] = new(big.Float).SetPrec(n.prec).Set(v)
		}
	}
	// Copy variables. (We always need a copy in case of Set.) If we have the
	// same precision, we can just copy pointers.
	if n.prec == ctx.prec {
		for name, val := range ctx.names {
			n.names[name] = val
		}
	} else {
		for name, val := range ctx.names {
			n.names[name] = new(big.Float).SetPrec(n.prec).Set(val)
		}
	}
	copied := false
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = new(big.Float).SetPrec(n.prec).Set(opt.val)
		case varsopt:
			for k, v := range opt {
				n.names[k] = new(big.Float).SetPrec(n.prec).Set(v)
			}
		case funcopt:
			// The function table is shared until the first change.
			if !copied {
				m := make(map[string]Func, len(n.funcs)+1)
				for k, v := range n.funcs {
					m[k] = v
				}
				n.funcs = m
				copied = true
			}
			if opt.fn == nil {
				delete(n.funcs, opt.name)
			} else {
				n.funcs[opt.name] = opt.fn
			}
		case precopt:
			// Already done. Do nothing.
		default:
			panic("sqlexpr: unknown option type")
		}
	}
	return &n
}

// num gets a possibly cached number from its text.
func (ctx *Context) num(s string) *big.Float {
	if r := ctx.nums[s]; r != nil {
		return r
	}
	r, _, err := new(big.Float).SetPrec(ctx.prec).Parse(s, 0)
	switch {
	case err == nil: // do nothing
	case err.Error() == "exponent overflow",
		strings.HasSuffix(err.Error(), ": value out of range"):
		// There isn't realistically any better way to detect this error.
		// Literals are unsigned, so only the exponent's sign matters.
		r = new(big.Float).SetPrec(ctx.prec)
		if i := strings.IndexAny(s, "eE"); i < 0 || i+1 >= len(s) || s[i+1] != '-' {
			r.SetInf(false)
		}
	default:
		panic("sqlexpr: invalid number: " + s + " (" + err.Error() + ")")
	}
	ctx.nums[s] = r
	return r
}

// Evaluator is a compiler that computes the value of an arithmetic
// expression using a *Context. Comparisons and logical operators produce 1
// for true and 0 for false, and any nonzero operand is true. Bitwise
// operators require integer operands. String literals and the in operator
// are rejected.
type Evaluator struct{}

// Literal converts a numeric literal to the context's precision.
func (Evaluator) Literal(ctx *Context, lit Literal) (*big.Float, error) {
	if lit.Type == String {
		return nil, Errorf("string literal %s is not a number", lit)
	}
	return new(big.Float).SetPrec(ctx.prec).Set(ctx.num(lit.Text)), nil
}

// Variable looks up the value of v by its full name.
func (Evaluator) Variable(ctx *Context, v Variable) (*big.Float, error) {
	r := ctx.Lookup(v.Name)
	if r == nil {
		return nil, &NameError{Name: v.Name}
	}
	return r, nil
}

// Unary applies a prefix operator.
func (Evaluator) Unary(ctx *Context, op string, x *big.Float) (*big.Float, error) {
	switch op {
	case "+":
		return x, nil
	case "-":
		return x.Neg(x), nil
	case "~":
		i, err := integer(x, op)
		if err != nil {
			return nil, err
		}
		return x.SetInt(i.Not(i)), nil
	case "not":
		return truth(x, x.Sign() == 0), nil
	default:
		return nil, Errorf("unknown unary operator %q", op)
	}
}

// Binary applies an infix operator.
func (Evaluator) Binary(ctx *Context, op string, l, r *big.Float) (*big.Float, error) {
	switch op {
	case "+":
		// Guard against inf-inf.
		if l.IsInf() && r.IsInf() && l.Signbit() != r.Signbit() {
			return nil, &DomainError{X: r, Func: op}
		}
		return l.Add(l, r), nil
	case "-":
		if l.IsInf() && r.IsInf() && l.Signbit() == r.Signbit() {
			return nil, &DomainError{X: r, Func: op}
		}
		return l.Sub(l, r), nil
	case "*":
		if l.IsInf() && r.Sign() == 0 || l.Sign() == 0 && r.IsInf() {
			return nil, &DomainError{X: r, Func: op}
		}
		return l.Mul(l, r), nil
	case "/":
		// Guard against invalid divisions, 0/0 or inf/inf.
		if l.Sign() == 0 && r.Sign() == 0 || l.IsInf() && r.IsInf() {
			return nil, &DomainError{X: r, Func: op}
		}
		return l.Quo(l, r), nil
	case "%":
		if l.IsInf() {
			return nil, &DomainError{X: l, Arg: 1, Func: op}
		}
		if r.Sign() == 0 {
			return nil, &DomainError{X: r, Arg: 2, Func: op}
		}
		if r.IsInf() {
			return l, nil
		}
		// Truncated remainder: l - r*trunc(l/r).
		q := new(big.Float).SetPrec(l.Prec()).Quo(l, r)
		t, _ := q.Int(nil)
		q.SetInt(t)
		return l.Sub(l, q.Mul(q, r)), nil
	case "^":
		return pow(l, r)
	case "=", "is":
		return truth(l, l.Cmp(r) == 0), nil
	case "!=", "<>":
		return truth(l, l.Cmp(r) != 0), nil
	case "<":
		return truth(l, l.Cmp(r) < 0), nil
	case "<=":
		return truth(l, l.Cmp(r) <= 0), nil
	case ">":
		return truth(l, l.Cmp(r) > 0), nil
	case ">=":
		return truth(l, l.Cmp(r) >= 0), nil
	case "and":
		return truth(l, l.Sign() != 0 && r.Sign() != 0), nil
	case "or":
		return truth(l, l.Sign() != 0 || r.Sign() != 0), nil
	case "|", "&", "<<", ">>":
		return bitwise(op, l, r)
	default:
		return nil, Errorf("operator %s is not supported in arithmetic", op)
	}
}

// Function calls a function from the context.
func (Evaluator) Function(ctx *Context, fn Variable, args []*big.Float) (*big.Float, error) {
	f := ctx.funcs[fn.Name]
	if f == nil {
		return nil, &NameError{Name: fn.Name, Func: true}
	}
	if !f.CanCall(len(args)) {
		return nil, &CallError{Func: fn.Name, Len: len(args)}
	}
	r := new(big.Float).SetPrec(ctx.prec)
	if err := f.Call(ctx, args, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Finalize returns result.
func (Evaluator) Finalize(ctx *Context, result *big.Float) (*big.Float, error) {
	return result, nil
}

var _ Compiler[*Context, *big.Float] = Evaluator{}

// truth sets z to 1 if t and 0 otherwise.
func truth(z *big.Float, t bool) *big.Float {
	if t {
		return z.SetInt64(1)
	}
	return z.SetInt64(0)
}

// integer converts x to an integer operand for op.
func integer(x *big.Float, op string) (*big.Int, error) {
	if x.IsInf() || !x.IsInt() {
		return nil, &DomainError{X: x, Func: op}
	}
	i, _ := x.Int(nil)
	return i, nil
}

// maxshift limits shift counts so that results remain representable.
const maxshift = 1 << 16

func bitwise(op string, l, r *big.Float) (*big.Float, error) {
	x, err := integer(l, op)
	if err != nil {
		return nil, err
	}
	y, err := integer(r, op)
	if err != nil {
		return nil, &DomainError{X: r, Arg: 2, Func: op}
	}
	switch op {
	case "|":
		x.Or(x, y)
	case "&":
		x.And(x, y)
	case "<<", ">>":
		if y.Sign() < 0 || y.Cmp(big.NewInt(maxshift)) > 0 {
			return nil, &DomainError{X: r, Arg: 2, Func: op}
		}
		if op == "<<" {
			x.Lsh(x, uint(y.Uint64()))
		} else {
			x.Rsh(x, uint(y.Uint64()))
		}
	}
	return l.SetInt(x), nil
}

// pow computes l^r into l. Integer exponents are computed by squaring and
// allow negative bases; other exponents require a nonnegative base.
func pow(l, r *big.Float) (*big.Float, error) {
	if r.IsInt() && !r.IsInf() {
		n, _ := r.Int(nil)
		if n.IsInt64() {
			return powint(l, n.Int64()), nil
		}
		return powhuge(l, n), nil
	}
	if l.Sign() < 0 {
		return nil, &DomainError{X: l, Arg: 1, Func: "^"}
	}
	if l.Sign() == 0 || l.IsInf() {
		// 0^r and inf^r are 0 or inf depending on the sign of r.
		if (l.Sign() == 0) == (r.Sign() > 0) {
			return l.SetInt64(0), nil
		}
		return l.SetInf(false), nil
	}
	if r.IsInf() {
		c := l.Cmp(big.NewFloat(1))
		switch {
		case c == 0:
			return l, nil
		case (c > 0) == (r.Sign() > 0):
			return l.SetInf(false), nil
		default:
			return l.SetInt64(0), nil
		}
	}
	// l^r = exp(r ln l)
	t := bigfloat.Log(new(big.Float).SetPrec(l.Prec()+64), l)
	t.Mul(t, r)
	return exp(l, t), nil
}

// powint computes x^n into x by repeated squaring. Results beyond the range
// of big.Float become 0 or inf.
func powint(x *big.Float, n int64) *big.Float {
	u := uint64(n)
	if n < 0 {
		u = -u
	}
	b := new(big.Float).SetPrec(x.Prec()).Set(x)
	x.SetInt64(1)
	for u > 0 {
		if u&1 != 0 {
			x.Mul(x, b)
		}
		u >>= 1
		if u > 0 {
			b.Mul(b, b)
		}
	}
	if n < 0 {
		x.Quo(new(big.Float).SetPrec(x.Prec()).SetInt64(1), x)
	}
	return x
}

// powhuge computes x^n into x for an integer exponent outside int64. Any base
// other than 0, ±1, or ±inf overflows or underflows.
func powhuge(x *big.Float, n *big.Int) *big.Float {
	neg := x.Signbit() && n.Bit(0) == 1
	c := new(big.Float).Abs(x).Cmp(big.NewFloat(1))
	switch {
	case c == 0:
		x.SetInt64(1)
	case (c > 0) == (n.Sign() > 0):
		x.SetInf(false)
	default:
		x.SetInt64(0)
	}
	if neg {
		x.Neg(x)
	}
	return x
}

// exp computes e^x into z. The argument is reduced by a multiple k of ln 2 so
// that bigfloat.Exp works on a small value, and k is applied as a binary
// exponent.
func exp(z, x *big.Float) *big.Float {
	if z.Prec() == 0 {
		z.SetPrec(x.Prec())
	}
	if x.Sign() == 0 || x.IsInf() {
		return bigfloat.Exp(z, x)
	}
	xf, _ := x.Float64()
	k := math.Round(xf / math.Ln2)
	switch {
	case k > big.MaxExp:
		return z.SetInf(false)
	case k < big.MinExp:
		return z.SetInt64(0)
	}
	prec := z.Prec() + 64
	ln2 := bigfloat.Log(new(big.Float).SetPrec(prec), big.NewFloat(2))
	w := new(big.Float).SetPrec(prec).SetFloat64(k)
	w.Sub(new(big.Float).SetPrec(prec).Set(x), w.Mul(w, ln2))
	w = bigfloat.Exp(new(big.Float).SetPrec(prec), w)
	return z.SetMantExp(w, int(k))
}

// Eval is a shortcut to parse an expression and return its result using the
// default functions.
func Eval(src io.RuneScanner, opts ...ContextOption) (*big.Float, error) {
	ctx := NewContext(opts...)
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return ctx.Eval(a)
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	return Eval(strings.NewReader(src), opts...)
}

// NameError is an error from a lookup for a variable or function that is
// missing from the evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
	// Func indicates that the name was called as a function.
	Func bool
}

func (err *NameError) Error() string {
	if err.Func {
		return "undefined function: " + strconv.Quote(err.Name)
	}
	return "undefined variable: " + strconv.Quote(err.Name)
}

// CallError is an error indicating a function call with the wrong number of
// arguments.
type CallError struct {
	// Func is the function name that was called.
	Func string
	// Len is the number of arguments in the call.
	Len int
}

func (err *CallError) Error() string {
	return "cannot call " + err.Func + " with " + strconv.Itoa(err.Len) + " arguments"
}
