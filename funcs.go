package sqlexpr

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function from reals to reals, called by Evaluator. The function
// should set r to its result and should not use the value of r otherwise.
type Func interface {
	// Call evaluates the function. The function arguments are passed in
	// invoc, which has a length for which CanCall returned true. The function
	// may but generally should not look up variables. Call may modify the
	// elements of invoc.
	Call(ctx *Context, invoc []*big.Float, r *big.Float) error

	// CanCall returns whether the function can be called with n arguments.
	// Evaluator rejects calls with other numbers of arguments with a
	// *CallError.
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"exp": Monadic(exp),
	"ln": Monadic(func(out, in *big.Float) *big.Float {
		if in.Sign() <= 0 {
			panic(big.ErrNaN{})
		}
		return bigfloat.Log(out, in)
	}),
	"log":  logfn{},
	"sqrt": Monadic((*big.Float).Sqrt),
	"abs":  Monadic((*big.Float).Abs),
	"min":  extremum(-1),
	"max":  extremum(1),

	// constants
	"pi": Niladic(bigfloat.Pi),
	"e": Niladic(func(out *big.Float) *big.Float {
		var one big.Float
		one.SetFloat64(1)
		return exp(out, &one)
	}),
}

// DefaultFuncs returns the names of the functions available in a new Context.
func DefaultFuncs() []string {
	names := make([]string, 0, len(globalfuncs))
	for k := range globalfuncs {
		names = append(names, k)
	}
	sortstrs(names)
	return names
}

type monadic struct {
	f func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []*big.Float, r *big.Float) (err error) {
	in := invoc[0]
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = r.(error) // panic if not error
		if errors.As(err, new(*DomainError)) || errors.As(err, &big.ErrNaN{}) {
			err = &DomainError{X: in, Arg: 1}
			return
		}
		panic(err)
	}()
	r.SetPrec(ctx.Prec())
	m.f(r, in)
	return nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of in; its return value is always ignored. If f is
// called on an argument outside f's domain, it should panic with an error of
// type big.ErrNaN, or that unwraps to it.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return monadic{f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []*big.Float, r *big.Float) (err error) {
	r.SetPrec(ctx.Prec())
	n.f(r)
	return nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return niladic{f}
}

// logfn is log(x) in base 10 or log(x, b) in base b. Like ln, log of +inf
// is +inf.
type logfn struct{}

func (logfn) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	for i, x := range invoc {
		if x.Sign() <= 0 {
			return &DomainError{X: x, Arg: i + 1, Func: "log"}
		}
	}
	base := new(big.Float).SetPrec(ctx.Prec()).SetFloat64(10)
	if len(invoc) == 2 {
		b := invoc[1]
		if b.Cmp(big.NewFloat(1)) == 0 || b.IsInf() && invoc[0].IsInf() {
			return &DomainError{X: b, Arg: 2, Func: "log"}
		}
		base.Set(b)
	}
	r.SetPrec(ctx.Prec())
	bigfloat.Log(r, invoc[0])
	bigfloat.Log(base, base)
	r.Quo(r, base)
	return nil
}

func (logfn) CanCall(n int) bool {
	return n == 1 || n == 2
}

// extremum is min for a negative sign and max for a positive one.
type extremum int

func (e extremum) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	m := invoc[0]
	for _, x := range invoc[1:] {
		if x.Cmp(m)*int(e) > 0 {
			m = x
		}
	}
	r.SetPrec(ctx.Prec()).Set(m)
	return nil
}

func (extremum) CanCall(n int) bool {
	return n > 0
}

// DomainError is an error returned when a function is called on arguments
// outside its domain.
type DomainError struct {
	// X is the out-of-domain argument.
	X *big.Float
	// Arg is the 1-based index of the argument.
	Arg int
	// Func is a name identifying the function.
	Func string
}

func (err *DomainError) Error() string {
	r := err.X.String() + " outside domain"
	if err.Func != "" {
		r += " of " + err.Func
	}
	if err.Arg > 0 {
		r += " (argument " + strconv.Itoa(err.Arg) + ")"
	}
	return r
}
