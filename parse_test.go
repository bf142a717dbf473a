package sqlexpr

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"
)

// diff finds the first in-order node of n that differs from m, or nil, nil if
// the two ASTs are equal. If any node is nodeNone, it is returned.
func (n *node) diff(m *node) (*node, *node) {
	if n == nil {
		if m != nil {
			return n, m
		}
		return nil, nil
	}
	if m == nil {
		return n, m
	}
	if n.kind == nodeNone || m.kind == nodeNone {
		return n, m
	}
	if n.kind != m.kind {
		return n, m
	}
	switch n.kind {
	case nodeLit:
		if n.lit.Type != m.lit.Type || n.lit.Value != m.lit.Value {
			return n, m
		}
	case nodeVar:
		if !reflect.DeepEqual(n.ref, m.ref) {
			return n, m
		}
	case nodeUnary:
		if n.op != m.op {
			return n, m
		}
		if d, e := n.left.diff(m.left); d != nil || e != nil {
			return d, e
		}
	case nodeBinary:
		if n.op != m.op {
			return n, m
		}
		if d, e := n.left.diff(m.left); d != nil || e != nil {
			return d, e
		}
		if d, e := n.right.diff(m.right); d != nil || e != nil {
			return d, e
		}
	case nodeCall:
		if !reflect.DeepEqual(n.ref, m.ref) || len(n.args) != len(m.args) {
			return n, m
		}
		for i := range n.args {
			if d, e := n.args[i].diff(m.args[i]); d != nil || e != nil {
				return d, e
			}
		}
	default:
		panic(fmt.Errorf("invalid node kind: n=%+v m=%+v", n, m))
	}
	return nil, nil
}

// haskind checks whether a parse tree contains a node of the given type.
func (n *node) haskind(k nodeKind) bool {
	if n == nil {
		return false
	}
	if n.kind == k {
		return true
	}
	for _, arg := range n.args {
		if arg.haskind(k) {
			return true
		}
	}
	if n.left.haskind(k) {
		return true
	}
	return n.right.haskind(k)
}

func TestOpPrecsExist(t *testing.T) {
	for _, r := range Operators {
		if r == '!' {
			// Only part of !=.
			continue
		}
		b := binop(string(r))
		u := unop(string(r))
		if b.op == nodeNone && u.op == nodeNone {
			t.Errorf("no operator for %c", r)
		}
	}
	for _, ops := range twochar {
		for _, op := range ops {
			if binop(op).op == nodeNone {
				t.Errorf("no operator for %s", op)
			}
		}
	}
	for _, kw := range Keywords {
		if binop(kw).op == nodeNone && unop(kw).op == nodeNone {
			t.Errorf("no operator for %s", kw)
		}
	}
}

func TestParseTrees(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"paren", "(x)", "x"},
		{"multi", "((((x))))", "x"},

		{"plus", "+x", "(+(x))"},
		{"neg", "-x", "(-(x))"},
		{"negnum", "-1", "(-(1))"},
		{"add", "x+y", "((x)+(y))"},
		{"sub", "x-y", "((x)-(y))"},
		{"mul", "x*y", "((x)*(y))"},
		{"div", "x/y", "((x)/(y))"},
		{"mod", "x%y", "((x)%(y))"},
		{"pow", "x^y", "((x)^(y))"},

		{"call0", "f()", "(f())"},
		{"call0-space", "f ()", "f()"},
		{"call2", "f(a, b)", "f((a), (b))"},
		{"callexpr", "f(a + b, c) * d", "(f((a + b), c)) * d"},
		{"callnested", "f(g(x), h())", "f((g(x)), (h()))"},

		{"add4", "w+x+y+z", "((w+x)+y)+z"},
		{"sub4", "w-x-y-z", "((w-x)-y)-z"},
		{"mul4", "w*x*y*z", "((w*x)*y)*z"},
		{"div4", "w/x/y/z", "((w/x)/y)/z"},
		{"pow4", "w^x^y^z", "w^(x^(y^z))"},

		{"negpow", "-1^n", "-(1^n)"},
		{"desc", "w^x*y+z", "((w^x)*y)+z"},
		{"asc", "w+x*y^z", "w+(x*(y^z))"},
		{"descasc", "w^x*y+z+a*b^c", "(((w^x)*y)+z)+a*(b^c)"},
		{"ascdesc", "w+x*y^z^a*b+c", "w+((x*(y^(z^a)))*b)+c"},
		{"negneg", "--x", "-(-x)"},
		{"negsub", "-x-x", "(-x)-x"},
		{"negmul", "-a*b", "(-a)*b"},
		{"powneg", "x^-1", "x^(-1)"},
		{"pownegpow", "x^-y^-z", "x^(-(y^(-z)))"},
		{"pownegneg", "x^--y", "x^(-(-y))"},
		{"compl", "~a % 2", "(~a) % 2"},

		{"shift", "1 << 2 + 3", "1 << (2 + 3)"},
		{"bitor", "a | b & c", "a | (b & c)"},
		{"bitcmp", "a | b = c", "(a | b) = c"},
		{"cmp", "a < b + 1", "a < (b + 1)"},
		{"cmpchain", "a = b = c", "(a = b) = c"},
		{"ne", "a <> b != c", "(a <> b) != c"},
		{"in", "a in b", "(a) in (b)"},
		{"is", "a is b and c", "(a is b) and c"},

		{"andor", "a or b and c", "a or (b and c)"},
		{"orand", "a and b or c", "(a and b) or c"},
		{"not", "not a and b", "(not a) and b"},
		{"notcmp", "not a = b", "not (a = b)"},
		{"cmpnot", "a = not b", "a = (not b)"},
		{"notnot", "not not a", "not (not a)"},
		{"upper", "A AND NOT B", "A and (not B)"},

		{"dotted", "date.year = 2010", "(date.year) = (2010)"},
		{"strings", `'x' = "x"`, `("x") = ('x')`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := ParseString(c.a)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.a, err)
			}
			b, err := ParseString(c.b)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", c.b, err)
			}
			d, e := a.n.diff(b.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\t%q parses %v has %v\n\t%q parses %v has %v", c.a, a.n, d, c.b, b.n, e)
			}
		})
	}
}

func TestParseExact(t *testing.T) {
	cases := []struct {
		name string
		src  string
		n    *node
	}{
		{
			name: "int",
			src:  "42",
			n:    &node{kind: nodeLit, lit: IntLit(42)},
		},
		{
			name: "float",
			src:  "2.5e1",
			n:    &node{kind: nodeLit, lit: Literal{Type: Float, Value: 25.0}},
		},
		{
			name: "string",
			src:  `'it\'s'`,
			n:    &node{kind: nodeLit, lit: StringLit("it's")},
		},
		{
			name: "dotted",
			src:  "date.year",
			n:    &node{kind: nodeVar, ref: NewVariable("date", "year")},
		},
		{
			name: "call",
			src:  "sum(amount)",
			n: &node{
				kind: nodeCall,
				ref:  NewVariable("sum"),
				args: []*node{
					{kind: nodeVar, ref: NewVariable("amount")},
				},
			},
		},
		{
			name: "niladic",
			src:  "now()",
			n:    &node{kind: nodeCall, ref: NewVariable("now")},
		},
		{
			name: "bare",
			src:  "sum",
			n:    &node{kind: nodeVar, ref: NewVariable("sum")},
		},
		{
			name: "keyword",
			src:  "a Or b",
			n: &node{
				kind:  nodeBinary,
				op:    "or",
				left:  &node{kind: nodeVar, ref: NewVariable("a")},
				right: &node{kind: nodeVar, ref: NewVariable("b")},
			},
		},
		{
			name: "unary",
			src:  "-x",
			n: &node{
				kind: nodeUnary,
				op:   "-",
				left: &node{kind: nodeVar, ref: NewVariable("x")},
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := ParseString(c.src)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			d, e := a.n.diff(c.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\twant %v which has %v\n\tgot  %v which has %v from %q", c.n, e, a.n, d, c.src)
			}
		})
	}
}

func TestExprString(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"paren", "(x)", "x"},
		{"neg", "-x", "(-x)"},
		{"add", "x+y", "(x + y)"},
		{"prec", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"negpow", "-2^2", "(-(2 ^ 2))"},
		{"not", "NOT a AND b", "((not a) and b)"},
		{"ne", "x<>y", "(x <> y)"},
		{"call", "f() + g(1, 'x')", `(f() + g(1, "x"))`},
		{"float", "1e3 + 2.50", "(1e3 + 2.50)"},
		{"dotted", "date.year=2010", "(date.year = 2010)"},
		{"escape", `'a\nb'`, `"a\nb"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := ParseString(c.src)
			if err != nil {
				t.Fatalf("%q failed to parse: %v", c.src, err)
			}
			s := a.String()
			if s != c.want {
				t.Errorf("%q formats as %q, want %q", c.src, s, c.want)
			}
			b, err := ParseString(s)
			if err != nil {
				t.Fatalf("%q -> %q failed to parse: %v", c.src, s, err)
			}
			d, e := a.n.diff(b.n)
			if d != nil || e != nil {
				t.Errorf("mismatched AST:\n\t%q parses %v has %v\n\t%q parses %v has %v", c.src, a.n, d, s, b.n, e)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		err  InputError
		res  []string
	}{
		{"empty", "", new(SyntaxError), []string{`^1: `, `\boperand\b`, `\bend of input\b`}},
		{"emptyparen", "()", new(SyntaxError), []string{`^2: `, `\boperand\b`, `"\)"`}},
		{"emptyoperand", "a +", new(SyntaxError), []string{`^4: `, `\boperand\b`, `\bend of input\b`}},
		{"emptyunary", "x*-", new(SyntaxError), []string{`\boperand\b`, `\bend of input\b`}},
		{"nonunary", "*x", new(SyntaxError), []string{`^1: `, `\boperand\b`, `"\*"`}},
		{"left", "(a + b", new(SyntaxError), []string{`^7: `, `open parenthesis at 1\b`}},
		{"right", "a)", new(SyntaxError), []string{`^2: `, `close parenthesis with no open`}},
		{"onlyright", ")", new(SyntaxError), []string{`^1: `, `\boperand\b`, `"\)"`}},
		{"juxtaposed", "1 2", new(SyntaxError), []string{`^3: `, `expected operator, found "2"`}},
		{"juxtaposedparen", "1 (b)", new(SyntaxError), []string{`^3: `, `\boperator\b`}},
		{"notbinary", "a not b", new(SyntaxError), []string{`^3: `, `expected binary operator, found "not"`}},
		{"sep", "x, y", new(SyntaxError), []string{`^2: `, `\bend of input\b`, `","`}},
		{"sepparen", "(x, y)", new(SyntaxError), []string{`^3: `, `","`}},
		{"emptyarg", "f(a,,b)", new(SyntaxError), []string{`^5: `, `\bempty argument\b`, `","`}},
		{"trailingsep", "f(a,)", new(SyntaxError), []string{`^5: `, `\bempty argument\b`, `"\)"`}},
		{"leadingsep", "f(,a)", new(SyntaxError), []string{`^3: `, `\bempty argument\b`}},
		{"unclosedcall", "f(a", new(SyntaxError), []string{`^4: `, `open parenthesis at 2\b`}},
		{"unclosedcall0", "f(", new(SyntaxError), []string{`^3: `, `\boperand\b`}},
		{"lexer", "2^exp(-$)", new(LexError), []string{`\$`}},
		{"badnumber", "a + 1.2.3", new(LexError), []string{`\bnumber\b`, `1\.2\.`}},
		{"unterminated", "'abc", new(LexError), []string{`\bstring\b`}},
		{"bang", "a ! b", new(LexError), []string{`\boperator\b`}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := ParseString(c.src)
			if a != nil {
				t.Errorf("%q parsed non-nil to %v", c.src, a.n)
			}
			if reflect.TypeOf(err) != reflect.TypeOf(c.err) {
				t.Errorf("wrong error type from %q: want %T, got %T", c.src, c.err, err)
			}
			if err == nil {
				return
			}
			msg := err.Error()
			for _, re := range c.res {
				if !regexp.MustCompile(re).MatchString(msg) {
					t.Errorf("error message %q does not match %s", msg, re)
				}
			}
		})
	}
}

func TestVarsFuncs(t *testing.T) {
	a, err := ParseString("f(b.c, a) + a * g() - f(z)")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := a.Vars(), []string{"a", "b.c", "z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("wrong vars: want %q, got %q", want, got)
	}
	if got, want := a.Funcs(), []string{"f", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("wrong funcs: want %q, got %q", want, got)
	}
}

func TestStopOn(t *testing.T) {
	cases := []struct {
		name string
		src  string
		stop string
		want []string
	}{
		{"newline", "x\nx", "\n", []string{"x", "x"}},
		{"comma", "x,x", ",", []string{"x", "x"}},
		{"num", "1\n1", "\n", []string{"1", "1"}},
		{"multinl", "x\n\nx", "\n", []string{"x", "x"}},
		{"continued", "1 +\n2\n3", "\n", []string{"(1 + 2)", "3"}},
		{"var", "f\n(x)", "\n", []string{"f", "x"}},
		{"parens", "(a\n+ b)\nc", "\n", []string{"(a + b)", "c"}},
		{"args", "f(a,\nb), c", "\n,", []string{"f(a, b)", "c"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := strings.NewReader(c.src)
			for i, want := range c.want {
				a, err := Parse(src, StopOn([]rune(c.stop)...))
				if err != nil {
					t.Fatalf("%q iter %d didn't parse: %v", c.src, i, err)
				}
				if got := a.String(); got != want {
					t.Errorf("%q iter %d: want %q, got %q", c.src, i, want, got)
				}
			}
			a, err := Parse(src, StopOn([]rune(c.stop)...))
			if _, ok := err.(*SyntaxError); !ok {
				t.Errorf("%q after %d iters parsed with error %#v and expression %v", c.src, len(c.want), err, a)
			}
		})
	}
}

func TestStopOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("StopOn(';') did not panic")
		}
	}()
	StopOn(';')
}

func TestMaxDepth(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		depth int
		ok    bool
	}{
		{"shallow", "((a))", 3, true},
		{"deep", "(((a)))", 3, false},
		{"unary", "---a", 3, false},
		{"unlimited", strings.Repeat("(", 5000) + "a" + strings.Repeat(")", 5000), 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseString(c.src, MaxDepth(c.depth))
			if c.ok {
				if err != nil {
					t.Errorf("%q failed to parse: %v", c.src, err)
				}
				return
			}
			if _, ok := err.(*SyntaxError); !ok {
				t.Fatalf("wrong error: want *SyntaxError, got %#v", err)
			}
			if !regexp.MustCompile(`\bnested more than 3 deep\b`).MatchString(err.Error()) {
				t.Errorf("wrong message %q", err.Error())
			}
		})
	}

	src := strings.Repeat("(", DefaultMaxDepth+1) + "a" + strings.Repeat(")", DefaultMaxDepth+1)
	if _, err := ParseString(src); err == nil {
		t.Errorf("no error nesting %d deep by default", DefaultMaxDepth+1)
	}
}

func BenchmarkParse(b *testing.B) {
	cases := []struct {
		name string
		src  string
	}{
		{"descasc", "w^x*y+z+a*b^c"},
		{"descasc-parens", "(((w^x)*y)+z)+a*(b^c)"},
		{"ascdesc", "w+x*y^z^a*b+c"},
		{"ascdesc-parens", "w+((x*(y^(z^a)))*b)+c"},
		{"descasc-nums", "1^1.1*1.1e1+1.1e-1+.1*2^3"},
		{"logic", "a.b = 1 and not c or d <> 'x'"},
		{"call0", "f()"},
		{"call5", "f(a, b, c, d, e)"},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			var src strings.Reader
			for i := 0; i < b.N; i++ {
				src.Reset(c.src)
				Parse(&src)
			}
		})
	}
}
