package sqlexpr

import "strconv"

// Allowlist restricts the names an expression may use.
type Allowlist struct {
	// Variables lists the allowed variable names. If nil, every variable is
	// allowed.
	Variables []string
	// Functions lists the allowed function names. If nil, every function is
	// allowed.
	Functions []string
	// Arity gives the number of arguments required by functions. Functions
	// not in Arity may be called with any number of arguments.
	Arity map[string]int
}

// Validator is a compiler that rejects expressions using names outside an
// Allowlist given as the compilation context. A nil Allowlist allows every
// name. Accepted expressions compile as with Base.
type Validator struct {
	Base[*Allowlist]
}

// Variable rejects v if it is not allowed.
func (Validator) Variable(ctx *Allowlist, v Variable) (Node, error) {
	if ctx != nil && ctx.Variables != nil && !contains(ctx.Variables, v.Name) {
		return nil, Errorf("variable %q is not allowed", v.Name)
	}
	return v, nil
}

// Function rejects fn if it is not allowed or if it is called with the wrong
// number of arguments.
func (Validator) Function(ctx *Allowlist, fn Variable, args []Node) (Node, error) {
	if ctx != nil {
		if ctx.Functions != nil && !contains(ctx.Functions, fn.Name) {
			return nil, Errorf("function %q is not allowed", fn.Name)
		}
		if n, ok := ctx.Arity[fn.Name]; ok && n != len(args) {
			return nil, Errorf("function %q takes %s, not %d", fn.Name, plural(n, "argument"), len(args))
		}
	}
	return &FunctionCall{Func: fn, Args: args}, nil
}

// Validate parses src and checks it against allow.
func Validate(src string, allow *Allowlist, opts ...ParseOption) (Node, error) {
	return CompileString[*Allowlist, Node](src, Validator{}, allow, opts...)
}

func contains(names []string, name string) bool {
	for _, v := range names {
		if v == name {
			return true
		}
	}
	return false
}

func plural(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}

var _ Compiler[*Allowlist, Node] = Validator{}
