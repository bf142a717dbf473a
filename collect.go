package sqlexpr

// Collector is a compiler that records every distinct variable and function
// referenced by the expressions it compiles. Other than recording, it
// behaves like Base. A Collector accumulates across compilations until
// Reset, and it is not safe for concurrent use.
type Collector struct {
	Base[any]

	vars, funcs   []Variable
	seenv, seenfn map[string]bool
}

// Variable records v.
func (c *Collector) Variable(ctx any, v Variable) (Node, error) {
	if c.seenv == nil {
		c.seenv = make(map[string]bool)
	}
	if !c.seenv[v.Name] {
		c.seenv[v.Name] = true
		c.vars = append(c.vars, v)
	}
	return v, nil
}

// Function records fn.
func (c *Collector) Function(ctx any, fn Variable, args []Node) (Node, error) {
	if c.seenfn == nil {
		c.seenfn = make(map[string]bool)
	}
	if !c.seenfn[fn.Name] {
		c.seenfn[fn.Name] = true
		c.funcs = append(c.funcs, fn)
	}
	return c.Base.Function(ctx, fn, args)
}

// Variables returns the variables seen in order of first appearance.
func (c *Collector) Variables() []Variable {
	return append(([]Variable)(nil), c.vars...)
}

// Functions returns the functions seen in order of first appearance.
func (c *Collector) Functions() []Variable {
	return append(([]Variable)(nil), c.funcs...)
}

// Reset forgets all recorded names.
func (c *Collector) Reset() {
	c.vars, c.funcs = nil, nil
	c.seenv, c.seenfn = nil, nil
}

// Identifiers returns the variables and functions referenced in src.
func Identifiers(src string, opts ...ParseOption) (vars, funcs []Variable, err error) {
	var c Collector
	if _, err := CompileString[any, Node](src, &c, nil, opts...); err != nil {
		return nil, nil, err
	}
	return c.Variables(), c.Functions(), nil
}

var _ Compiler[any, Node] = (*Collector)(nil)
