package sqlgen

import (
	"strings"

	"github.com/zephyrtronium/sqlexpr"
)

// Schema describes the names an expression may use. It is the compilation
// context for Compiler.
type Schema struct {
	// Table qualifies single-component column names when it is not empty.
	Table string
	// Columns lists the allowed variable names as written in expressions,
	// e.g. "amount" or "date.year". If nil, every name is allowed.
	Columns []string
	// Functions maps allowed SQL function names to their number of
	// arguments, or -1 for any number. If nil, DefaultFunctions is used.
	Functions map[string]int
}

// DefaultFunctions are the functions allowed when a Schema has none.
var DefaultFunctions = map[string]int{
	"abs":      1,
	"coalesce": -1,
	"length":   1,
	"lower":    1,
	"max":      -1,
	"min":      -1,
	"round":    -1,
	"upper":    1,
}

// Query is a translated expression with its bound parameters.
type Query struct {
	SQL  string
	Args []any
}

// Compiler translates expressions to SQL text. It collects bound parameters
// while compiling, so a Compiler must not be used for concurrent
// compilations.
type Compiler struct {
	Dialect Dialect

	args []any
}

// Build parses src and translates it into SQL.
func (c *Compiler) Build(src string, schema *Schema, opts ...sqlexpr.ParseOption) (Query, error) {
	e, err := sqlexpr.ParseString(src, opts...)
	if err != nil {
		return Query{}, err
	}
	return c.Translate(e, schema)
}

// Translate translates a parsed expression into SQL.
func (c *Compiler) Translate(e *sqlexpr.Expr, schema *Schema) (Query, error) {
	c.args = nil
	s, err := sqlexpr.Compile[*Schema, string](e, c, schema)
	if err != nil {
		c.args = nil
		return Query{}, err
	}
	q := Query{SQL: s, Args: c.args}
	c.args = nil
	return q, nil
}

// Select translates e into a query selecting it from the schema's table.
func (c *Compiler) Select(e *sqlexpr.Expr, schema *Schema) (Query, error) {
	if schema == nil || schema.Table == "" {
		return Query{}, sqlexpr.Errorf("no table to select from")
	}
	q, err := c.Translate(e, schema)
	if err != nil {
		return Query{}, err
	}
	q.SQL = "SELECT " + q.SQL + " FROM " + c.Dialect.QuoteIdent(schema.Table)
	return q, nil
}

// Literal binds lit as a parameter.
func (c *Compiler) Literal(schema *Schema, lit sqlexpr.Literal) (string, error) {
	c.args = append(c.args, lit.Value)
	return c.Dialect.Placeholder(len(c.args)), nil
}

// Variable translates v to a column reference.
func (c *Compiler) Variable(schema *Schema, v sqlexpr.Variable) (string, error) {
	if len(v.Components) > 3 {
		return "", sqlexpr.Errorf("column name %q has too many components", v.Name)
	}
	if schema != nil && schema.Columns != nil && !contains(schema.Columns, v.Name) {
		return "", sqlexpr.Errorf("unknown column %q", v.Name)
	}
	parts := v.Components
	if len(parts) == 1 && schema != nil && schema.Table != "" {
		parts = []string{schema.Table, parts[0]}
	}
	q := make([]string, len(parts))
	for i, p := range parts {
		q[i] = c.Dialect.QuoteIdent(p)
	}
	return strings.Join(q, "."), nil
}

// Unary translates a prefix operator.
func (c *Compiler) Unary(schema *Schema, op string, x string) (string, error) {
	switch op {
	case "+":
		return x, nil
	case "-", "~":
		return "(" + op + x + ")", nil
	case "not":
		return "(NOT " + x + ")", nil
	default:
		return "", sqlexpr.Errorf("unknown operator %q", op)
	}
}

// Binary translates an infix operator.
func (c *Compiler) Binary(schema *Schema, op string, x, y string) (string, error) {
	switch op {
	case "^":
		return "power(" + x + ", " + y + ")", nil
	case "and", "or", "is":
		return "(" + x + " " + strings.ToUpper(op) + " " + y + ")", nil
	case "!=", "<>":
		return "(" + x + " <> " + y + ")", nil
	case "+", "-", "*", "/", "%", "<", "<=", "=", ">=", ">", "|", "&", "<<", ">>":
		return "(" + x + " " + op + " " + y + ")", nil
	default:
		return "", sqlexpr.Errorf("operator %s cannot be translated to SQL", op)
	}
}

// Function translates a call of an allowed SQL function.
func (c *Compiler) Function(schema *Schema, fn sqlexpr.Variable, args []string) (string, error) {
	funcs := DefaultFunctions
	if schema != nil && schema.Functions != nil {
		funcs = schema.Functions
	}
	name := strings.ToLower(fn.Name)
	n, ok := funcs[name]
	if !ok {
		return "", sqlexpr.Errorf("unknown function %q", fn.Name)
	}
	if n >= 0 && n != len(args) {
		return "", sqlexpr.Errorf("function %q takes %d arguments, not %d", fn.Name, n, len(args))
	}
	return name + "(" + strings.Join(args, ", ") + ")", nil
}

// Finalize returns the translated expression.
func (c *Compiler) Finalize(schema *Schema, result string) (string, error) {
	return result, nil
}

func contains(names []string, name string) bool {
	for _, v := range names {
		if v == name {
			return true
		}
	}
	return false
}

var _ sqlexpr.Compiler[*Schema, string] = (*Compiler)(nil)
