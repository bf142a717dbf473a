// Package sqlexpr compiles a small SQL-flavored expression language into
// values chosen by the caller.
//
// Expressions are arithmetic and logical formulas over numbers, strings,
// variables, and function calls, like "min(a, b) * 2" or
// "date.year = 2010 and amount > 10". Dotted names are single variables;
// "date.year" names one variable with two components. A name followed by a
// parenthesized argument list is a function call.
//
// Parse turns text into an Expr with all operator precedence resolved.
// Compile then walks the Expr and calls one hook of a Compiler for each
// node, children first and left to right, passing along a context value of
// the caller's choosing. Base builds a plain tree of Node values, Collector
// records the names an expression uses, Validator rejects names outside an
// Allowlist, and Evaluator computes arbitrary-precision results. Package
// sqlgen translates expressions to SQL.
//
// From loosest to tightest binding, the operators are or, and, not,
// comparisons (< <= = != <> >= > in is), |, &, << >>, + -, * / %, prefix
// + - ~, and ^. All binary operators are left-associative except ^, which
// is right-associative. ^ binds more tightly than a prefix operator to its
// left, so "-2^2" is "-(2^2)".
//
package sqlexpr
