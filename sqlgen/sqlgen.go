// Package sqlgen translates expressions into SQL.
//
// Variables become column references, literals become bound parameters, and
// operators and functions become their SQL spellings. The result can be used
// in a select list or WHERE clause with database/sql.
package sqlgen

import (
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects identifier quoting and parameter placeholders.
type Dialect int

const (
	// SQLite quotes identifiers with double quotes and uses ? placeholders.
	SQLite Dialect = iota
	// Postgres quotes identifiers with double quotes and uses $n placeholders.
	Postgres
	// MySQL quotes identifiers with backticks and uses ? placeholders.
	MySQL
)

var dialectNames = map[string]Dialect{
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"mysql":      MySQL,
}

// ParseDialect gets a dialect by name.
func ParseDialect(name string) (Dialect, error) {
	d, ok := dialectNames[strings.ToLower(name)]
	if !ok {
		return 0, &DialectError{Name: name}
	}
	return d, nil
}

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "unknown"
	}
}

// QuoteIdent quotes a single identifier.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case Postgres:
		return pq.QuoteIdentifier(name)
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// Placeholder returns the placeholder for the nth bound parameter, counting
// from 1.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DialectError is an error for an unknown dialect name.
type DialectError struct {
	Name string
}

func (err *DialectError) Error() string {
	return "unknown SQL dialect " + strconv.Quote(err.Name)
}
