package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	_ "modernc.org/sqlite"

	"github.com/zephyrtronium/sqlexpr"
	"github.com/zephyrtronium/sqlexpr/sqlgen"
)

func main() {
	log.SetFlags(0)
	var (
		inname, verb, mode string
		cfgname, lang      string
		dialect, dbname    string
		table              string
		with               [][2]string
		nl, echo, interact bool
		prec               int
	)
	addwith := func(s string) error {
		d := strings.SplitN(s, "=", 2)
		if len(d) != 2 {
			return fmt.Errorf(`variable definitions must be "name=value", not %q`, s)
		}
		with = append(with, [2]string{strings.TrimSpace(d[0]), strings.TrimSpace(d[1])})
		return nil
	}
	flag.StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	flag.StringVar(&verb, "fmt", "%g", "result formatting string")
	flag.StringVar(&mode, "mode", "eval", "what to do with expressions: eval, tree, vars, or sql")
	flag.Func("given", "name=value variable definition (any number of times)", addwith)
	flag.IntVar(&prec, "p", 64, "precision of calculations in bits")
	flag.BoolVar(&nl, "n", false, "parse separate input lines as separate expressions")
	flag.BoolVar(&echo, "echo", false, "print parse trees")
	flag.StringVar(&cfgname, "config", "", "YAML file with variables, allowed names, and SQL settings")
	flag.StringVar(&dialect, "dialect", "", "SQL dialect: sqlite, postgres, or mysql (default sqlite)")
	flag.StringVar(&dbname, "db", "", "SQLite database to run translated expressions against")
	flag.StringVar(&table, "table", "", "table to select from in sql mode")
	flag.StringVar(&lang, "lang", "", "language for formatting results, e.g. de or en-US")
	flag.BoolVar(&interact, "i", false, "read expressions interactively")
	flag.Parse()

	cfg := new(config)
	if cfgname != "" {
		var err error
		cfg, err = loadConfig(cfgname)
		if err != nil {
			log.Fatal(err)
		}
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["p"] && cfg.Precision != 0 {
		prec = int(cfg.Precision)
	}
	if prec < 0 {
		log.Fatalf("precision (%d) must be positive", prec)
	}
	if dialect == "" {
		dialect = cfg.SQL.Dialect
	}
	if dbname == "" {
		dbname = cfg.SQL.DB
	}
	if table == "" {
		table = cfg.SQL.Table
	}
	switch mode {
	case "eval", "tree", "vars", "sql":
	default:
		log.Fatalf("unknown mode %q", mode)
	}

	s := &session{
		mode:  mode,
		verb:  verb,
		echo:  echo,
		allow: cfg.Allow,
		ctx:   sqlexpr.NewContext(sqlexpr.Prec(uint(prec))),
		schema: &sqlgen.Schema{
			Table:     table,
			Columns:   cfg.SQL.Columns,
			Functions: cfg.SQL.Functions,
		},
	}
	if dialect != "" {
		d, err := sqlgen.ParseDialect(dialect)
		if err != nil {
			log.Fatal(err)
		}
		s.gen.Dialect = d
	}
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			log.Fatal(errors.Wrapf(err, "parsing language %q", lang))
		}
		s.printer = message.NewPrinter(tag)
	}
	if dbname != "" {
		db, err := openDB(dbname)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		s.db = db
	}

	for nm, vl := range cfg.Given {
		with = append([][2]string{{nm, vl}}, with...)
	}
	for _, d := range with {
		nm := d[0]
		vl := d[1]
		r, err := sqlexpr.EvalString(vl, sqlexpr.Prec(uint(prec)))
		if err != nil {
			log.Fatalf("setting %s: %v", nm, err)
		}
		s.ctx.Set(nm, r)
	}

	if interact {
		if err := repl(s); err != nil {
			log.Fatal(err)
		}
		return
	}

	var ins []io.RuneScanner
	f, err := infile(inname, flag.NArg() == 0)
	if err != nil {
		log.Fatal(err)
	}
	if f != nil {
		ins = append(ins, f)
	}
	for _, arg := range flag.Args() {
		ins = append(ins, strings.NewReader(arg))
	}

	var p []*sqlexpr.Expr
	var opts []sqlexpr.ParseOption
	if nl {
		opts = append(opts, sqlexpr.StopOn('\n'))
	}
	for _, in := range ins {
		for {
			// First check whether we're done with the input.
			if _, _, err := in.ReadRune(); err != nil {
				if err == io.EOF {
					break
				}
				log.Fatal(err)
			}
			in.UnreadRune()
			a, err := sqlexpr.Parse(in, opts...)
			if err != nil {
				log.Fatal(err)
			}
			p = append(p, a)
		}
	}

	for _, a := range p {
		if err := s.run(os.Stdout, a); err != nil {
			fmt.Println(err)
		}
	}
}

// session holds everything needed to run expressions in one mode.
type session struct {
	mode    string
	verb    string
	echo    bool
	allow   *sqlexpr.Allowlist
	ctx     *sqlexpr.Context
	gen     sqlgen.Compiler
	schema  *sqlgen.Schema
	db      *sql.DB
	printer *message.Printer
}

// run handles one expression according to the session's mode.
func (s *session) run(w io.Writer, a *sqlexpr.Expr) error {
	if s.echo {
		fmt.Fprintf(w, "%v : ", a)
	}
	if s.allow != nil {
		if _, err := sqlexpr.Compile[*sqlexpr.Allowlist, sqlexpr.Node](a, sqlexpr.Validator{}, s.allow); err != nil {
			return err
		}
	}
	switch s.mode {
	case "tree":
		n, err := sqlexpr.Compile[any, sqlexpr.Node](a, sqlexpr.Base[any]{}, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)
	case "vars":
		var c sqlexpr.Collector
		if _, err := sqlexpr.Compile[any, sqlexpr.Node](a, &c, nil); err != nil {
			return err
		}
		fmt.Fprintf(w, "variables: %s\n", names(c.Variables()))
		fmt.Fprintf(w, "functions: %s\n", names(c.Functions()))
	case "sql":
		return s.sql(w, a)
	default:
		r, err := s.ctx.Eval(a)
		if err != nil {
			return err
		}
		s.print(w, r)
	}
	return nil
}

// sql translates an expression and runs it if there is a database.
func (s *session) sql(w io.Writer, a *sqlexpr.Expr) error {
	if s.db == nil {
		q, err := s.gen.Translate(a, s.schema)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, q.SQL)
		if len(q.Args) > 0 {
			fmt.Fprintln(w, q.Args...)
		}
		return nil
	}
	q, err := s.gen.Select(a, s.schema)
	if err != nil {
		return err
	}
	rows, err := s.db.Query(q.SQL, q.Args...)
	if err != nil {
		return errors.Wrapf(err, "running %s", q.SQL)
	}
	defer rows.Close()
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return errors.Wrap(err, "reading result")
		}
		if s.printer != nil {
			s.printer.Fprintln(w, v)
		} else {
			fmt.Fprintln(w, v)
		}
	}
	return errors.Wrap(rows.Err(), "reading results")
}

func (s *session) print(w io.Writer, r *big.Float) {
	if s.printer == nil {
		fmt.Fprintf(w, s.verb+"\n", r)
		return
	}
	// Localized formatting works on machine floats.
	f, _ := r.Float64()
	s.printer.Fprintf(w, s.verb+"\n", f)
}

func names(vs []sqlexpr.Variable) string {
	r := make([]string, len(vs))
	for i, v := range vs {
		r[i] = v.Name
	}
	return strings.Join(r, " ")
}

func openDB(name string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	return db, nil
}

func infile(inname string, std bool) (io.RuneScanner, error) {
	var f *os.File
	switch {
	case inname != "" && inname != "-":
		in, err := os.Open(inname)
		if err != nil {
			return nil, errors.Wrap(err, "opening input")
		}
		f = in
	case inname == "-", std:
		f = os.Stdin
	}
	if f == nil {
		return nil, nil
	}
	return bufio.NewReader(f), nil
}
