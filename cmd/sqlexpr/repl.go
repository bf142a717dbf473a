package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/zephyrtronium/sqlexpr"
)

const prompt = "> "

// repl reads expressions from the terminal until EOF. Lines starting with a
// colon are commands:
//
//	:mode eval|tree|vars|sql
//	:set name expression
//	:vars
func repl(s *session) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	history := filepath.Join(os.TempDir(), ".sqlexpr_history")
	if f, err := os.Open(history); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(history); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt(prompt)
		switch err {
		case nil:
		case liner.ErrPromptAborted:
			continue
		case io.EOF:
			fmt.Println()
			return nil
		default:
			return errors.Wrap(err, "reading input")
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if err := s.command(os.Stdout, input); err != nil {
			fmt.Println(err)
		}
	}
}

// command runs one line of interactive input.
func (s *session) command(w io.Writer, input string) error {
	if !strings.HasPrefix(input, ":") {
		e, err := sqlexpr.ParseString(input)
		if err != nil {
			return err
		}
		return s.run(w, e)
	}
	cmd, arg, _ := strings.Cut(input[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "mode":
		switch arg {
		case "eval", "tree", "vars", "sql":
			s.mode = arg
			return nil
		}
		return fmt.Errorf("unknown mode %q", arg)
	case "set":
		name, src, ok := strings.Cut(arg, " ")
		if !ok {
			return errors.New(":set needs a name and an expression")
		}
		e, err := sqlexpr.ParseString(src)
		if err != nil {
			return err
		}
		r, err := s.ctx.Eval(e)
		if err != nil {
			return errors.Wrapf(err, "setting %s", name)
		}
		s.ctx.Set(name, r)
		return nil
	case "vars":
		for _, name := range s.ctx.Names() {
			fmt.Fprintf(w, "%s = %g\n", name, s.ctx.Lookup(name))
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// complete suggests names for the word at the end of line.
func (s *session) complete(line string) []string {
	i := strings.LastIndexAny(line, " \t()+-*/%^<>=|&~!,") + 1
	prefix, word := line[:i], line[i:]
	if word == "" {
		return nil
	}
	var words []string
	words = append(words, s.ctx.Names()...)
	words = append(words, sqlexpr.DefaultFuncs()...)
	words = append(words, sqlexpr.Keywords...)
	if s.mode == "sql" {
		words = append(words, s.schema.Columns...)
	}
	var r []string
	for _, w := range words {
		if strings.HasPrefix(w, word) {
			r = append(r, prefix+w)
		}
	}
	return r
}
