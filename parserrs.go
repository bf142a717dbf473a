package sqlexpr

import (
	"strconv"
)

// SyntaxError is an error indicating a token sequence that does not form an
// expression. It implements InputError.
type SyntaxError struct {
	// Col is the position of the offending token.
	Col int
	// Expected describes what the parser needed at Col. It may be empty.
	Expected string
	// Found describes the token that was there instead.
	Found string
	// Msg is an optional summary of the problem.
	Msg string
}

func (err *SyntaxError) Error() string {
	var s string
	if err.Expected != "" {
		s = "expected " + err.Expected + ", found " + err.Found
	}
	switch {
	case err.Msg == "":
		return errpos(err.Col, s)
	case s == "":
		return errpos(err.Col, err.Msg)
	default:
		return errpos(err.Col, err.Msg+" ("+s+")")
	}
}

func (err *SyntaxError) Pos() int {
	return err.Col
}

// unexpected creates an error for a token the parser cannot use here.
func unexpected(tok lexToken, expected string) error {
	return &SyntaxError{Col: tok.pos, Expected: expected, Found: describe(tok)}
}

// unclosed creates an error for a parenthesized group or argument list that
// ends with end instead of a close parenthesis.
func unclosed(open, end lexToken) error {
	return &SyntaxError{
		Col:      end.pos,
		Expected: `")"`,
		Found:    describe(end),
		Msg:      "open parenthesis at " + strconv.Itoa(open.pos) + " with no close parenthesis",
	}
}

// describe names a token for error messages.
func describe(tok lexToken) string {
	switch tok.kind {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return "string " + strconv.Quote(tok.text)
	default:
		return strconv.Quote(tok.text)
	}
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*SyntaxError)(nil)
	_ InputError = (*LexError)(nil)
)
