package sqlexpr

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexToken struct {
	text string
	kind tokenKind
	pos  int
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenInt is a decimal integer literal.
	tokenInt
	// tokenFloat is a decimal literal with a fraction or exponent.
	tokenFloat
	// tokenString is a quoted string literal. The token text is the decoded
	// contents, without quotes.
	tokenString
	// tokenIdent is a variable or function name, possibly dotted.
	tokenIdent
	// tokenOp is an operator, including keyword operators.
	tokenOp
	// tokenOpen is an open parenthesis.
	tokenOpen
	// tokenClose is a close parenthesis.
	tokenClose
	// tokenSep is a function argument separator.
	tokenSep
)

var tokenNames = [...]string{
	tokenNone:   "None",
	tokenEOF:    "EOF",
	tokenInt:    "Int",
	tokenFloat:  "Float",
	tokenString: "String",
	tokenIdent:  "Ident",
	tokenOp:     "Op",
	tokenOpen:   "Open",
	tokenClose:  "Close",
	tokenSep:    "Sep",
}

func (k tokenKind) String() string {
	if k < 0 || int(k) >= len(tokenNames) {
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
	return tokenNames[k]
}

// Operators contains the runes which begin symbolic operators.
const Operators = "+-*/%^<>=|&~!"

// Keywords are the operators spelled as words. They are matched without
// regard to case.
var Keywords = []string{"and", "or", "not", "in", "is"}

// twochar lists the operators of two runes, keyed by their first rune.
var twochar = map[rune][]string{
	'<': {"<=", "<<", "<>"},
	'>': {">=", ">>"},
	'!': {"!="},
}

type lexer struct {
	src  io.RuneScanner
	buf  strings.Builder
	rune int
	p    lexToken
	eof  bool
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{
		src:  src,
		rune: 1,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("sqlexpr: double push")
	}
	l.p = tok
}

// must scans the pushed token. Panics if there is no pushed token.
func (l *lexer) must() lexToken {
	tok := l.p
	if tok.kind == tokenNone {
		panic("sqlexpr: no pushed token")
	}
	l.p = lexToken{}
	return tok
}

// readRune reads a rune from the src and updates the lexer's position info.
func (l *lexer) readRune() (r rune, err error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.rune++
	}
	return r, err
}

// unreadRune unreads a rune from the src and updates the lexer's position
// info. Panics if unreading returns an error.
func (l *lexer) unreadRune() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.rune--
}

// next scans the next token from the input. The first time EOF is encountered
// before any non-whitespace characters, the result is an EOF token with a nil
// error. Subsequent times, if the EOF token is not pushed, the result is an
// empty token with io.EOF. A whitespace rune in wseof also ends the input.
func (l *lexer) next(wseof string) (lexToken, error) {
	if l.p.kind != tokenNone {
		tok := l.p
		l.p = lexToken{}
		return tok, nil
	}
	if l.eof {
		return lexToken{}, io.EOF
	}
	defer l.buf.Reset()
	tok := lexToken{pos: l.rune}
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				tok.kind = tokenEOF
				l.eof = true
				return tok, nil
			}
			return tok, err
		}
		switch {
		case unicode.IsSpace(r):
			if strings.ContainsRune(wseof, r) {
				tok.kind = tokenEOF
				l.eof = true
				return tok, nil
			}
			tok.pos++
			continue
		case '0' <= r && r <= '9', r == '.':
			l.unreadRune()
			kind, err := l.scanNum()
			if err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = kind
			return tok, nil
		case r == '\'', r == '"':
			if err := l.scanString(r); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenString
			return tok, nil
		case r == '_', isLetter(r):
			l.unreadRune()
			if err := l.scanIdent(); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenIdent
			if kw := keyword(tok.text); kw != "" {
				tok.text = kw
				tok.kind = tokenOp
			}
			return tok, nil
		case r == '(':
			tok.text = "("
			tok.kind = tokenOpen
			return tok, nil
		case r == ')':
			tok.text = ")"
			tok.kind = tokenClose
			return tok, nil
		case r == ',':
			tok.text = ","
			tok.kind = tokenSep
			return tok, nil
		case strings.ContainsRune(Operators, r):
			text, err := l.scanOp(r)
			if err != nil {
				return tok, err
			}
			tok.text = text
			tok.kind = tokenOp
			return tok, nil
		default:
			// Write the rune so that it shows up in the error message.
			l.buf.WriteRune(r)
			return tok, l.error("")
		}
	}
}

// scanOp scans the rest of an operator beginning with r, preferring the
// longest match.
func (l *lexer) scanOp(r rune) (string, error) {
	if long := twochar[r]; long != nil {
		s, err := l.readRune()
		if err == nil {
			for _, op := range long {
				if rune(op[1]) == s {
					return op, nil
				}
			}
			l.unreadRune()
		} else if !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	if r == '!' {
		// ! only appears in !=.
		l.buf.WriteRune(r)
		return "", l.error("operator")
	}
	return string(r), nil
}

func (l *lexer) scanNum() (tokenKind, error) {
	// dig, fd, and ed record digits in the integer part, fraction, and
	// exponent. le means the last rune was the exponent marker.
	var dig, dot, fd, e, ed, le bool
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return tokenNone, err
		}
		if r == '+' || r == '-' {
			// + or - anywhere other than immediately following an exponent
			// marker means a new token, as it is an operator.
			if !le {
				l.unreadRune()
				break
			}
			le = false
			l.buf.WriteRune(r)
			continue
		}
		if r != '.' && r != '_' && !isLetter(r) && !unicode.IsDigit(r) {
			l.unreadRune()
			break
		}
		l.buf.WriteRune(r)
		switch r {
		case '.':
			if dot || e {
				return tokenNone, l.error("number")
			}
			dot = true
			le = false
		case 'e', 'E':
			if !dig && !fd || e || dot && !fd {
				return tokenNone, l.error("number")
			}
			e = true
			le = true
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			switch {
			case e:
				ed = true
			case dot:
				fd = true
			default:
				dig = true
			}
			le = false
		default:
			return tokenNone, l.error("number")
		}
	}
	switch {
	case !dig && !fd, dot && !fd, e && !ed:
		return tokenNone, l.error("number")
	case !dot && !e:
		if _, err := strconv.ParseInt(l.buf.String(), 10, 64); err != nil {
			return tokenNone, l.error("number")
		}
		return tokenInt, nil
	default:
		// Out of float64 range is fine; Evaluator has arbitrary precision.
		if _, err := strconv.ParseFloat(l.buf.String(), 64); err != nil && !errors.Is(err, strconv.ErrRange) {
			return tokenNone, l.error("number")
		}
		return tokenFloat, nil
	}
}

// scanString scans a string literal up to the closing quote, decoding escape
// sequences into the buffer. The opening quote has already been read.
func (l *lexer) scanString(quote rune) error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return l.error("string")
			}
			return err
		}
		switch r {
		case quote:
			return nil
		case '\\':
			if err := l.scanEscape(); err != nil {
				return err
			}
		default:
			l.buf.WriteRune(r)
		}
	}
}

// scanEscape decodes one escape sequence following a backslash.
func (l *lexer) scanEscape() error {
	c, err := l.readRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return l.error("string")
		}
		return err
	}
	if c == '\'' || c == '"' {
		l.buf.WriteRune(c)
		return nil
	}
	var n int
	switch c {
	case 'x':
		n = 2
	case 'u':
		n = 4
	case 'U':
		n = 8
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n = 2
	}
	raw := []rune{'\\', c}
	for i := 0; i < n; i++ {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return l.error("string")
			}
			return err
		}
		raw = append(raw, r)
	}
	v, mb, tail, err := strconv.UnquoteChar(string(raw), 0)
	if err != nil || tail != "" {
		l.buf.WriteString(string(raw))
		return l.error("string")
	}
	if v < utf8.RuneSelf || !mb {
		l.buf.WriteByte(byte(v))
	} else {
		l.buf.WriteRune(v)
	}
	return nil
}

// scanIdent scans dot-separated identifier segments. Each segment must begin
// with a letter or underscore.
func (l *lexer) scanIdent() error {
	start := true
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if start {
					return l.error("identifier")
				}
				return nil
			}
			return err
		}
		switch {
		case r == '_', isLetter(r):
			l.buf.WriteRune(r)
			start = false
		case '0' <= r && r <= '9':
			l.buf.WriteRune(r)
			if start {
				return l.error("identifier")
			}
		case r == '.':
			l.buf.WriteRune(r)
			if start {
				return l.error("identifier")
			}
			start = true
		default:
			if start {
				l.buf.WriteRune(r)
				return l.error("identifier")
			}
			l.unreadRune()
			return nil
		}
	}
}

// isLetter reports whether r may begin an identifier segment.
func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

// keyword returns the canonical spelling of a keyword operator, or the empty
// string if s is not one.
func keyword(s string) string {
	for _, kw := range Keywords {
		if strings.EqualFold(s, kw) {
			return kw
		}
	}
	return ""
}

func (l *lexer) error(kind string) error {
	return &LexError{
		Text: l.buf.String(),
		Kind: kind,
		Col:  l.rune - 1,
	}
}

// LexError indicates an invalid token. It implements InputError.
type LexError struct {
	// Text is the token the lexer was scanning when the invalid rune was
	// encountered, plus the invalid rune.
	Text string
	// Kind is the type of token the lexer was scanning. This may be "number",
	// "string", "identifier", "operator", or the empty string (if a token
	// kind hadn't been decided).
	Kind string
	// Col is the total number of runes scanned by the lexer up to and
	// including this error.
	Col int
}

func (err *LexError) Error() string {
	pos := "column " + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + err.Text
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + err.Text
}

func (err *LexError) Pos() int {
	return err.Col
}
