package cypher

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokString
	tokInteger
	tokFloat
	tokParam
	tokSymbol
)

type token struct {
	kind   tokenKind
	text   string
	line   int
	column int
}

var keywords = map[string]bool{
	"match": true, "where": true, "return": true, "order": true, "by": true,
	"skip": true, "limit": true, "distinct": true, "asc": true, "ascending": true,
	"desc": true, "descending": true, "and": true, "or": true, "not": true,
	"in": true, "starts": true, "ends": true, "contains": true, "true": true,
	"false": true, "null": true, "case": true, "when": true, "then": true,
	"else": true, "end": true, "as": true, "with": true,
}

// lexer tokenizes Cypher source text, tracking line and column for
// diagnostics the way the executor's callers expect from parse errors.
type lexer struct {
	input  []rune
	pos    int
	line   int
	column int
}

func newLexer(src string) *lexer {
	return &lexer{input: []rune(src), line: 1, column: 1}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) advance() rune {
	r := l.input[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		r := l.peekRune()
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			l.advance()
			continue
		}
		if r == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/' {
			for l.pos < len(l.input) && l.peekRune() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *lexer) next() (token, error) {
	l.skipWhitespaceAndComments()
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, line: l.line, column: l.column}, nil
	}

	line, col := l.line, l.column
	r := l.peekRune()

	switch {
	case isIdentStart(r):
		start := l.pos
		for l.pos < len(l.input) && isIdentContinue(l.peekRune()) {
			l.advance()
		}
		text := string(l.input[start:l.pos])
		if keywords[strings.ToLower(text)] {
			return token{kind: tokKeyword, text: strings.ToLower(text), line: line, column: col}, nil
		}
		return token{kind: tokIdent, text: text, line: line, column: col}, nil

	case isDigit(r):
		return l.lexNumber(line, col)

	case r == '$':
		l.advance()
		start := l.pos
		for l.pos < len(l.input) && isIdentContinue(l.peekRune()) {
			l.advance()
		}
		return token{kind: tokParam, text: string(l.input[start:l.pos]), line: line, column: col}, nil

	case r == '"' || r == '\'':
		return l.lexString(r, line, col)

	default:
		return l.lexSymbol(line, col)
	}
}

func (l *lexer) lexNumber(line, col int) (token, error) {
	start := l.pos
	isFloat := false
	for l.pos < len(l.input) && isDigit(l.peekRune()) {
		l.advance()
	}
	if l.pos < len(l.input) && l.peekRune() == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
		isFloat = true
		l.advance()
		for l.pos < len(l.input) && isDigit(l.peekRune()) {
			l.advance()
		}
	}
	if l.pos < len(l.input) && (l.peekRune() == 'e' || l.peekRune() == 'E') {
		isFloat = true
		l.advance()
		if l.pos < len(l.input) && (l.peekRune() == '+' || l.peekRune() == '-') {
			l.advance()
		}
		for l.pos < len(l.input) && isDigit(l.peekRune()) {
			l.advance()
		}
	}
	text := string(l.input[start:l.pos])
	if isFloat {
		return token{kind: tokFloat, text: text, line: line, column: col}, nil
	}
	return token{kind: tokInteger, text: text, line: line, column: col}, nil
}

func (l *lexer) lexString(quote rune, line, col int) (token, error) {
	l.advance()
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return token{}, newSyntaxError(line, col, "unterminated string literal")
		}
		r := l.advance()
		if r == quote {
			break
		}
		if r == '\\' && l.pos < len(l.input) {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '\'', '"':
				sb.WriteRune(esc)
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return token{kind: tokString, text: sb.String(), line: line, column: col}, nil
}

var twoCharSymbols = []string{"<>", "<=", ">="}

func (l *lexer) lexSymbol(line, col int) (token, error) {
	r := l.advance()
	// Try a small set of meaningful two-char symbols first.
	if l.pos < len(l.input) {
		two := string(r) + string(l.peekRune())
		for _, sym := range twoCharSymbols {
			if two == sym {
				l.advance()
				return token{kind: tokSymbol, text: two, line: line, column: col}, nil
			}
		}
	}
	switch r {
	case '(', ')', '[', ']', '{', '}', ',', '.', ':', '=', '<', '>', '+', '-', '*', '/', '%', '^', '|', '?':
		return token{kind: tokSymbol, text: string(r), line: line, column: col}, nil
	default:
		return token{}, newSyntaxError(line, col, "unexpected character %q", r)
	}
}
