package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokComment
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokRegex
	tokPunct
)

// token is one lexical unit of a JavaScript/TypeScript handler file. Only
// enough of the grammar is understood to never mistake a delimiter inside a
// string, template, regex or comment for a structural one.
type token struct {
	kind tokenKind
	text string
	line int
	// doc marks a /** block comment.
	doc bool
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool { return t.is(tokPunct, text) }
func (t token) ident(text string) bool { return t.is(tokIdent, text) }

// keywords after which a '/' starts a regular expression literal.
var regexPrefixKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type lexer struct {
	src  string
	pos  int
	line int
	last *token
}

func tokenize(src string) []token {
	l := &lexer{src: src, line: 1}
	var toks []token
	for {
		t := l.next()
		if t.kind == tokEOF {
			return toks
		}
		toks = append(toks, t)
	}
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
	}
	l.pos++
}

func (l *lexer) emit(kind tokenKind, start, line int) token {
	t := token{kind: kind, text: l.src[start:l.pos], line: line}
	if kind != tokComment {
		l.last = &t
	}
	return t
}

func (l *lexer) next() token {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.advance()
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}
	}

	start, line := l.pos, l.line
	c := l.src[l.pos]

	switch {
	case c == '/' && l.peekByte(1) == '/':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
		return l.emit(tokComment, start, line)
	case c == '/' && l.peekByte(1) == '*':
		end := strings.Index(l.src[l.pos+2:], "*/")
		stop := len(l.src)
		if end >= 0 {
			stop = l.pos + 2 + end + 2
		}
		for l.pos < stop {
			l.advance()
		}
		t := l.emit(tokComment, start, line)
		t.doc = strings.HasPrefix(t.text, "/**") && !strings.HasPrefix(t.text, "/**/")
		return t
	case c == '/' && l.regexAllowed():
		if l.scanRegex() {
			return l.emit(tokRegex, start, line)
		}
		l.pos = start + 1
		return l.emit(tokPunct, start, line)
	case c == '\'' || c == '"':
		l.scanQuoted(c)
		return l.emit(tokString, start, line)
	case c == '`':
		l.scanTemplate()
		return l.emit(tokTemplate, start, line)
	case isIdentStart(l.src[l.pos:]):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos:]) {
			_, size := utf8.DecodeRuneInString(l.src[l.pos:])
			l.pos += size
		}
		return l.emit(tokIdent, start, line)
	case c >= '0' && c <= '9':
		for l.pos < len(l.src) && (isAlnum(l.src[l.pos]) || l.src[l.pos] == '.' || l.src[l.pos] == '_') {
			l.pos++
		}
		return l.emit(tokNumber, start, line)
	case c == '=' && l.peekByte(1) == '>':
		l.pos += 2
		return l.emit(tokPunct, start, line)
	default:
		_, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
		return l.emit(tokPunct, start, line)
	}
}

func (l *lexer) regexAllowed() bool {
	if l.last == nil {
		return true
	}
	switch l.last.kind {
	case tokIdent:
		return regexPrefixKeywords[l.last.text]
	case tokNumber, tokString, tokTemplate, tokRegex:
		return false
	case tokPunct:
		switch l.last.text {
		case ")", "]", "}":
			return false
		}
	}
	return true
}

// scanRegex consumes a regex literal starting at '/'. It reports false when
// no closing '/' is found on the same line.
func (l *lexer) scanRegex() bool {
	i := l.pos + 1
	inClass := false
	for i < len(l.src) {
		switch l.src[i] {
		case '\\':
			i += 2
			continue
		case '\n':
			return false
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				i++
				for i < len(l.src) && isAlnum(l.src[i]) {
					i++
				}
				l.pos = i
				return true
			}
		}
		i++
	}
	return false
}

func (l *lexer) scanQuoted(quote byte) {
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			l.advance()
			l.advance()
			continue
		case c == quote:
			l.pos++
			return
		case c == '\n':
			// unterminated literal; resync on the next line
			return
		}
		l.advance()
	}
}

// scanTemplate consumes a template literal, lexing ${} substitutions as
// nested code so braces inside them stay balanced.
func (l *lexer) scanTemplate() {
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			l.advance()
			l.advance()
			continue
		case c == '`':
			l.pos++
			return
		case c == '$' && l.peekByte(1) == '{':
			l.pos += 2
			l.last = nil
			depth := 1
			for depth > 0 {
				t := l.next()
				if t.kind == tokEOF {
					return
				}
				if t.punct("{") {
					depth++
				} else if t.punct("}") {
					depth--
				}
			}
			continue
		}
		l.advance()
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isAlnum(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
