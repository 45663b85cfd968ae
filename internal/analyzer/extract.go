package analyzer

import "strings"

// AnnotatedSymbol is an exported async handler together with the doc
// comment block directly above it.
type AnnotatedSymbol struct {
	Name string
	// Comment is the text between "/**" and "*/".
	Comment string
	// Line is the 1-based line of the comment's opening "/**".
	Line int
}

// ExtractAnnotatedSymbols finds every top-level doc comment that is
// followed, with only whitespace in between, by an exported async handler
// declaration. Two declaration styles are recognised:
//
//	module.exports.name = async (event) => { ... }   // also exports.name, export const name
//	export async function name(event) { ... }
//
// Declaration bodies are skipped by counting balanced delimiters over the
// token stream, so a '}' inside a nested block, string, template or regex
// never ends the scan early.
func ExtractAnnotatedSymbols(src string) []AnnotatedSymbol {
	toks := tokenize(src)

	var symbols []AnnotatedSymbol
	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.kind == tokPunct && isOpener(t.text):
			depth++
		case t.kind == tokPunct && isCloser(t.text):
			if depth > 0 {
				depth--
			}
		case t.kind == tokComment && t.doc && depth == 0:
			name, end, ok := matchDeclaration(toks, i+1)
			if !ok {
				continue
			}
			symbols = append(symbols, AnnotatedSymbol{
				Name:    name,
				Comment: commentBody(t.text),
				Line:    t.line,
			})
			// end is the last token of the declaration head or body; the
			// skipped range is balanced so depth is unchanged.
			i = end
		}
	}
	return symbols
}

func commentBody(text string) string {
	text = strings.TrimPrefix(text, "/**")
	return strings.TrimSuffix(text, "*/")
}

// matchDeclaration tries both export styles at toks[i]. It returns the
// exported name and the index of the declaration's last consumed token.
func matchDeclaration(toks []token, i int) (string, int, bool) {
	at := func(k int) token {
		if k < len(toks) {
			return toks[k]
		}
		return token{kind: tokEOF}
	}

	var name string
	k := i
	switch {
	// module.exports.name = ...
	case at(k).ident("module") && at(k+1).punct(".") && at(k+2).ident("exports") && at(k+3).punct(".") && at(k+4).kind == tokIdent:
		name = at(k + 4).text
		k += 5
	// exports.name = ...
	case at(k).ident("exports") && at(k+1).punct(".") && at(k+2).kind == tokIdent:
		name = at(k + 2).text
		k += 3
	// export const name = ...
	case at(k).ident("export") && (at(k+1).ident("const") || at(k+1).ident("let") || at(k+1).ident("var")) && at(k+2).kind == tokIdent:
		name = at(k + 2).text
		k += 3
		if at(k).punct(":") {
			// TypeScript type annotation up to the initialiser
			k = skipUntil(toks, k+1, "=")
			if k < 0 {
				return "", 0, false
			}
		}
	// export async function name(...) { ... }
	case at(k).ident("export") && at(k+1).ident("async") && at(k+2).ident("function"):
		k += 3
		if at(k).punct("*") {
			k++
		}
		if at(k).kind != tokIdent {
			return "", 0, false
		}
		name = at(k).text
		end, ok := functionTail(toks, k+1)
		if !ok {
			return "", 0, false
		}
		return name, end, true
	default:
		return "", 0, false
	}

	if !at(k).punct("=") {
		return "", 0, false
	}
	end, ok := asyncFunction(toks, k+1)
	if !ok {
		return "", 0, false
	}
	return name, end, true
}

// asyncFunction matches an async arrow function or async function
// expression starting at toks[k].
func asyncFunction(toks []token, k int) (int, bool) {
	if k >= len(toks) || !toks[k].ident("async") {
		return 0, false
	}
	k++
	if k >= len(toks) {
		return 0, false
	}

	switch t := toks[k]; {
	case t.ident("function"):
		k++
		if k < len(toks) && toks[k].punct("*") {
			k++
		}
		if k < len(toks) && toks[k].kind == tokIdent {
			k++
		}
		return functionTail(toks, k)
	case t.punct("("):
		rparen := skipBalanced(toks, k)
		if rparen < 0 {
			return 0, false
		}
		k = rparen + 1
		if k < len(toks) && toks[k].punct(":") {
			k = skipUntil(toks, k+1, "=>")
			if k < 0 {
				return 0, false
			}
		}
		return arrowBody(toks, k)
	case t.kind == tokIdent:
		return arrowBody(toks, k+1)
	}
	return 0, false
}

// functionTail matches "(params) [: type] { body }" at toks[k] and returns
// the index of the body's closing brace.
func functionTail(toks []token, k int) (int, bool) {
	if k >= len(toks) || !toks[k].punct("(") {
		return 0, false
	}
	rparen := skipBalanced(toks, k)
	if rparen < 0 {
		return 0, false
	}
	k = rparen + 1
	if k < len(toks) && toks[k].punct(":") {
		k = skipUntil(toks, k+1, "{")
		if k < 0 {
			return 0, false
		}
	}
	if k >= len(toks) || !toks[k].punct("{") {
		return 0, false
	}
	end := skipBalanced(toks, k)
	if end < 0 {
		// unterminated body: the declaration still counts, scanning resumes
		// inside it
		return k - 1, true
	}
	return end, true
}

// arrowBody expects "=>" at toks[k] followed by a block or expression body.
func arrowBody(toks []token, k int) (int, bool) {
	if k >= len(toks) || !toks[k].punct("=>") {
		return 0, false
	}
	if k+1 < len(toks) && toks[k+1].punct("{") {
		if end := skipBalanced(toks, k+1); end >= 0 {
			return end, true
		}
	}
	// expression body, or unterminated block: let the caller's depth
	// tracking walk it
	return k, true
}

// skipBalanced returns the index of the delimiter closing toks[open].
func skipBalanced(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokPunct {
			continue
		}
		switch {
		case isOpener(t.text):
			depth++
		case isCloser(t.text):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipUntil returns the index of the first depth-0 punctuation token equal
// to text, starting at k.
func skipUntil(toks []token, k int, text string) int {
	depth := 0
	for i := k; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokPunct {
			continue
		}
		if depth == 0 && t.text == text {
			return i
		}
		switch {
		case isOpener(t.text):
			depth++
		case isCloser(t.text):
			depth--
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

func isOpener(s string) bool { return s == "{" || s == "(" || s == "[" }
func isCloser(s string) bool { return s == "}" || s == ")" || s == "]" }
