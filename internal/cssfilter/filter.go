package cssfilter

import (
	"strings"

	"github.com/dpotapov/htmlsanitizer/internal/cssparse"
)

// Filter rewrites a style attribute's declarations: tokenize
// style with cssparse.Lex, then for each declaration look up its property
// in schema and filter its value tokens, joining the surviving
// declarations with ';'. Malformed declarations recover by dropping to the
// next ';' or matching bracket; a declaration whose value
// filters to nothing is rolled back (not emitted) entirely.
func Filter(style string, schema Schema) string {
	ts, err := cssparse.Lex(style)
	if err != nil {
		return ""
	}
	n := ts.Len()
	var decls []string
	i := 0
	for i < n {
		for i < n && (ts.Types[i] == cssparse.Whitespace || ts.Types[i] == cssparse.Semicolon) {
			i++
		}
		if i >= n {
			break
		}
		if ts.Types[i] != cssparse.Ident {
			i = skipToSemicolon(ts, i)
			continue
		}
		name := ts.TokenText(i)
		j := i + 1
		for j < n && ts.Types[j] == cssparse.Whitespace {
			j++
		}
		if j >= n || ts.Types[j] != cssparse.Colon {
			i = skipToSemicolon(ts, i)
			continue
		}
		j++ // consume ':'
		for j < n && ts.Types[j] == cssparse.Whitespace {
			j++
		}

		prop, ok := schema.lookup(name)
		if !ok {
			i = skipToSemicolon(ts, j)
			continue
		}

		end := findDeclEnd(ts, j)
		value, emitted := filterValue(ts, j, end, prop, schema)
		if emitted {
			decls = append(decls, name+":"+value)
		}
		if end < n {
			i = end + 1
		} else {
			i = end
		}
	}
	return strings.Join(decls, ";")
}

// findDeclEnd returns the index of the declaration-terminating top-level
// ';' (bracket-depth 0) starting the scan at start, or ts.Len() if none.
func findDeclEnd(ts *cssparse.TokenStream, start int) int {
	depth := 0
	n := ts.Len()
	for i := start; i < n; i++ {
		switch ts.Types[i] {
		case cssparse.LeftParen, cssparse.LeftSquare, cssparse.LeftCurly, cssparse.Function:
			depth++
		case cssparse.RightParen, cssparse.RightSquare, cssparse.RightCurly:
			if depth > 0 {
				depth--
			}
		case cssparse.Semicolon:
			if depth == 0 {
				return i
			}
		}
	}
	return n
}

func skipToSemicolon(ts *cssparse.TokenStream, start int) int {
	end := findDeclEnd(ts, start)
	if end < ts.Len() {
		return end + 1
	}
	return end
}

// filterValue filters tokens [start,end) of a single declaration's value (or
// a function's argument list) against prop, returning the canonical text and
// whether anything was emitted.
func filterValue(ts *cssparse.TokenStream, start, end int, prop PropertySchema, schema Schema) (string, bool) {
	var b strings.Builder
	emitted := false
	pendingSpace := false

	emit := func(s string) {
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		pendingSpace = false
		emitted = true
	}

	i := start
	for i < end {
		switch ts.Types[i] {
		case cssparse.Whitespace:
			pendingSpace = true
			i++

		case cssparse.Ident:
			text := ts.TokenText(i)
			if _, ok := prop.Literals[text]; ok {
				emit(text)
				i++
				continue
			}
			if prop.Bits&UNRESERVED_WORD != 0 && prop.Bits&STRING != 0 {
				var words []string
				for i < end && ts.Types[i] == cssparse.Ident {
					words = append(words, ts.TokenText(i))
					i++
					if i < end && ts.Types[i] == cssparse.Whitespace {
						if i+1 < end && ts.Types[i+1] == cssparse.Ident {
							i++
							continue
						}
					}
					break
				}
				emit("'" + strings.Join(words, " ") + "'")
				continue
			}
			i++

		case cssparse.Number, cssparse.Percentage, cssparse.Dimension:
			text := ts.TokenText(i)
			if _, ok := prop.Literals[text]; ok {
				emit(text)
				i++
				continue
			}
			negative := strings.HasPrefix(text, "-")
			if prop.Bits&QUANTITY != 0 || (negative && prop.Bits&NEGATIVE != 0) {
				emit(text)
			}
			i++

		case cssparse.BadDimension:
			// Unknown unit: never emitted, even if the text coincides with a
			// literal (a bad dimension token's text always ends in a
			// non-well-known unit suffix, so no legitimate literal should
			// match it).
			i++

		case cssparse.HashUnrestricted:
			// Only the #rgb and #rrggbb color forms pass (token length 4
			// or 7 counting the '#').
			text := ts.TokenText(i)
			if prop.Bits&HASH_VALUE != 0 && (len(text) == 4 || len(text) == 7) {
				emit(text)
			}
			i++

		case cssparse.String:
			text := ts.TokenText(i)
			wantsWord := prop.Bits&UNRESERVED_WORD != 0
			wantsURL := prop.Bits&URL != 0
			if wantsWord != wantsURL {
				inner := strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
				if isPlainAlnumSpace(inner) {
					emit(text)
				}
			}
			i++

		case cssparse.URL:
			if schema.URLPolicy != nil {
				inner := urlInner(ts.TokenText(i))
				if nv, ok := schema.URLPolicy(inner); ok {
					emit("url('" + nv + "')")
				}
			}
			i++

		case cssparse.UnicodeRange:
			text := ts.TokenText(i)
			if prop.Bits&UNICODE_RANGE != 0 {
				emit(text)
			}
			i++

		case cssparse.Function:
			raw := ts.TokenText(i)
			name := strings.TrimSuffix(raw, "(")
			closeIdx := ts.BracketPartner[i]
			if closeIdx < 0 || closeIdx >= end {
				closeIdx = end - 1
			}
			subKey, ok := prop.Functions[name]
			if ok {
				if subProp, ok2 := schema.Properties[subKey]; ok2 {
					inner, innerEmitted := filterValue(ts, i+1, closeIdx, subProp, schema)
					if innerEmitted {
						emit(name + "(" + inner + ")")
					}
				}
			}
			i = closeIdx + 1

		case cssparse.Comma, cssparse.Colon, cssparse.Delim, cssparse.Match, cssparse.Column,
			cssparse.DotIdent, cssparse.At:
			text := ts.TokenText(i)
			if _, ok := prop.Literals[text]; ok {
				emit(text)
			}
			i++

		case cssparse.LeftParen, cssparse.LeftSquare, cssparse.LeftCurly:
			// Unexpected bracket with no associated Function token: skip the
			// whole balanced group defensively.
			closeIdx := ts.BracketPartner[i]
			if closeIdx < 0 || closeIdx >= end {
				closeIdx = end - 1
			}
			i = closeIdx + 1

		default:
			i++
		}
	}
	return b.String(), emitted
}

// isPlainAlnumSpace reports whether s contains only ASCII letters, digits,
// and spaces, so a String value matched against UNRESERVED_WORD carries no
// injection vector.
func isPlainAlnumSpace(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == ' '
		if !ok {
			return false
		}
	}
	return true
}

// urlInner extracts the decoded contents of a normalized url('…') token's
// text, undoing the percent-encoding cssparse.Lex applied so a
// URLPolicy sees the original reference.
func urlInner(tok string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "url('"), "')")
	return percentDecode(inner)
}

func percentDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
