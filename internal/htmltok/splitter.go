package htmltok

import (
	"strings"

	"github.com/dpotapov/htmlsanitizer/internal/descriptor"
	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// exemptState records the escape-exempt context: the
// canonical tag name whose matching close tag exits the context, and the
// text-escaping mode that governs how content is reclassified.
type exemptState struct {
	tagName            string
	escaping           descriptor.EscapeMode
	allowsEscapingSpan bool
}

// splitter is the coarse first tokenizer stage. It exposes a single
// `next` operation producing the next coarse token or end-of-stream, in
// strict forward order, never revising a token once produced.
type splitter struct {
	s      string
	pos    int
	inTag  bool
	exempt *exemptState

	// pendingTag records the name of the most recently opened tag so that,
	// when its TAGEND is produced, we can decide whether to activate an
	// escape-exempt context.
	pendingTagName string
	pendingIsClose bool
	pendingValid   bool
}

func newSplitter(s string) *splitter {
	return &splitter{s: s}
}

// next returns the next coarse token, or ok=false at end of input.
func (sp *splitter) next() (Token, bool) {
	if sp.pos >= len(sp.s) {
		return Token{}, false
	}
	if sp.exempt != nil {
		return sp.nextExempt()
	}
	if sp.inTag {
		return sp.nextInTag()
	}
	return sp.nextOutsideTag()
}

func (sp *splitter) nextOutsideTag() (Token, bool) {
	s := sp.s
	start := sp.pos

	if s[start] == '<' {
		rest := s[start+1:]
		switch {
		case len(rest) > 0 && isIdentStart(rest[0]):
			return sp.scanTagBegin(start, start+1, false), true
		case strings.HasPrefix(rest, "/") && len(rest) > 1 && isLetter(rest[1]):
			return sp.scanTagBegin(start, start+2, true), true
		case strings.HasPrefix(rest, "!--"):
			return sp.scanComment(start), true
		case strings.HasPrefix(rest, "!"):
			return sp.scanDirective(start), true
		case strings.HasPrefix(rest, "?"):
			return sp.scanQMarkMeta(start), true
		case strings.HasPrefix(rest, "%"):
			return sp.scanServerCode(start), true
		}
	}
	// Plain text: coalesce until the next '<'.
	end := strings.IndexByte(s[start:], '<')
	if end < 0 {
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: TEXT}, true
	}
	sp.pos = start + end
	return Token{Start: start, End: sp.pos, Type: TEXT}, true
}

func (sp *splitter) scanTagBegin(start, nameStart int, isClose bool) Token {
	s := sp.s
	i := nameStart
	for i < len(s) && isNameByte(s[i]) {
		i++
	}
	// Terminate on whitespace, '>', '/', or another '<'.
	sp.pendingTagName = trie.ASCIILower(s[nameStart:i])
	sp.pendingIsClose = isClose
	sp.pendingValid = true
	sp.pos = i
	sp.inTag = true
	return Token{Start: start, End: i, Type: TAGBEGIN}
}

func (sp *splitter) nextInTag() (Token, bool) {
	s := sp.s
	start := sp.pos

	if strings.HasPrefix(s[start:], "/>") {
		sp.pos = start + 2
		sp.inTag = false
		sp.pendingValid = false
		return Token{Start: start, End: sp.pos, Type: TAGEND}, true
	}
	switch s[start] {
	case '>':
		sp.pos = start + 1
		sp.inTag = false
		tok := Token{Start: start, End: sp.pos, Type: TAGEND}
		sp.maybeActivateExempt()
		return tok, true
	case '"', '\'':
		q := s[start]
		i := start + 1
		for i < len(s) && s[i] != q {
			i++
		}
		if i < len(s) {
			i++ // consume the matching quote
		}
		sp.pos = i
		return Token{Start: start, End: i, Type: QSTRING}, true
	case '=':
		sp.pos = start + 1
		return Token{Start: start, End: sp.pos, Type: TEXT}, true
	}
	if trie.IsHTMLSpace(s[start]) {
		i := start
		for i < len(s) && trie.IsHTMLSpace(s[i]) {
			i++
		}
		sp.pos = i
		return Token{Start: start, End: i, Type: IGNORABLE}, true
	}
	// Unquoted attribute-name/value run.
	i := start
	for i < len(s) {
		c := s[i]
		if trie.IsHTMLSpace(c) || c == '>' || c == '=' {
			break
		}
		if strings.HasPrefix(s[i:], "/>") {
			break
		}
		if (c == '"' || c == '\'') && i+1 < len(s) {
			nxt := s[i+1]
			if trie.IsHTMLSpace(nxt) || nxt == '>' || nxt == '/' {
				i++ // the embedded quote ends the token, consumed as part of the value
				break
			}
		}
		i++
	}
	if i == start {
		// Defensive: never produce an empty token; consume one byte as text
		// so the scan always makes forward progress on pathological input.
		i++
	}
	sp.pos = i
	return Token{Start: start, End: i, Type: TEXT}, true
}

func (sp *splitter) maybeActivateExempt() {
	if !sp.pendingValid || sp.pendingIsClose {
		sp.pendingValid = false
		return
	}
	name := sp.pendingTagName
	sp.pendingValid = false
	el := descriptor.Lookup(name)
	if el == nil || !el.EscapeExempt {
		return
	}
	sp.exempt = &exemptState{
		tagName:            name,
		escaping:           el.Escaping,
		allowsEscapingSpan: el.AllowsEscapingSpan,
	}
}

func (sp *splitter) scanComment(start int) Token {
	s := sp.s
	end := strings.Index(s[start+4:], "-->")
	if end < 0 {
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: COMMENT}
	}
	sp.pos = start + 4 + end + 3
	return Token{Start: start, End: sp.pos, Type: COMMENT}
}

func (sp *splitter) scanDirective(start int) Token {
	s := sp.s
	end := strings.IndexByte(s[start:], '>')
	if end < 0 {
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: DIRECTIVE}
	}
	sp.pos = start + end + 1
	return Token{Start: start, End: sp.pos, Type: DIRECTIVE}
}

func (sp *splitter) scanQMarkMeta(start int) Token {
	s := sp.s
	end := strings.IndexByte(s[start:], '>')
	if end < 0 {
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: QMARKMETA}
	}
	sp.pos = start + end + 1
	return Token{Start: start, End: sp.pos, Type: QMARKMETA}
}

func (sp *splitter) scanServerCode(start int) Token {
	s := sp.s
	end := strings.Index(s[start:], "%>")
	if end < 0 {
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: SERVERCODE}
	}
	sp.pos = start + end + 2
	return Token{Start: start, End: sp.pos, Type: SERVERCODE}
}

// nextExempt handles scanning while inside an escape-exempt block. It coalesces content up to (but not including) the matching
// `</tagName` close sequence into a single reclassified token, which is the
// WHATWG "raw text / escapable raw text data state" technique: content
// structure inside the block is irrelevant except for locating the close
// tag, so there is no benefit to re-running the full outside-tag state
// machine byte by byte here.
func (sp *splitter) nextExempt() (Token, bool) {
	s := sp.s
	start := sp.pos
	ex := sp.exempt

	if ex.escaping == descriptor.PLAIN_TEXT {
		// PLAIN_TEXT never exits.
		sp.pos = len(s)
		return Token{Start: start, End: len(s), Type: UNESCAPED}, true
	}

	closeAt, found := findExemptClose(s, start, ex.tagName, ex.allowsEscapingSpan)
	if !found {
		sp.pos = len(s)
		sp.exempt = nil
		return Token{Start: start, End: len(s), Type: reclassifiedType(ex.escaping)}, true
	}
	if closeAt > start {
		sp.pos = closeAt
		return Token{Start: start, End: closeAt, Type: reclassifiedType(ex.escaping)}, true
	}
	// We are exactly at the "</tagName" boundary: emit it as a real close
	// TAGBEGIN and exit the exempt context.
	sp.exempt = nil
	return sp.scanTagBegin(start, start+2, true), true
}

func reclassifiedType(mode descriptor.EscapeMode) TokenType {
	switch mode {
	case descriptor.RCDATA:
		return TEXT
	default: // CDATA, CDATASometimes, PLAIN_TEXT
		return UNESCAPED
	}
}

// findExemptClose scans s starting at pos for the first `</tagName`
// boundary (case-insensitive, followed by whitespace, '>', '/', or EOF)
// that is not inside an HTML5 "escaping text span" (`<!--...-->`) when
// allowsSpan permits such spans to suppress the close-tag search.
func findExemptClose(s string, pos int, tagName string, allowsSpan bool) (int, bool) {
	i := pos
	inSpan := false
	for i < len(s) {
		if allowsSpan && !inSpan && strings.HasPrefix(s[i:], "<!--") {
			inSpan = true
			i += 4
			continue
		}
		if inSpan {
			if strings.HasPrefix(s[i:], "-->") {
				inSpan = false
				i += 3
				continue
			}
			i++
			continue
		}
		if s[i] == '<' && i+1 < len(s) && s[i+1] == '/' {
			if matchesCloseTag(s, i, tagName) {
				return i, true
			}
		}
		i++
	}
	return 0, false
}

func matchesCloseTag(s string, at int, tagName string) bool {
	rest := s[at+2:]
	if len(rest) < len(tagName) {
		return false
	}
	if !trie.EqualFold(rest[:len(tagName)], tagName) {
		return false
	}
	if len(rest) == len(tagName) {
		return true
	}
	c := rest[len(tagName)]
	return trie.IsHTMLSpace(c) || c == '>' || c == '/'
}

func isIdentStart(c byte) bool {
	return isLetter(c)
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// isNameByte reports whether c may appear in a tag name after the first
// character. Namespaced names (SVG/MathML) use ':'; we accept the common
// name-continuation set and let the Lexer's canonicalization decide case-folding.
func isNameByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == ':' || c == '_' || c == '.'
}
