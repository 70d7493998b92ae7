package htmltok

import (
	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// valueless is the fixed set of boolean attributes compared
// case-insensitively to bound unquoted value runs.
var valueless = buildValuelessSet()

func buildValuelessSet() map[string]struct{} {
	names := []string{
		"checked", "compact", "declare", "defer", "disabled", "ismap",
		"multiple", "nohref", "noresize", "noshade", "nowrap", "readonly",
		"selected",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func isValueless(name string) bool {
	_, ok := valueless[trie.ASCIILower(name)]
	return ok
}

type lexState uint8

const (
	stateOutsideTag lexState = iota
	stateInTag
	stateSawName
	stateSawEq
)

// Lexer is the refinement stage over the splitter: a 1-token pushback, a
// 4-token peek buffer, IGNORABLE-dropping, bare-TEXT reclassification into
// ATTRNAME/ATTRVALUE, and coalescing of adjacent TEXT/UNESCAPED runs outside
// tags.
type Lexer struct {
	src string
	sp  *splitter

	// rawPushback is the splitter-level one-token pushback the attribute
	// state machine uses to re-inspect a token under a different state
	// (e.g. SAW_NAME seeing a non-TEXT token) or to push back a TAGEND once
	// a synthetic empty ATTRVALUE has been synthesized for it.
	rawPushback *Token

	state lexState

	// peeked holds refined tokens already produced by produceOne but not
	// yet consumed by Next, used to implement Peek. Lookahead is bounded
	// at 4 tokens.
	peeked []Token
}

// NewLexer builds a Lexer over the given input.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, sp: newSplitter(src)}
}

// Source returns the original input the lexer was built over, so any token
// can be rematerialized as text.
func (lx *Lexer) Source() string { return lx.src }

func (lx *Lexer) rawNext() (Token, bool) {
	if lx.rawPushback != nil {
		t := *lx.rawPushback
		lx.rawPushback = nil
		return t, true
	}
	return lx.sp.next()
}

func (lx *Lexer) rawPushBack(t Token) {
	lx.rawPushback = &t
}

// Next returns the next refined token, or ok=false at end of stream.
func (lx *Lexer) Next() (Token, bool) {
	if len(lx.peeked) > 0 {
		t := lx.peeked[0]
		lx.peeked = lx.peeked[1:]
		return t, true
	}
	return lx.produceOne()
}

// Peek returns the token k positions ahead (0 = the token Next would
// return) without consuming it. k must be in [0,3].
func (lx *Lexer) Peek(k int) (Token, bool) {
	for len(lx.peeked) <= k {
		t, ok := lx.produceOne()
		if !ok {
			return Token{}, false
		}
		lx.peeked = append(lx.peeked, t)
	}
	return lx.peeked[k], true
}

// produceOne runs the attribute state machine and text-coalescing logic
// far enough to emit exactly one refined token.
func (lx *Lexer) produceOne() (Token, bool) {
	for {
		tok, ok := lx.rawNext()
		if !ok {
			return Token{}, false
		}

		if tok.Type == IGNORABLE {
			continue // dropped in every state
		}

		switch lx.state {
		case stateOutsideTag:
			if tok.Type == TAGBEGIN {
				lx.state = stateInTag
				return tok, true
			}
			return lx.coalesceText(tok), true

		case stateInTag:
			switch tok.Type {
			case TAGEND:
				lx.state = stateOutsideTag
				return tok, true
			case TEXT, QSTRING:
				lx.state = stateSawName
				return Token{Start: tok.Start, End: tok.End, Type: ATTRNAME}, true
			default:
				// Unexpected token type while scanning for an attribute
				// name (e.g. a stray COMMENT inside a tag's angle
				// brackets); pass through unchanged rather than drop it,
				// preserving the token-coverage invariant.
				return tok, true
			}

		case stateSawName:
			if tok.Type == TEXT && tok.Text(lx.src) == "=" {
				lx.state = stateSawEq
				continue // drop the '=' delimiter, recurse
			}
			// Attribute had no value; reprocess this token under IN_TAG.
			lx.state = stateInTag
			lx.rawPushBack(tok)
			continue

		case stateSawEq:
			switch tok.Type {
			case QSTRING:
				lx.state = stateInTag
				return Token{Start: tok.Start, End: tok.End, Type: ATTRVALUE}, true
			case TAGEND:
				// checked=: synthesize an empty ATTRVALUE and push back
				// the TAGEND so it's reprocessed under IN_TAG.
				lx.state = stateInTag
				lx.rawPushBack(tok)
				return Token{Start: tok.Start, End: tok.Start, Type: ATTRVALUE}, true
			case TEXT:
				lx.state = stateInTag
				return lx.extendAttrValue(tok), true
			default:
				lx.state = stateInTag
				return tok, true
			}
		}
	}
}

// coalesceText merges adjacent TEXT/UNESCAPED tokens outside a tag into a
// single token.
func (lx *Lexer) coalesceText(first Token) Token {
	if first.Type != TEXT && first.Type != UNESCAPED {
		return first
	}
	end := first.End
	for {
		next, ok := lx.rawNext()
		if !ok {
			break
		}
		if next.Type != first.Type || next.Start != end {
			lx.rawPushBack(next)
			break
		}
		end = next.End
	}
	return Token{Start: first.Start, End: end, Type: first.Type}
}

// extendAttrValue implements the SAW_EQ + TEXT rule: scan forward through
// IGNORABLE and TEXT, stopping before whitespace that is followed by a
// valueless attribute name or by a name and (optional whitespace) '=', and
// stopping at '/>' or EOF.
func (lx *Lexer) extendAttrValue(first Token) Token {
	end := first.End
	for {
		savedSp := *lx.sp
		savePushback := lx.rawPushback

		next, ok := lx.rawNext()
		if !ok {
			break
		}
		if next.Type == TAGEND {
			lx.rawPushBack(next)
			break
		}
		if next.Type == IGNORABLE {
			// Look one token further: does a valueless attribute, or a name
			// followed by '=', begin here? If so, this whitespace is a
			// delimiter, not part of the value; stop before it.
			after, ok2 := lx.rawNext()
			if ok2 && after.Type == TEXT &&
				(isValueless(after.Text(lx.src)) || lx.looksLikeNewAttrEquals()) {
				*lx.sp = savedSp
				lx.rawPushback = savePushback
				break
			}
			if ok2 {
				lx.rawPushBack(after)
			}
			continue
		}
		if next.Type != TEXT {
			lx.rawPushBack(next)
			break
		}
		end = next.End
	}
	return Token{Start: first.Start, End: end, Type: ATTRVALUE}
}

// looksLikeNewAttrEquals peeks past a candidate attribute name
// token (already consumed by the caller) to see whether (optional
// whitespace then) '=' follows, which would mean that name begins a new
// attribute rather than continuing the current unquoted value. It restores
// the splitter and pushback state before returning.
func (lx *Lexer) looksLikeNewAttrEquals() bool {
	savedSp := *lx.sp
	savePushback := lx.rawPushback
	defer func() {
		*lx.sp = savedSp
		lx.rawPushback = savePushback
	}()

	next, ok := lx.rawNext()
	if ok && next.Type == IGNORABLE {
		next, ok = lx.rawNext()
	}
	return ok && next.Type == TEXT && next.Text(lx.src) == "="
}
