// Package htmltok implements the two-stage streaming HTML tokenizer: raw
// characters in, a stream of typed, immutable, half-open-range tokens out.
// The pull model mirrors golang.org/x/net/html.Tokenizer's Next/Raw loop,
// with a coarse splitter stage feeding a refining lexer that reclassifies
// in-tag text as attribute names and values.
package htmltok

// TokenType classifies a Token.
type TokenType uint8

const (
	TEXT TokenType = iota
	UNESCAPED
	TAGBEGIN
	TAGEND
	ATTRNAME
	ATTRVALUE
	QSTRING
	COMMENT
	DIRECTIVE
	SERVERCODE
	QMARKMETA
	IGNORABLE
)

func (t TokenType) String() string {
	switch t {
	case TEXT:
		return "TEXT"
	case UNESCAPED:
		return "UNESCAPED"
	case TAGBEGIN:
		return "TAGBEGIN"
	case TAGEND:
		return "TAGEND"
	case ATTRNAME:
		return "ATTRNAME"
	case ATTRVALUE:
		return "ATTRVALUE"
	case QSTRING:
		return "QSTRING"
	case COMMENT:
		return "COMMENT"
	case DIRECTIVE:
		return "DIRECTIVE"
	case SERVERCODE:
		return "SERVERCODE"
	case QMARKMETA:
		return "QMARKMETA"
	case IGNORABLE:
		return "IGNORABLE"
	}
	return "UNKNOWN"
}

// Token is a half-open range [Start, End) into the original input, tagged
// with a Type. Tokens are immutable; reclassification produces a new Token
// value with the same range and a different Type, never mutating one in
// place.
type Token struct {
	Start, End int
	Type       TokenType
}

// Len returns the byte length of the token's range.
func (t Token) Len() int { return t.End - t.Start }

// Text materializes the token's range against the original input. Any
// token can be rematerialized as text for the lifetime of the source the
// Lexer was built on.
func (t Token) Text(src string) string { return src[t.Start:t.End] }
