// Package cssparse implements the normalizing CSS tokenizer: a one-shot
// Lex producing a normalized token stream as parallel arrays of start
// offsets, token types, and a bracket-partner index.
package cssparse

// TokenType classifies a normalized CSS token.
type TokenType uint8

const (
	Ident TokenType = iota
	DotIdent
	Function
	At
	HashID
	HashUnrestricted
	String
	URL
	Delim
	Number
	Percentage
	Dimension
	BadDimension
	UnicodeRange
	Match
	Column
	Whitespace
	Colon
	Semicolon
	Comma
	LeftSquare
	RightSquare
	LeftParen
	RightParen
	LeftCurly
	RightCurly
)

// TokenStream is the normalized CSS stream: the normalized
// text buffer, a sorted array of token start offsets (with a sentinel at
// the end equal to len(Text)), a parallel token-type vector, and a bracket
// partner index.
type TokenStream struct {
	Text string

	// Starts holds one entry per token plus a trailing sentinel equal to
	// len(Text), so token i's text is Text[Starts[i]:Starts[i+1]].
	Starts []int
	Types  []TokenType

	// BracketPartner[i] is the index of the matching close/open bracket
	// token for an open/close-bracket token at index i, or -1 for every
	// non-bracket token.
	BracketPartner []int
}

// Len returns the number of tokens (excluding the sentinel).
func (s *TokenStream) Len() int { return len(s.Types) }

// Text for token i.
func (s *TokenStream) TokenText(i int) string {
	return s.Text[s.Starts[i]:s.Starts[i+1]]
}

func (s *TokenStream) isOpen(i int) bool {
	switch s.Types[i] {
	case LeftParen, LeftSquare, LeftCurly, Function:
		return true
	}
	return false
}

func (s *TokenStream) isClose(i int) bool {
	switch s.Types[i] {
	case RightParen, RightSquare, RightCurly:
		return true
	}
	return false
}

func partnerOf(t TokenType) TokenType {
	switch t {
	case LeftParen, Function:
		return RightParen
	case LeftSquare:
		return RightSquare
	case LeftCurly:
		return RightCurly
	}
	return t
}
