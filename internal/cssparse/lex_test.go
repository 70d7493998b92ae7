package cssparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokens(t *testing.T, css string) []string {
	t.Helper()
	ts, err := Lex(css)
	require.NoError(t, err)
	out := make([]string, ts.Len())
	for i := 0; i < ts.Len(); i++ {
		out[i] = ts.TokenText(i)
	}
	return out
}

func TestWhitespaceAndCommentsCollapse(t *testing.T) {
	ts, err := Lex("color  :  /* comment */ red  ")
	require.NoError(t, err)
	require.Equal(t, "color:red", ts.Text)
	require.Equal(t, []TokenType{Ident, Colon, Ident}, ts.Types)
}

func TestLegacyHTMLCommentCollapses(t *testing.T) {
	// The "<!--" and "-->" markers each collapse to a space; the text
	// between them is ordinary CSS and stays.
	ts, err := Lex("a<!-- x -->b")
	require.NoError(t, err)
	require.Equal(t, "a x b", ts.Text)
}

func TestStringReencoding(t *testing.T) {
	ts, err := Lex(`content: "a\"b<c>&d'e"`)
	require.NoError(t, err)
	require.Equal(t, String, ts.Types[2])
	require.Contains(t, ts.TokenText(2), `\22`)
	require.Contains(t, ts.TokenText(2), `\3c`)
	require.Contains(t, ts.TokenText(2), `\3e`)
	require.Contains(t, ts.TokenText(2), `\26`)
	require.Contains(t, ts.TokenText(2), `\27`)
	require.NotContains(t, ts.Text, `"`)
}

func TestURLNormalizedToQuotedPercentEncoded(t *testing.T) {
	// An unquoted url() ends at the first ')'; the second ')' is an orphan
	// close and is dropped.
	ts, err := Lex(`background:url(javascript:alert(1))`)
	require.NoError(t, err)
	var urlTok string
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] == URL {
			urlTok = ts.TokenText(i)
		}
	}
	require.Equal(t, `url('javascript:alert%281')`, urlTok)
}

func TestURLQuotedFormNormalizes(t *testing.T) {
	ts, err := Lex(`background:url("http://x/y z.png")`)
	require.NoError(t, err)
	var urlTok string
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] == URL {
			urlTok = ts.TokenText(i)
		}
	}
	require.Equal(t, `url('http://x/y%20z.png')`, urlTok)
}

func TestNumberPercentageDimension(t *testing.T) {
	ts, err := Lex(`margin: -1.5em 0 50% 3q`)
	require.NoError(t, err)
	var types []TokenType
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] != Whitespace {
			types = append(types, ts.Types[i])
		}
	}
	require.Equal(t, []TokenType{Ident, Colon, Dimension, Number, Percentage, Dimension}, types)
}

func TestUnknownUnitYieldsBadDimension(t *testing.T) {
	ts, err := Lex(`width:3zz`)
	require.NoError(t, err)
	require.Contains(t, ts.Types, BadDimension)
}

func TestIdentifiersLowercasedAndEscapesDecoded(t *testing.T) {
	ts, err := Lex(`COLOR: R\65 D`)
	require.NoError(t, err)
	require.Equal(t, "color", ts.TokenText(0))
	require.Equal(t, "red", ts.TokenText(2))
}

func TestHashClassification(t *testing.T) {
	ts, err := Lex(`color:#FFF`)
	require.NoError(t, err)
	var hashType TokenType
	var hashText string
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] == HashUnrestricted || ts.Types[i] == HashID {
			hashType = ts.Types[i]
			hashText = ts.TokenText(i)
		}
	}
	require.Equal(t, HashUnrestricted, hashType)
	require.Equal(t, "#fff", hashText)
}

func TestUnicodeRange(t *testing.T) {
	ts, err := Lex(`unicode-range: U+0025-00FF`)
	require.NoError(t, err)
	found := false
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] == UnicodeRange {
			found = true
			require.Equal(t, "u+0025-00ff", ts.TokenText(i))
		}
	}
	require.True(t, found)
}

func TestBracketsBalancedUnclosedOpenGetsSyntheticClose(t *testing.T) {
	ts, err := Lex(`background: linear-gradient(red, blue`)
	require.NoError(t, err)
	require.Equal(t, RightParen, ts.Types[ts.Len()-1])
	// the Function token's partner must point at the synthetic close.
	var fnIdx int
	for i := 0; i < ts.Len(); i++ {
		if ts.Types[i] == Function {
			fnIdx = i
		}
	}
	require.Equal(t, ts.Len()-1, ts.BracketPartner[fnIdx])
	require.Equal(t, fnIdx, ts.BracketPartner[ts.Len()-1])
}

func TestOrphanCloseDropped(t *testing.T) {
	ts, err := Lex(`color: red)`)
	require.NoError(t, err)
	for i := 0; i < ts.Len(); i++ {
		require.NotEqual(t, RightParen, ts.Types[i])
	}
}

func TestForbiddenMarkersScrubbed(t *testing.T) {
	ts, err := Lex(`content: "x"; /* </style` + " " + `*/`)
	require.NoError(t, err)
	lower := ts.Text
	require.NotContains(t, lower, "</style")
}

func TestDelimiterSeparationPreventsMerge(t *testing.T) {
	// Without a separating space, Ident "c" directly followed by Number
	// "1" would re-lex as the single Ident "c1"; N7 keeps a space token
	// between them.
	toks := tokens(t, `counter-reset: c 1`)
	require.Equal(t, []string{"counter-reset", ":", "c", " ", "1"}, toks)
}

func TestEmptyInput(t *testing.T) {
	ts, err := Lex("")
	require.NoError(t, err)
	require.Equal(t, 0, ts.Len())
	require.Equal(t, []int{0}, ts.Starts)
}
