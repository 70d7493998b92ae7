package trie

import "testing"

import "github.com/stretchr/testify/require"

func TestLongestPrefix(t *testing.T) {
	tr := New[int]()
	tr.Put("not", 1)
	tr.Put("notin", 2)
	tr.Put("notinva", 3)
	tr.Put("notinvac", 4)

	tests := []struct {
		in      string
		wantLen int
		wantOK  bool
		wantVal int
	}{
		{"notin;", 5, true, 2},
		{"notinvac;", 8, true, 4},
		{"nope", 0, false, 0},
		{"not", 3, true, 1},
	}
	for _, tt := range tests {
		val, n, ok := tr.LongestPrefix(tt.in)
		require.Equal(t, tt.wantOK, ok, tt.in)
		require.Equal(t, tt.wantLen, n, tt.in)
		if ok {
			require.Equal(t, tt.wantVal, val, tt.in)
		}
	}
}

func TestASCIILower(t *testing.T) {
	require.Equal(t, "abc", ASCIILower("ABC"))
	require.Equal(t, "a-z:foo", ASCIILower("A-Z:FOO"))
	// Non-ASCII bytes must pass through untouched (strictly ASCII-only fold).
	require.Equal(t, "café", ASCIILower("café"))
}

func TestEqualFold(t *testing.T) {
	require.True(t, EqualFold("CHECKED", "checked"))
	require.False(t, EqualFold("checked", "check"))
}

func TestIsAllHTMLSpace(t *testing.T) {
	require.True(t, IsAllHTMLSpace(" \t\n\f\r"))
	require.False(t, IsAllHTMLSpace(" x"))
	require.True(t, IsAllHTMLSpace(""))
}
