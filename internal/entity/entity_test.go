package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a &amp; b", "a & b"},
		{"&lt;script&gt;", "<script>"},
		{"&#38;", "&"},
		{"&#x26;", "&"},
		{"&#x26", "&"},
		{"no entities here", "no entities here"},
		{"&unknownentity;", "&unknownentity;"},
		{"&amp&amp;", "&&"},
		{"&notin;", "¬in;"}, // "not" (no trailing ;) is the longest match in our table
		{"&not;in;", "¬in;"},
		{"&#0;", string(rune(0xFFFD))},
		{"&#x110000;", string(rune(0xFFFD))},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Decode(tt.in), tt.in)
	}
}
