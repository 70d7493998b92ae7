package cssfilter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicPropertyPassesThrough(t *testing.T) {
	out := Filter("color: red", DefaultSchema())
	require.Equal(t, "color:red", out)
}

func TestUnknownFunctionDropsDeclaration(t *testing.T) {
	out := Filter("color: red; width: expression(evil)", DefaultSchema())
	require.Equal(t, "color:red", out)
}

func TestURLDroppedByDefault(t *testing.T) {
	out := Filter("background: url(javascript:alert(1))", DefaultSchema())
	require.Equal(t, "", out)
}

func TestURLPolicyExtensionPoint(t *testing.T) {
	schema := DefaultSchema()
	schema.URLPolicy = func(u string) (string, bool) {
		if u == "https://example.com/x.png" {
			return u, true
		}
		return "", false
	}
	out := Filter("background: url(https://example.com/x.png)", schema)
	require.Equal(t, "background:url('https://example.com/x.png')", out)

	out2 := Filter("background: url(javascript:alert(1))", schema)
	require.Equal(t, "", out2)
}

func TestUnknownPropertyDropped(t *testing.T) {
	out := Filter("behavior: url(evil.htc); color: blue", DefaultSchema())
	require.Equal(t, "color:blue", out)
}

func TestVendorPrefixFallsBackToUnprefixed(t *testing.T) {
	out := Filter("-webkit-text-align: center", DefaultSchema())
	require.Equal(t, "-webkit-text-align:center", out)
}

func TestStrictVendorPrefixesRejects(t *testing.T) {
	schema := DefaultSchema()
	schema.StrictVendorPrefixes = true
	out := Filter("-webkit-text-align: center", schema)
	require.Equal(t, "", out)
}

func TestHashColorRequiresHashValueBit(t *testing.T) {
	out := Filter("color: #ff0000", DefaultSchema())
	require.Equal(t, "color:#ff0000", out)
}

func TestFontFamilyQuotesUnreservedWords(t *testing.T) {
	out := Filter("font-family: Arial Black, sans-serif", DefaultSchema())
	require.Equal(t, "font-family:'arial black', sans-serif", out)
}

func TestRGBFunctionAllowed(t *testing.T) {
	out := Filter("color: rgb(10, 20, 30)", DefaultSchema())
	require.Equal(t, "color:rgb(10, 20, 30)", out)
}

func TestNegativeMarginAllowed(t *testing.T) {
	out := Filter("margin-left: -5px", DefaultSchema())
	require.Equal(t, "margin-left:-5px", out)
}

func TestMalformedDeclarationRecoversToNextSemicolon(t *testing.T) {
	out := Filter("color red; color: green", DefaultSchema())
	require.Equal(t, "color:green", out)
}

func TestEmptyValueRollsBackDeclaration(t *testing.T) {
	out := Filter("color: ; width: 10px", DefaultSchema())
	require.Equal(t, "width:10px", out)
}
