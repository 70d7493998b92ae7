package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownElements(t *testing.T) {
	for _, name := range []string{"p", "div", "a", "ul", "li", "table", "tr", "td", "script", "style"} {
		e := Lookup(name)
		require.NotNilf(t, e, "expected descriptor for %q", name)
		require.Equal(t, name, e.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	require.Nil(t, Lookup("frobnicator"))
}

func TestBlockContainerChildResolved(t *testing.T) {
	ul := Lookup("ul")
	require.NotNil(t, ul.BlockContainerChild)
	require.Equal(t, "li", ul.BlockContainerChild.Name)

	table := Lookup("table")
	require.NotNil(t, table.BlockContainerChild)
	require.Equal(t, "tbody", table.BlockContainerChild.Name)
}

func TestScriptIsEscapeExempt(t *testing.T) {
	script := Lookup("script")
	require.True(t, script.EscapeExempt)
	require.Equal(t, CDATA, script.Escaping)
}

func TestResumableFormattingElements(t *testing.T) {
	for _, name := range []string{"b", "i", "a", "font"} {
		e := Lookup(name)
		require.True(t, e.Resumable, name)
	}
	require.False(t, Lookup("div").Resumable)
}

func TestBlockedByScopesIsComplement(t *testing.T) {
	table := Lookup("table")
	require.Equal(t, ALL_SCOPES&^table.InScopes, table.BlockedByScopes)
}
