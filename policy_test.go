package sanitize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinAttributePoliciesIdentity(t *testing.T) {
	upper := func(elem, attr, value string) (string, bool) { return value + "!", true }
	identity := func(elem, attr, value string) (string, bool) { return value, true }
	rejectAll := func(elem, attr, value string) (string, bool) { return "", false }

	joined := JoinAttributePolicies(identity, upper)
	v, ok := joined("a", "title", "x")
	require.True(t, ok)
	require.Equal(t, "x!", v)

	// Reject-all absorbs regardless of position.
	_, ok = JoinAttributePolicies(rejectAll, upper)("a", "title", "x")
	require.False(t, ok)
	_, ok = JoinAttributePolicies(upper, rejectAll)("a", "title", "x")
	require.False(t, ok)
}

func TestJoinAttributePoliciesOrderSensitive(t *testing.T) {
	a := func(elem, attr, value string) (string, bool) { return value + "a", true }
	b := func(elem, attr, value string) (string, bool) { return value + "b", true }

	v1, _ := JoinAttributePolicies(a, b)("e", "x", "")
	v2, _ := JoinAttributePolicies(b, a)("e", "x", "")
	require.Equal(t, "ab", v1)
	require.Equal(t, "ba", v2)
}

func TestPolicyJoinUnionsElements(t *testing.T) {
	p := BasicFormatting().Join(Links())
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, `<b>x</b><a href="https://e.com/">y</a>`,
		s.Sanitize(`<b>x</b><a href="https://e.com/">y</a>`))
}

func TestURLSchemeValidation(t *testing.T) {
	s, err := New(Links())
	require.NoError(t, err)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https kept", `<a href="https://e.com/">x</a>`, `<a href="https://e.com/">x</a>`},
		{"mailto kept", `<a href="mailto:a@e.com">x</a>`, `<a href="mailto:a@e.com">x</a>`},
		{"relative kept", `<a href="/docs">x</a>`, `<a href="/docs">x</a>`},
		{"javascript dropped", `<a href="javascript:alert(1)">x</a>`, `<a>x</a>`},
		{"mixed-case scheme dropped", `<a href="JaVaScRiPt:alert(1)">x</a>`, `<a>x</a>`},
		{"tab-split scheme dropped", "<a href=\"java\tscript:alert(1)\">x</a>", `<a>x</a>`},
		{"data dropped", `<a href="data:text/html;base64,x">x</a>`, `<a>x</a>`},
		{"query before colon is relative", `<a href="/search?q=a:b">x</a>`, `<a href="/search?q=a:b">x</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, s.Sanitize(tt.in))
		})
	}
}

func TestDenyRelativeURLs(t *testing.T) {
	p, err := NewPolicy(
		AllowElements("a"),
		AllowAttrs("href").OnElements("a"),
		AllowURLSchemes("https"),
		DenyRelativeURLs(),
	)
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, `<a>x</a>`, s.Sanitize(`<a href="/docs">x</a>`))
	require.Equal(t, `<a href="https://e.com/">x</a>`, s.Sanitize(`<a href="https://e.com/">x</a>`))
}

func TestAttrsMatching(t *testing.T) {
	p, err := NewPolicy(
		AllowElements("td"),
		AllowAttrs("colspan").Matching(regexp.MustCompile(`^[0-9]{1,3}$`)).OnElements("td"),
	)
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, `<td colspan="2">x</td>`, s.Sanitize(`<td colspan=2>x</td>`))
	require.Equal(t, `<td>x</td>`, s.Sanitize(`<td colspan=evil>x</td>`))
}

func TestRewriteElement(t *testing.T) {
	p, err := NewPolicy(RewriteElement("b", "strong"))
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, `<strong>x</strong>`, s.Sanitize(`<b>x</b>`))
}

func TestElementHookVeto(t *testing.T) {
	p, err := NewPolicy(
		AllowElements("b", "i"),
		WithElementPolicy(func(name string, attrs []Attribute) (string, bool) {
			return name, name != "i"
		}),
	)
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, `<b>x</b>y`, s.Sanitize(`<b>x</b><i>y</i>`))
}

func TestNewWithoutPolicyFails(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoPolicy)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "policy", ce.Field)
}

func TestNestingLimitConfigError(t *testing.T) {
	_, err := New(BasicFormatting(), WithNestingLimit(0))
	require.ErrorIs(t, err, ErrNestingLimitTooLow)
	_, err = New(BasicFormatting(), WithNestingLimit(-3))
	require.ErrorIs(t, err, ErrNestingLimitTooLow)
}

func TestUnknownCSSPropertyConfigError(t *testing.T) {
	_, err := New(BasicFormatting(), WithCSSProperties("behavior"))
	require.ErrorIs(t, err, ErrUnknownCSSProperty)
	require.Contains(t, err.Error(), "behavior")
}

func TestWithCSSPropertiesRestricts(t *testing.T) {
	p, err := NewPolicy(AllowElements("span"), AllowStyleAttr())
	require.NoError(t, err)
	s, err := New(p, WithCSSProperties("color"))
	require.NoError(t, err)
	require.Equal(t, `<span style="color:red">x</span>`,
		s.Sanitize(`<span style="color: red; font-size: 12px">x</span>`))
}

func TestRejectAllPolicyKeepsTextOnly(t *testing.T) {
	p, err := NewPolicy()
	require.NoError(t, err)
	s, err := New(p)
	require.NoError(t, err)
	require.Equal(t, "xy", s.Sanitize(`<b>x</b><p>y</p>`))
}

func TestStyleDroppedWhenNotAllowed(t *testing.T) {
	s, err := New(BasicFormatting())
	require.NoError(t, err)
	require.Equal(t, `<span>x</span>`, s.Sanitize(`<span style="color:red">x</span>`))
}
