package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	policy := BasicFormatting().Join(Links()).Join(Images()).Join(Tables())
	formPolicy, err := NewPolicy(
		AllowElements("input"),
		AllowAttrs("type", "checked").OnElements("input"),
	)
	require.NoError(t, err)
	stylePolicy, err := NewPolicy(AllowStyleAttr())
	require.NoError(t, err)
	s, err := New(policy.Join(formPolicy).Join(stylePolicy))
	require.NoError(t, err)
	return s
}

func TestScenarioTable(t *testing.T) {
	s := defaultSanitizer(t)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraph implicit close", `<p>1<p>2`, `<p>1</p><p>2</p>`},
		{"adoption agency", `<b>Foo<i>Bar</b>Baz</i>`, `<b>Foo<i>Bar</i></b><i>Baz</i>`},
		{"valueless attribute", `<input type=checkbox checked>`, `<input type="checkbox" checked />`},
		{"empty attribute value", `<input type=checkbox checked=>`, `<input type="checkbox" checked="" />`},
		{"unquoted value absorbs space", `<a title=foo bar>x</a>`, `<a title="foo bar">x</a>`},
		{"implied list item", `<ul><p>x</p></ul>`, `<ul><li><p>x</p></li></ul>`},
		{"script stripped with body", `<script>alert(1)</script>`, ``},
		{"event handler stripped", `<b onclick=evil>x</b>`, `<b>x</b>`},
		{"style filtered", `<span style="color: red; expression(evil)">x</span>`, `<span style="color:red">x</span>`},
		{"style url dropped", `<span style="background: url(javascript:foo)">x</span>`, `<span>x</span>`},
		{"double-encoded entity", `&amp;#x26;`, `&amp;#x26;`},
		{"header cross-level close", `<h1>a</h2>`, `<h1>a</h1>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, s.Sanitize(tt.in))
		})
	}
}

func TestIdempotence(t *testing.T) {
	s := defaultSanitizer(t)
	inputs := []string{
		`<p>1<p>2`,
		`<b>Foo<i>Bar</b>Baz</i>`,
		`<input type=checkbox checked>`,
		`<a title=foo bar>x</a>`,
		`<ul><p>x</p></ul>`,
		`<b onclick=evil>x</b>`,
		`<span style="color: red">x</span>`,
		`&amp;#x26;`,
		`<h1>a</h2>`,
		`<table><tr><td>1<td>2</table>`,
		`plain text & entities &lt;here&gt;`,
		`<div><div><div>deep</div>`,
		`<a href="https://example.com/">link</a>`,
	}
	for _, in := range inputs {
		once := s.Sanitize(in)
		require.Equal(t, once, s.Sanitize(once), "not idempotent for %q", in)
	}
}

func TestDangerousConstructsNeverSurvive(t *testing.T) {
	s := defaultSanitizer(t)
	inputs := []string{
		`<script>alert(1)</script>`,
		`<SCRIPT SRC=//evil.example/x.js></SCRIPT>`,
		`<img src="javascript:alert(1)">`,
		`<img src="java&#9;script:alert(1)">`,
		`<a href="jAvAsCrIpT:alert(1)">x</a>`,
		`<b onmouseover="evil()">x</b>`,
		`<style>body{background:url(javascript:1)}</style>`,
		`<iframe src="https://evil.example"></iframe>`,
		`<p style="width: expression(alert(1))">x</p>`,
		`<!--[if IE]><script>alert(1)</script><![endif]-->`,
	}
	for _, in := range inputs {
		out := s.Sanitize(in)
		lower := strings.ToLower(out)
		require.NotContains(t, lower, "<script", "input %q", in)
		require.NotContains(t, lower, "<style", "input %q", in)
		require.NotContains(t, lower, "javascript:", "input %q", in)
		require.NotContains(t, lower, "onmouseover", "input %q", in)
		require.NotContains(t, lower, "expression(", "input %q", in)
	}
}

func TestOutputBalanced(t *testing.T) {
	s := defaultSanitizer(t)
	inputs := []string{
		`<b><i><u>deep`,
		`</b></i>orphans`,
		`<ul><li>a<li>b`,
		`<table><tr><td>x`,
		`<p><b>x<p>y`,
		`<a href="https://e.com"><div>block in link`,
	}
	for _, in := range inputs {
		out := s.Sanitize(in)
		var stack []string
		for i := 0; i < len(out); {
			if out[i] != '<' {
				i++
				continue
			}
			end := strings.IndexByte(out[i:], '>')
			require.GreaterOrEqual(t, end, 0, "unterminated tag in %q", out)
			tag := out[i : i+end+1]
			i += end + 1
			if strings.HasSuffix(tag, "/>") {
				continue
			}
			if strings.HasPrefix(tag, "</") {
				name := tag[2 : len(tag)-1]
				require.NotEmpty(t, stack, "orphan close %s in %q", name, out)
				require.Equal(t, stack[len(stack)-1], name, "ill-nested close in %q", out)
				stack = stack[:len(stack)-1]
				continue
			}
			name := tag[1:]
			if j := strings.IndexAny(name, " >"); j >= 0 {
				name = name[:j]
			} else {
				name = strings.TrimSuffix(name, ">")
			}
			stack = append(stack, name)
		}
		require.Empty(t, stack, "unclosed elements in %q", out)
	}
}

func TestNestingLimitOption(t *testing.T) {
	s, err := New(BasicFormatting(), WithNestingLimit(2))
	require.NoError(t, err)
	out := s.Sanitize(`<div><div><div><div>deep</div></div></div></div>`)
	require.Equal(t, `<div><div>deep</div></div>`, out)
}

func TestEmptyAndTextOnlyInput(t *testing.T) {
	s := defaultSanitizer(t)
	require.Equal(t, "", s.Sanitize(""))
	require.Equal(t, "a &amp; b", s.Sanitize("a & b"))
}

func TestSanitizeBytes(t *testing.T) {
	s := defaultSanitizer(t)
	require.Equal(t, []byte(`<p>x</p>`), s.SanitizeBytes([]byte(`<p>x`)))
}

func TestCommentsAndDirectivesStripped(t *testing.T) {
	s := defaultSanitizer(t)
	require.Equal(t, "ab", s.Sanitize(`a<!-- secret --><!DOCTYPE html><?pi?><% code %>b`))
}

func TestConcurrentUse(t *testing.T) {
	s := defaultSanitizer(t)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				assert.Equal(t, `<p>1</p><p>2</p>`, s.Sanitize(`<p>1<p>2`))
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
