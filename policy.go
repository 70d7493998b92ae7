// Package sanitize is the public surface of the HTML sanitizer: the
// declarative policy builder, the Sanitizer type tying the internal pipeline
// together, and a set of ready-made composable policies. The core lexing,
// balancing, and CSS filtering live under internal/.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// Attribute is an ordered (name, value) pair on an element. Valueless marks
// a boolean attribute written without '=' (`checked`), which serializes
// bare rather than as an empty string.
type Attribute struct {
	Name      string
	Value     string
	Valueless bool
}

// ElementPolicy decides, per opening tag, the element name to emit
// (possibly rewritten) and whether to keep the element at all.
type ElementPolicy func(name string, attrs []Attribute) (newName string, keep bool)

// AttributePolicy decides, per attribute, the value to emit (possibly
// rewritten) or whether to drop the attribute. The element and
// attribute names arrive lowercased and the value entity-decoded.
type AttributePolicy func(elementName, attrName, value string) (newValue string, keep bool)

// JoinAttributePolicies composes policies left to right: each policy sees
// the previous one's rewritten value, and the first drop short-circuits:
// joining with a reject-all policy rejects everything, and joining with the
// identity is a no-op.
func JoinAttributePolicies(policies ...AttributePolicy) AttributePolicy {
	return func(elem, attr, value string) (string, bool) {
		v := value
		for _, p := range policies {
			if p == nil {
				continue
			}
			nv, ok := p(elem, attr, v)
			if !ok {
				return "", false
			}
			v = nv
		}
		return v, true
	}
}

// Policy is an immutable-after-construction whitelist of elements and
// attributes. Build one with NewPolicy and the option constructors, or
// start from the ready-made policies (BasicFormatting, Links, Images,
// Tables) and Join them.
type Policy struct {
	// elements maps an allowed canonical element name to the name to emit
	// (usually itself; RewriteElement installs a different target).
	elements map[string]string

	// elementHooks run after the whitelist admits an element, in
	// installation order; each may rename or veto it.
	elementHooks []ElementPolicy

	// globalAttrs and elementAttrs map attribute names to their value
	// policies; a nil AttributePolicy accepts the value unchanged.
	globalAttrs  map[string]AttributePolicy
	elementAttrs map[string]map[string]AttributePolicy

	allowStyle bool

	urlSchemes        map[string]struct{}
	allowRelativeURLs bool
}

// PolicyOption configures a Policy under construction.
type PolicyOption func(*Policy) error

// NewPolicy builds a Policy from the given options. With no options the
// policy rejects every element and attribute ("reject all").
func NewPolicy(opts ...PolicyOption) (*Policy, error) {
	p := &Policy{
		elements:          map[string]string{},
		globalAttrs:       map[string]AttributePolicy{},
		elementAttrs:      map[string]map[string]AttributePolicy{},
		urlSchemes:        map[string]struct{}{},
		allowRelativeURLs: true,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func mustPolicy(p *Policy, err error) *Policy {
	if err != nil {
		panic(err) // unreachable for the built-in policies
	}
	return p
}

// AllowElements whitelists elements by name.
func AllowElements(names ...string) PolicyOption {
	return func(p *Policy) error {
		for _, n := range names {
			n = canonical(n)
			p.elements[n] = n
		}
		return nil
	}
}

// RewriteElement whitelists element from and renames it to to on output
// (e.g. RewriteElement("b", "strong")).
func RewriteElement(from, to string) PolicyOption {
	return func(p *Policy) error {
		p.elements[canonical(from)] = canonical(to)
		return nil
	}
}

// WithElementPolicy installs a hook that runs after the whitelist admits
// an element; it may rename the element or veto it outright.
func WithElementPolicy(ep ElementPolicy) PolicyOption {
	return func(p *Policy) error {
		p.elementHooks = append(p.elementHooks, ep)
		return nil
	}
}

// AllowStyleAttr permits the style attribute; its value is rewritten by the
// CSS property filter before the policy sees it, and the attribute is
// dropped when nothing survives filtering.
func AllowStyleAttr() PolicyOption {
	return func(p *Policy) error {
		p.allowStyle = true
		return nil
	}
}

// AllowURLSchemes sets the schemes URL-valued attributes (href, src, ...)
// may use. Relative URLs remain allowed; use DenyRelativeURLs to forbid
// them. Without this option no absolute scheme is accepted.
func AllowURLSchemes(schemes ...string) PolicyOption {
	return func(p *Policy) error {
		for _, s := range schemes {
			p.urlSchemes[canonical(s)] = struct{}{}
		}
		return nil
	}
}

// DenyRelativeURLs drops URL-valued attributes whose value has no scheme.
func DenyRelativeURLs() PolicyOption {
	return func(p *Policy) error {
		p.allowRelativeURLs = false
		return nil
	}
}

// AttrsBuilder accumulates an attribute whitelist entry before it is bound
// to elements (or globally) as a PolicyOption.
type AttrsBuilder struct {
	names  []string
	policy AttributePolicy
}

// AllowAttrs begins an attribute whitelist entry for the named attributes.
func AllowAttrs(names ...string) *AttrsBuilder {
	b := &AttrsBuilder{}
	for _, n := range names {
		b.names = append(b.names, canonical(n))
	}
	return b
}

// Matching requires attribute values to match re; non-matching values drop
// the attribute.
func (b *AttrsBuilder) Matching(re *regexp.Regexp) *AttrsBuilder {
	prev := b.policy
	b.policy = JoinAttributePolicies(prev, func(elem, attr, value string) (string, bool) {
		return value, re.MatchString(value)
	})
	return b
}

// WithPolicy attaches a custom value policy, joined after any Matching
// constraint already installed.
func (b *AttrsBuilder) WithPolicy(ap AttributePolicy) *AttrsBuilder {
	b.policy = JoinAttributePolicies(b.policy, ap)
	return b
}

// OnElements binds the entry to the named elements.
func (b *AttrsBuilder) OnElements(elements ...string) PolicyOption {
	return func(p *Policy) error {
		for _, e := range elements {
			e = canonical(e)
			m := p.elementAttrs[e]
			if m == nil {
				m = map[string]AttributePolicy{}
				p.elementAttrs[e] = m
			}
			for _, n := range b.names {
				m[n] = joinExisting(m[n], b.policy)
			}
		}
		return nil
	}
}

// Globally binds the entry to every allowed element.
func (b *AttrsBuilder) Globally() PolicyOption {
	return func(p *Policy) error {
		for _, n := range b.names {
			p.globalAttrs[n] = joinExisting(p.globalAttrs[n], b.policy)
		}
		return nil
	}
}

// joinExisting merges a re-declared attribute entry with a prior one; both
// nil (accept as-is) stays nil so the common case allocates nothing.
func joinExisting(prev, next AttributePolicy) AttributePolicy {
	if prev == nil {
		return next
	}
	if next == nil {
		return prev
	}
	return JoinAttributePolicies(prev, next)
}

// Join returns a new Policy allowing what either policy allows. Attribute
// entries present in both are chained p-then-other, short-circuiting on
// drop; URL schemes union; style stays allowed if either side allows it.
func (p *Policy) Join(other *Policy) *Policy {
	out := mustPolicy(NewPolicy())
	for k, v := range p.elements {
		out.elements[k] = v
	}
	for k, v := range other.elements {
		out.elements[k] = v
	}
	out.elementHooks = append(out.elementHooks, p.elementHooks...)
	out.elementHooks = append(out.elementHooks, other.elementHooks...)
	for k, v := range p.globalAttrs {
		out.globalAttrs[k] = v
	}
	for k, v := range other.globalAttrs {
		out.globalAttrs[k] = joinExisting(out.globalAttrs[k], v)
	}
	for e, m := range p.elementAttrs {
		om := map[string]AttributePolicy{}
		for k, v := range m {
			om[k] = v
		}
		out.elementAttrs[e] = om
	}
	for e, m := range other.elementAttrs {
		om := out.elementAttrs[e]
		if om == nil {
			om = map[string]AttributePolicy{}
			out.elementAttrs[e] = om
		}
		for k, v := range m {
			om[k] = joinExisting(om[k], v)
		}
	}
	for s := range p.urlSchemes {
		out.urlSchemes[s] = struct{}{}
	}
	for s := range other.urlSchemes {
		out.urlSchemes[s] = struct{}{}
	}
	out.allowStyle = p.allowStyle || other.allowStyle
	out.allowRelativeURLs = p.allowRelativeURLs && other.allowRelativeURLs
	return out
}

// urlAttrs is the set of attributes whose values are URLs and therefore
// subject to scheme validation whenever a policy allows them.
var urlAttrs = map[string]struct{}{
	"href": {}, "src": {}, "cite": {}, "action": {}, "formaction": {},
	"poster": {}, "background": {}, "longdesc": {},
}

func isURLAttr(name string) bool {
	_, ok := urlAttrs[name]
	return ok
}

// validURL checks raw against the policy's scheme whitelist. Scheme
// detection ignores ASCII control characters and whitespace so encodings
// like "java\tscript:" cannot smuggle a scheme past the check.
func (p *Policy) validURL(raw string) (string, bool) {
	trimmed := trie.TrimHTMLSpace(raw)
	var probe strings.Builder
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c <= 0x20 {
			continue
		}
		probe.WriteByte(trie.ASCIILowerByte(c))
	}
	s := probe.String()
	colon := strings.IndexByte(s, ':')
	slash := strings.IndexAny(s, "/?#")
	if colon < 0 || (slash >= 0 && slash < colon) {
		// No scheme: a relative reference.
		return trimmed, p.allowRelativeURLs
	}
	_, ok := p.urlSchemes[s[:colon]]
	return trimmed, ok
}

func canonical(name string) string {
	if strings.IndexByte(name, ':') >= 0 {
		return name
	}
	return trie.ASCIILower(name)
}

// BasicFormatting allows the common textual formatting and grouping
// elements with no attributes beyond title.
func BasicFormatting() *Policy {
	return mustPolicy(NewPolicy(
		AllowElements(
			"b", "i", "u", "s", "em", "strong", "small", "big", "tt",
			"code", "kbd", "samp", "var", "sub", "sup", "mark", "span",
			"abbr", "cite", "q", "br", "wbr", "hr",
			"p", "div", "blockquote", "pre",
			"h1", "h2", "h3", "h4", "h5", "h6",
			"ul", "ol", "li", "dl", "dt", "dd",
		),
		AllowAttrs("title").Globally(),
	))
}

// Links allows anchors with scheme-checked href values.
func Links() *Policy {
	return mustPolicy(NewPolicy(
		AllowElements("a"),
		AllowAttrs("href", "title").OnElements("a"),
		AllowURLSchemes("http", "https", "mailto"),
	))
}

// Images allows img with scheme-checked src and the presentation basics.
func Images() *Policy {
	return mustPolicy(NewPolicy(
		AllowElements("img"),
		AllowAttrs("src", "alt", "title", "width", "height").OnElements("img"),
		AllowURLSchemes("http", "https"),
	))
}

// Tables allows the table structure elements and the cell-span attributes.
func Tables() *Policy {
	return mustPolicy(NewPolicy(
		AllowElements(
			"table", "caption", "colgroup", "col",
			"thead", "tbody", "tfoot", "tr", "td", "th",
		),
		AllowAttrs("colspan", "rowspan").Matching(regexp.MustCompile(`^[0-9]{1,3}$`)).OnElements("td", "th"),
		AllowAttrs("scope").Matching(regexp.MustCompile(`^(?:row|col|rowgroup|colgroup)$`)).OnElements("td", "th"),
	))
}
