package sanitize

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dpotapov/htmlsanitizer/internal/balance"
	"github.com/dpotapov/htmlsanitizer/internal/cssfilter"
	"github.com/dpotapov/htmlsanitizer/internal/descriptor"
	"github.com/dpotapov/htmlsanitizer/internal/htmltok"
)

// Sanitizer applies a Policy to untrusted HTML, producing a balanced,
// well-nested fragment safe to embed in a trusted page. A Sanitizer is
// immutable after New and safe for concurrent use; each Sanitize call owns
// its own lexer and balancer instances.
type Sanitizer struct {
	policy *Policy
	limit  int
	schema cssfilter.Schema
	logger *slog.Logger
}

// Option configures a Sanitizer under construction.
type Option func(*Sanitizer) error

// WithNestingLimit bounds the output's open-element depth. n must be
// positive; the default is unbounded.
func WithNestingLimit(n int) Option {
	return func(s *Sanitizer) error {
		if n < 1 {
			return &ConfigError{Field: "nesting limit", Err: ErrNestingLimitTooLow}
		}
		s.limit = n
		return nil
	}
}

// WithCSSProperties restricts the style-attribute whitelist to the named
// properties of the default schema (plus the function argument sub-schemas
// they reference). Naming a property the default schema does not know is a
// configuration error.
func WithCSSProperties(names ...string) Option {
	return func(s *Sanitizer) error {
		def := cssfilter.DefaultSchema()
		out := cssfilter.Schema{
			Properties:           map[string]cssfilter.PropertySchema{},
			StrictVendorPrefixes: s.schema.StrictVendorPrefixes,
			URLPolicy:            s.schema.URLPolicy,
		}
		var add func(key string) bool
		add = func(key string) bool {
			if _, ok := out.Properties[key]; ok {
				return true
			}
			ps, ok := def.Properties[key]
			if !ok {
				return false
			}
			out.Properties[key] = ps
			for _, sub := range ps.Functions {
				add(sub)
			}
			return true
		}
		for _, n := range names {
			n = canonical(n)
			if !add(n) {
				return &ConfigError{Field: "css properties", Err: fmt.Errorf("%w: %s", ErrUnknownCSSProperty, n)}
			}
		}
		s.schema = out
		return nil
	}
}

// WithStrictVendorPrefixes rejects vendor-prefixed CSS properties outright
// instead of retrying against the unprefixed schema entry.
func WithStrictVendorPrefixes() Option {
	return func(s *Sanitizer) error {
		s.schema.StrictVendorPrefixes = true
		return nil
	}
}

// WithStyleURLPolicy wires a validator for url(...) tokens inside style
// attributes; without it every such token is dropped.
func WithStyleURLPolicy(fn func(url string) (string, bool)) Option {
	return func(s *Sanitizer) error {
		s.schema.URLPolicy = fn
		return nil
	}
}

// WithLogger routes diagnostic events (dropped elements, rejected
// attributes) to l. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sanitizer) error {
		s.logger = l
		return nil
	}
}

// New builds a Sanitizer around policy.
func New(policy *Policy, opts ...Option) (*Sanitizer, error) {
	if policy == nil {
		return nil, &ConfigError{Field: "policy", Err: ErrNoPolicy}
	}
	s := &Sanitizer{
		policy: policy,
		schema: cssfilter.DefaultSchema(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Sanitize rewrites untrusted HTML into a balanced fragment containing only
// policy-approved elements and attributes. It never fails: malformed input
// recovers locally, and every input yields a balanced fragment.
func (s *Sanitizer) Sanitize(html string) string {
	var b strings.Builder
	b.Grow(len(html))
	ser := &serializer{b: &b}
	bal := balance.NewBalancer(ser, s.limit)
	balance.Walk(htmltok.NewLexer(html), s.balancePolicy(), bal)
	return b.String()
}

// SanitizeBytes is Sanitize for a byte slice input.
func (s *Sanitizer) SanitizeBytes(html []byte) []byte {
	return []byte(s.Sanitize(string(html)))
}

// balancePolicy adapts the declarative Policy to the event source's
// callback interface.
func (s *Sanitizer) balancePolicy() balance.Policy {
	p := balance.Policy{
		Element: func(name string, attrs []balance.Attribute) (string, bool) {
			newName, ok := s.policy.elements[name]
			if !ok {
				s.logger.Debug("dropping element", slog.String("tag", name))
				return name, false
			}
			if len(s.policy.elementHooks) > 0 {
				converted := make([]Attribute, len(attrs))
				for i, a := range attrs {
					converted[i] = Attribute{Name: a.Name, Value: a.Value, Valueless: a.Valueless}
				}
				for _, hook := range s.policy.elementHooks {
					newName, ok = hook(newName, converted)
					if !ok {
						s.logger.Debug("dropping element", slog.String("tag", name))
						return name, false
					}
				}
			}
			return newName, true
		},
		Attribute: s.filterAttribute,
	}
	if s.policy.allowStyle {
		schema := s.schema
		p.StyleFilter = func(v string) string { return cssfilter.Filter(v, schema) }
	}
	return p
}

func (s *Sanitizer) filterAttribute(elem, attr, value string) (string, bool) {
	if attr == "style" {
		if !s.policy.allowStyle || value == "" {
			return "", false
		}
		return value, true // already rewritten by the CSS filter
	}
	ap, allowed := s.policy.elementAttrs[elem][attr]
	if !allowed {
		ap, allowed = s.policy.globalAttrs[attr]
	}
	if !allowed {
		s.logger.Debug("dropping attribute",
			slog.String("tag", elem), slog.String("attr", attr))
		return "", false
	}
	if ap != nil {
		nv, ok := ap(elem, attr, value)
		if !ok {
			return "", false
		}
		value = nv
	}
	if isURLAttr(attr) {
		nv, ok := s.policy.validURL(value)
		if !ok {
			s.logger.Debug("rejecting url",
				slog.String("tag", elem), slog.String("attr", attr))
			return "", false
		}
		value = nv
	}
	return value, true
}

// serializer renders balanced events back to HTML text, re-encoding
// character data so the output cannot break out of its insertion context.
type serializer struct {
	b *strings.Builder
}

func (w *serializer) OpenDocument()  {}
func (w *serializer) CloseDocument() {}

func (w *serializer) OpenTag(name string, attrs []balance.Attribute) {
	w.b.WriteByte('<')
	w.b.WriteString(name)
	for _, a := range attrs {
		w.b.WriteByte(' ')
		w.b.WriteString(a.Name)
		if a.Valueless {
			continue
		}
		w.b.WriteString(`="`)
		escapeAttr(w.b, a.Value)
		w.b.WriteByte('"')
	}
	if el := descriptor.Lookup(name); el != nil && el.IsVoid {
		w.b.WriteString(" />")
		return
	}
	w.b.WriteByte('>')
}

func (w *serializer) CloseTag(name string) {
	w.b.WriteString("</")
	w.b.WriteString(name)
	w.b.WriteByte('>')
}

func (w *serializer) Text(chars string) {
	escapeText(w.b, chars)
}

func escapeText(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteByte(s[i])
		}
	}
}

func escapeAttr(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&#34;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(s[i])
		}
	}
}
