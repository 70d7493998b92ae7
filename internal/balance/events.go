package balance

import (
	"strings"

	"github.com/dpotapov/htmlsanitizer/internal/entity"
	"github.com/dpotapov/htmlsanitizer/internal/htmltok"
	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// Walk drains lx, acting as the stream event source: it groups refined
// tokens into tags, canonicalizes names, entity-decodes attribute values,
// consults policy on each element/attribute, applies the style-attribute
// CSS filter, and calls recv's OpenDocument/OpenTag/CloseTag/Text/
// CloseDocument in strict forward order of the producing tokens. recv is
// typically a *Balancer.
func Walk(lx *htmltok.Lexer, policy Policy, recv Receiver) {
	w := &walker{lx: lx, policy: policy, recv: recv}
	w.run()
}

type dropEntry struct {
	name           string
	suppressesText bool
}

type walker struct {
	lx     *htmltok.Lexer
	policy Policy
	recv   Receiver

	// dropStack tracks raw (un-balanced) open tags whose ElementPolicy
	// rejected them, so the matching raw close tag can be suppressed too
	//. Kept elements are not pushed here.
	dropStack []dropEntry

	// suppressTextDepth counts how many currently-open dropped elements
	// want their raw content suppressed as well.
	suppressTextDepth int
}

func (w *walker) run() {
	w.recv.OpenDocument()
	src := w.lx.Source()
	for {
		tok, ok := w.lx.Next()
		if !ok {
			break
		}
		switch tok.Type {
		case htmltok.TAGBEGIN:
			w.handleTag(tok)
		case htmltok.TEXT:
			if w.suppressTextDepth > 0 {
				continue
			}
			w.recv.Text(entity.Decode(tok.Text(src)))
		case htmltok.UNESCAPED:
			if w.suppressTextDepth > 0 {
				continue
			}
			w.recv.Text(tok.Text(src))
		default:
			// COMMENT, DIRECTIVE, QMARKMETA, SERVERCODE, and any stray
			// TAGEND/QSTRING/IGNORABLE reaching the top level are dropped:
			// comments and processing instructions are not preserved, and
			// the Lexer never emits the others outside of handleTag's own
			// draining.
		}
	}
	w.recv.CloseDocument()
}

// handleTag consumes one full tag (open or close), starting from its
// TAGBEGIN token, draining attribute tokens through TAGEND.
func (w *walker) handleTag(begin htmltok.Token) {
	src := w.lx.Source()
	raw := begin.Text(src)
	isClose := strings.HasPrefix(raw, "</")
	nameStart := 1
	if isClose {
		nameStart = 2
	}
	name := canonicalName(raw[nameStart:])

	if isClose {
		w.drainToTagEnd() // close tags carry no attributes, but drain defensively
		w.closeTag(name)
		return
	}

	attrs, _ := w.collectAttrs()

	newName, keep := name, true
	if w.policy.Element != nil {
		newName, keep = w.policy.Element(name, attrs)
	}
	if !keep {
		w.dropStack = append(w.dropStack, dropEntry{name: name, suppressesText: isRawTextElement(name)})
		if isRawTextElement(name) {
			w.suppressTextDepth++
		}
		return
	}

	attrs = w.filterAttrs(newName, attrs)
	w.recv.OpenTag(newName, attrs)
}

// collectAttrs drains ATTRNAME/ATTRVALUE pairs until TAGEND, returning the
// ordered attribute list and whether the tag was self-closed ("/>").
func (w *walker) collectAttrs() ([]Attribute, bool) {
	src := w.lx.Source()
	var attrs []Attribute
	for {
		tok, ok := w.lx.Next()
		if !ok {
			return attrs, false
		}
		switch tok.Type {
		case htmltok.TAGEND:
			return attrs, tok.Len() == 2
		case htmltok.ATTRNAME:
			attrName := canonicalName(unquote(tok.Text(src)))
			attr := Attribute{Name: attrName, Valueless: true}
			if v, ok2 := w.lx.Peek(0); ok2 && v.Type == htmltok.ATTRVALUE {
				w.lx.Next()
				attr.Value = entity.Decode(unquote(v.Text(src)))
				attr.Valueless = false
			}
			attrs = append(attrs, attr)
		default:
			// Defensive: anything else encountered while scanning for
			// attributes is ignored rather than breaking the scan.
		}
	}
}

// drainToTagEnd consumes tokens up to and including the next TAGEND, for
// close tags (which carry no attributes but may be followed by stray
// tokens on malformed input).
func (w *walker) drainToTagEnd() {
	for {
		tok, ok := w.lx.Next()
		if !ok || tok.Type == htmltok.TAGEND {
			return
		}
	}
}

func (w *walker) filterAttrs(elementName string, attrs []Attribute) []Attribute {
	out := attrs[:0:0]
	for _, a := range attrs {
		if a.Name == "style" && w.policy.StyleFilter != nil {
			a.Value = w.policy.StyleFilter(a.Value)
		}
		if w.policy.Attribute != nil {
			newVal, keep := w.policy.Attribute(elementName, a.Name, a.Value)
			if !keep {
				continue
			}
			a.Value = newVal
		}
		out = append(out, a)
	}
	return out
}

func (w *walker) closeTag(name string) {
	if len(w.dropStack) > 0 {
		for i := len(w.dropStack) - 1; i >= 0; i-- {
			if w.dropStack[i].name == name {
				if w.dropStack[i].suppressesText {
					w.suppressTextDepth--
				}
				w.dropStack = w.dropStack[:i]
				return
			}
		}
	}
	w.recv.CloseTag(name)
}

// unquote strips the delimiter pair from a QSTRING-derived attribute value.
// Bare (unquoted) values never begin with a quote character (the splitter
// always starts a QSTRING there) and pass through unchanged. A quoted
// value cut short by EOF carries only its opening quote.
func unquote(s string) string {
	if len(s) == 0 || (s[0] != '"' && s[0] != '\'') {
		return s
	}
	if len(s) >= 2 && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s[1:]
}

// canonicalName implements the GLOSSARY's "Canonical name": ASCII-lowercase,
// except names containing ':' (namespaced SVG/MathML), preserved as-is.
func canonicalName(raw string) string {
	if strings.IndexByte(raw, ':') >= 0 {
		return raw
	}
	return trie.ASCIILower(raw)
}

// isRawTextElement reports whether an element's body is raw CDATA/RCDATA
// text rather than ordinary child markup, so dropping the element should
// also drop its content instead of re-parenting it.
func isRawTextElement(name string) bool {
	switch name {
	case "script", "style", "xmp", "iframe", "listing", "textarea", "title", "noframes", "noscript":
		return true
	}
	return false
}
