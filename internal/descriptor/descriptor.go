// Package descriptor holds the immutable HTML element descriptor table that
// drives the tag balancer's content-model decisions. The table is built once
// at package init as a flat slice of descriptors, keyed by atom.Atom where
// the element has a well-known atom, with a two-pass construction resolving
// the block-container-child links (which form a graph, not a tree).
package descriptor

import (
	"golang.org/x/net/html/atom"

	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

// Group is a bitfield over the content-model element groups.
type Group uint32

const (
	BLOCK Group = 1 << iota
	INLINE
	INLINE_MINUS_A
	MIXED
	TABLE_CONTENT
	HEAD_CONTENT
	TOP_CONTENT
	AREA
	FORM
	LEGEND
	LI
	DL_PART
	P
	OPTIONS
	OPTION
	PARAM
	TABLE_GROUP
	TR
	TD
	COL
	CHARACTER_DATA
)

// ALL_SCOPES is the union of every scope bit.
const ALL_SCOPES Scope = COMMON | BUTTON | LIST_ITEM | TABLE

// Scope is a bitfield over the close-tag scope classes.
type Scope uint8

const (
	COMMON Scope = 1 << iota
	BUTTON
	LIST_ITEM
	TABLE
)

// EscapeMode is the text-escaping mode of an escape-exempt element.
type EscapeMode uint8

const (
	PCDATA EscapeMode = iota
	CDATA
	CDATASometimes
	RCDATA
	PLAIN_TEXT
	VOID
)

// Element is the immutable per-element descriptor.
type Element struct {
	Name string

	Types         Group
	Contents      Group
	TransparentTo Group

	Resumable bool

	// BlockContainerChild is the implied child descriptor (e.g. <ul> implies
	// <li>), resolved by name via a second construction pass to avoid a
	// literal Go initialization cycle between table entries.
	BlockContainerChild *Element

	InScopes        Scope
	BlockedByScopes Scope

	IsVoid bool

	// Escape-exempt metadata, zero value for ordinary elements.
	EscapeExempt       bool
	Escaping           EscapeMode
	AllowsEscapingSpan bool // HTML5 "escaping text span" <!--...--> inside CDATA/RCDATA
}

var (
	byAtom   = map[atom.Atom]*Element{}
	byName   = map[string]*Element{} // elements without a well-known atom (rare)
	nameTrie *trie.Trie[*Element]
)

// Lookup returns the descriptor for a canonical (already-lowercased, unless
// namespaced) element name, or nil if the element is unknown to the table.
func Lookup(name string) *Element {
	if a := atom.Lookup([]byte(name)); a != 0 {
		if e, ok := byAtom[a]; ok {
			return e
		}
	}
	if e, ok := byName[name]; ok {
		return e
	}
	if e, n, ok := nameTrie.LongestPrefix(name); ok && n == len(name) {
		return e
	}
	return nil
}

type spec struct {
	name               string
	types              Group
	contents           Group
	transparentTo      Group
	resumable          bool
	blockContainerName string // resolved to BlockContainerChild after the table is built
	inScopes           Scope
	isVoid             bool
	escapeExempt       bool
	escaping           EscapeMode
	allowsEscapingSpan bool
}

// table declares every element the balancer knows.
// Content groups follow conventional HTML5 categorization: BLOCK covers the
// flow-content block-level elements, INLINE the phrasing-content elements,
// INLINE_MINUS_A inline content that must not nest an <a>, MIXED both block
// and inline, TABLE_CONTENT/HEAD_CONTENT/TOP_CONTENT the document structural
// slots, and the remaining groups the special single-purpose content models
// (list items, definition-list parts, table rows/cells/columns, etc.).
var table = []spec{
	// Document/metadata structure.
	{name: "html", contents: TOP_CONTENT, types: TOP_CONTENT},
	{name: "head", contents: HEAD_CONTENT, types: TOP_CONTENT},
	{name: "body", contents: BLOCK | MIXED, types: TOP_CONTENT},
	{name: "title", types: HEAD_CONTENT, contents: CHARACTER_DATA, escapeExempt: true, escaping: RCDATA},
	{name: "base", types: HEAD_CONTENT, isVoid: true},
	{name: "link", types: HEAD_CONTENT | INLINE, isVoid: true},
	{name: "meta", types: HEAD_CONTENT, isVoid: true},
	{name: "style", types: HEAD_CONTENT, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA},

	// Sectioning / grouping block content.
	{name: "p", types: BLOCK | P, contents: INLINE, inScopes: BUTTON},
	{name: "div", types: BLOCK, contents: BLOCK | MIXED},
	{name: "section", types: BLOCK, contents: BLOCK | MIXED},
	{name: "article", types: BLOCK, contents: BLOCK | MIXED},
	{name: "aside", types: BLOCK, contents: BLOCK | MIXED},
	{name: "header", types: BLOCK, contents: BLOCK | MIXED},
	{name: "footer", types: BLOCK, contents: BLOCK | MIXED},
	{name: "nav", types: BLOCK, contents: BLOCK | MIXED},
	{name: "main", types: BLOCK, contents: BLOCK | MIXED},
	{name: "figure", types: BLOCK, contents: BLOCK | MIXED},
	{name: "figcaption", types: BLOCK, contents: BLOCK | MIXED},
	{name: "blockquote", types: BLOCK, contents: BLOCK | MIXED},
	{name: "address", types: BLOCK, contents: INLINE},
	{name: "hr", types: BLOCK, isVoid: true},
	{name: "pre", types: BLOCK, contents: INLINE},
	{name: "h1", types: BLOCK, contents: INLINE, inScopes: BUTTON},
	{name: "h2", types: BLOCK, contents: INLINE, inScopes: BUTTON},
	{name: "h3", types: BLOCK, contents: INLINE, inScopes: BUTTON},
	{name: "h4", types: BLOCK, contents: INLINE, inScopes: BUTTON},
	{name: "h5", types: BLOCK, contents: INLINE, inScopes: BUTTON},
	{name: "h6", types: BLOCK, contents: INLINE, inScopes: BUTTON},

	// Lists.
	{name: "ul", types: BLOCK, contents: LI, blockContainerName: "li"},
	{name: "ol", types: BLOCK, contents: LI, blockContainerName: "li"},
	{name: "li", types: LI, contents: BLOCK | MIXED, inScopes: COMMON | LIST_ITEM},
	{name: "dl", types: BLOCK, contents: DL_PART},
	{name: "dt", types: DL_PART, contents: INLINE},
	{name: "dd", types: DL_PART, contents: BLOCK | MIXED},

	// Inline / phrasing formatting, resumable by the adoption agency.
	{name: "a", types: INLINE, contents: INLINE_MINUS_A, transparentTo: BLOCK | MIXED, resumable: true},
	{name: "b", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "i", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "u", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "s", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "strong", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "em", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "small", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "big", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "tt", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "code", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "kbd", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "samp", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "var", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "sub", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "sup", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "mark", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "font", types: INLINE_MINUS_A | INLINE, contents: INLINE, resumable: true},
	{name: "span", types: INLINE_MINUS_A | INLINE, contents: INLINE, transparentTo: BLOCK | MIXED},
	{name: "ins", types: INLINE_MINUS_A | INLINE, contents: INLINE_MINUS_A | INLINE, transparentTo: BLOCK | MIXED},
	{name: "del", types: INLINE_MINUS_A | INLINE, contents: INLINE_MINUS_A | INLINE, transparentTo: BLOCK | MIXED},
	{name: "br", types: INLINE_MINUS_A | INLINE, isVoid: true},
	{name: "wbr", types: INLINE_MINUS_A | INLINE, isVoid: true},
	{name: "abbr", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "cite", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "q", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "time", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "img", types: INLINE_MINUS_A | INLINE, isVoid: true},

	// Tables.
	{name: "table", types: BLOCK, contents: TABLE_CONTENT, inScopes: COMMON | BUTTON | LIST_ITEM, blockContainerName: "tbody"},
	{name: "caption", types: TABLE_CONTENT, contents: INLINE},
	{name: "colgroup", types: TABLE_CONTENT, contents: COL},
	{name: "col", types: COL, isVoid: true},
	{name: "thead", types: TABLE_CONTENT, contents: TR, blockContainerName: "tr"},
	{name: "tbody", types: TABLE_CONTENT, contents: TR, blockContainerName: "tr"},
	{name: "tfoot", types: TABLE_CONTENT, contents: TR, blockContainerName: "tr"},
	{name: "tr", types: TR, contents: TD, blockContainerName: "td"},
	{name: "td", types: TD, contents: BLOCK | MIXED, inScopes: COMMON | BUTTON | LIST_ITEM},
	{name: "th", types: TD, contents: BLOCK | MIXED, inScopes: COMMON | BUTTON | LIST_ITEM},

	// Forms.
	{name: "form", types: FORM | BLOCK, contents: BLOCK | MIXED},
	{name: "fieldset", types: BLOCK, contents: BLOCK | MIXED | LEGEND},
	{name: "legend", types: LEGEND, contents: INLINE},
	{name: "label", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "input", types: AREA | INLINE_MINUS_A | INLINE, isVoid: true},
	{name: "button", types: AREA | INLINE_MINUS_A | INLINE, contents: INLINE, inScopes: BUTTON},
	{name: "select", types: AREA | INLINE_MINUS_A | INLINE, contents: OPTIONS | OPTION},
	{name: "optgroup", types: OPTIONS, contents: OPTION},
	{name: "option", types: OPTION, contents: CHARACTER_DATA},
	{name: "textarea", types: AREA | INLINE_MINUS_A | INLINE, contents: CHARACTER_DATA, escapeExempt: true, escaping: RCDATA},
	{name: "output", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "progress", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "meter", types: INLINE_MINUS_A | INLINE, contents: INLINE},

	// Escape-exempt blocks requiring special lexer handling.
	{name: "script", types: HEAD_CONTENT | INLINE, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA},
	{name: "xmp", types: BLOCK, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA, allowsEscapingSpan: true},
	{name: "listing", types: BLOCK, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA, allowsEscapingSpan: true},
	{name: "iframe", types: INLINE_MINUS_A | INLINE, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA},
	{name: "noframes", types: BLOCK, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA},
	{name: "noscript", types: BLOCK | INLINE, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATASometimes},
	{name: "plaintext", types: BLOCK, contents: CHARACTER_DATA, escapeExempt: true, escaping: PLAIN_TEXT},
	{name: "comment", types: INLINE, contents: CHARACTER_DATA, escapeExempt: true, escaping: CDATA},

	// Misc replaced/embedded content.
	{name: "object", types: INLINE_MINUS_A | INLINE, contents: PARAM | INLINE | MIXED},
	{name: "param", types: PARAM, isVoid: true},
	{name: "area", types: AREA, isVoid: true},
	{name: "map", types: INLINE, contents: AREA | BLOCK | MIXED, transparentTo: BLOCK | MIXED},
	{name: "canvas", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "audio", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "video", types: INLINE_MINUS_A | INLINE, contents: INLINE},
	{name: "source", types: INLINE, isVoid: true},
	{name: "track", types: INLINE, isVoid: true},
	{name: "svg", types: INLINE_MINUS_A | INLINE, contents: MIXED},
	{name: "details", types: BLOCK, contents: BLOCK | MIXED | LEGEND},
	{name: "summary", types: LEGEND, contents: INLINE},
	{name: "template", types: HEAD_CONTENT | INLINE},
	{name: "data", types: INLINE_MINUS_A | INLINE, contents: INLINE},
}

func init() {
	elements := make([]*Element, len(table))
	byBlockName := map[string]*Element{}
	for i, s := range table {
		e := &Element{
			Name:               s.name,
			Types:              s.types,
			Contents:           s.contents,
			TransparentTo:      s.transparentTo,
			Resumable:          s.resumable,
			InScopes:           s.inScopes,
			BlockedByScopes:    ALL_SCOPES &^ s.inScopes,
			IsVoid:             s.isVoid,
			EscapeExempt:       s.escapeExempt,
			Escaping:           s.escaping,
			AllowsEscapingSpan: s.allowsEscapingSpan,
		}
		elements[i] = e
		byBlockName[s.name] = e
		if a := atom.Lookup([]byte(s.name)); a != 0 {
			byAtom[a] = e
		} else {
			byName[s.name] = e
		}
	}
	// Second pass: resolve the block-container-child indirection now that
	// every descriptor exists; the links can be cyclic.
	for i, s := range table {
		if s.blockContainerName != "" {
			elements[i].BlockContainerChild = byBlockName[s.blockContainerName]
		}
	}
	nameTrie = trie.New[*Element]()
	for name, e := range byName {
		nameTrie.Put(name, e)
	}
}

// AllowsEscapingTextSpan reports whether the HTML5 "escaping text span"
// sub-state applies inside this element's
// escape-exempt block.
func (e *Element) AllowsEscapingTextSpan() bool {
	return e != nil && e.AllowsEscapingSpan
}

// Contains reports whether child content of group g is immediately legal
// inside e.
func (e *Element) Contains(g Group) bool {
	return e != nil && e.EffectiveContents()&g != 0
}

// EffectiveContents expands the shorthand content groups of the table into
// the full set of admitted child groups: MIXED content admits both block
// and inline children, and any content model that admits inline children
// also admits character data.
func (e *Element) EffectiveContents() Group {
	c := e.Contents
	if c&MIXED != 0 {
		c |= BLOCK | INLINE | INLINE_MINUS_A
	}
	if c&(MIXED|INLINE|INLINE_MINUS_A) != 0 {
		c |= CHARACTER_DATA
	}
	return c
}
