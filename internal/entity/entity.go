// Package entity decodes HTML named and numeric character references using
// a compact trie. The named-reference table is a static lookup built once
// at package init and never mutated.
package entity

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dpotapov/htmlsanitizer/internal/trie"
)

var named = buildNamedTrie()

// buildNamedTrie constructs the named-character-reference trie once, at
// package init. The table below is not the full ~2200-entry HTML5 named
// character reference set; it covers the references that occur in ordinary
// prose and markup (the common Latin/markup subset plus the handful that
// have legacy semicolon-less forms). Decoding an entity absent from this
// table simply leaves the "&name" text untouched, which is always a safe
// (if imperfect) fallback: unresolved ampersands are re-encoded on output.
func buildNamedTrie() *trie.Trie[string] {
	t := trie.New[string]()
	entries := map[string]string{
		"amp;": "&", "amp": "&",
		"lt;": "<", "lt": "<",
		"gt;": ">", "gt": ">",
		"quot;": "\"", "quot": "\"",
		"apos;": "'",
		"nbsp;": " ", "nbsp": " ",
		"copy;": "©", "copy": "©",
		"reg;": "®", "reg": "®",
		"trade;":  "™",
		"hellip;": "…",
		"mdash;":  "—",
		"ndash;":  "–",
		"lsquo;":  "‘",
		"rsquo;":  "’",
		"ldquo;":  "“",
		"rdquo;":  "”",
		"bull;":   "•",
		"dagger;": "†",
		"Dagger;": "‡",
		"permil;": "‰",
		"euro;":   "€",
		"pound;":  "£", "pound": "£",
		"cent;": "¢", "cent": "¢",
		"yen;": "¥", "yen": "¥",
		"sect;": "§", "sect": "§",
		"para;": "¶", "para": "¶",
		"middot;": "·", "middot": "·",
		"laquo;": "«", "laquo": "«",
		"raquo;": "»", "raquo": "»",
		"deg;": "°", "deg": "°",
		"plusmn;": "±", "plusmn": "±",
		"times;": "×", "times": "×",
		"divide;": "÷", "divide": "÷",
		"frac12;": "½", "frac12": "½",
		"frac14;": "¼", "frac14": "¼",
		"frac34;": "¾", "frac34": "¾",
		"sup1;": "¹", "sup1": "¹",
		"sup2;": "²", "sup2": "²",
		"sup3;": "³", "sup3": "³",
		"szlig;": "ß", "szlig": "ß",
		"micro;": "µ", "micro": "µ",
		"not;": "¬", "not": "¬",
		"shy;": "­", "shy": "­",
		"macr;": "¯", "macr": "¯",
		"curren;": "¤", "curren": "¤",
	}
	for k, v := range entries {
		t.Put(k, v)
	}
	return t
}

// Decode replaces every HTML character reference in s with its decoded
// form. Unrecognized named references and malformed numeric references are
// left byte-for-byte untouched.
func Decode(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}
		if repl, n := decodeAt(s[i:]); n > 0 {
			b.WriteString(repl)
			i += n
			continue
		}
		b.WriteByte('&')
		i++
	}
	return b.String()
}

// decodeAt attempts to decode a single reference starting at s[0] == '&'.
// It returns the replacement text and the number of input bytes consumed
// (0 if s does not begin a recognizable reference).
func decodeAt(s string) (string, int) {
	if len(s) < 2 {
		return "", 0
	}
	if s[1] == '#' {
		return decodeNumeric(s)
	}
	if val, n, ok := named.LongestPrefix(s[1:]); ok {
		return val, n + 1
	}
	return "", 0
}

func decodeNumeric(s string) (string, int) {
	// s[0] == '&', s[1] == '#'
	i := 2
	hex := false
	if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
		hex = true
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i], hex) {
		i++
	}
	if i == start {
		return "", 0
	}
	digits := s[start:i]
	semi := false
	end := i
	if end < len(s) && s[end] == ';' {
		semi = true
		end++
	}
	base := 10
	if hex {
		base = 16
	}
	cp, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return "", 0
	}
	r := sanitizeCodepoint(uint32(cp))
	if !semi {
		// Legacy HTML5 parsing tolerates a missing trailing semicolon for
		// numeric references too: the reference ends at the first byte
		// that is not a digit of its base, whatever that byte is.
		return string(r), end - 0
	}
	return string(r), end
}

func isDigit(c byte, hex bool) bool {
	if c >= '0' && c <= '9' {
		return true
	}
	if hex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
		return true
	}
	return false
}

// sanitizeCodepoint maps invalid or disallowed code points to the Unicode
// replacement character, following the HTML5 "numeric character reference
// end state" error-correction table for the handful of Windows-1252
// control-code aliases, and rejecting surrogate/overlong values.
func sanitizeCodepoint(cp uint32) rune {
	switch cp {
	case 0x00, 0x0d:
		return utf8.RuneError
	}
	if cp >= 0x80 && cp <= 0x9f {
		if r, ok := win1252[cp]; ok {
			return r
		}
	}
	if cp > utf8.MaxRune || (cp >= 0xd800 && cp <= 0xdfff) {
		return utf8.RuneError
	}
	return rune(cp)
}

var win1252 = map[uint32]rune{
	0x80: '€', 0x82: '‚', 0x83: 'ƒ', 0x84: '„',
	0x85: '…', 0x86: '†', 0x87: '‡', 0x88: 'ˆ',
	0x89: '‰', 0x8a: 'Š', 0x8b: '‹', 0x8c: 'Œ',
	0x8e: 'Ž', 0x91: '‘', 0x92: '’', 0x93: '“',
	0x94: '”', 0x95: '•', 0x96: '–', 0x97: '—',
	0x98: '˜', 0x99: '™', 0x9a: 'š', 0x9b: '›',
	0x9c: 'œ', 0x9e: 'ž', 0x9f: 'Ÿ',
}
