// Package cssfilter implements the style-attribute property filter: a
// declaration-level validator that rewrites the normalized token stream
// produced by internal/cssparse into a canonical, bypass-resistant
// declaration string, consulting a Schema that maps each property to the
// token classes, literal values, and function sub-schemas it permits.
package cssfilter

// Bits is the per-property capability bitfield:
// QUANTITY, HASH_VALUE, NEGATIVE, STRING, URL, UNRESERVED_WORD,
// UNICODE_RANGE.
type Bits uint16

const (
	QUANTITY Bits = 1 << iota
	HASH_VALUE
	NEGATIVE
	STRING
	URL
	UNRESERVED_WORD
	UNICODE_RANGE
)

// PropertySchema is one property's entry in the schema: the bitfield of
// §4.6, a set of literal tokens (keywords or punctuation) permitted
// verbatim, and a map from function name to the schema key used to filter
// that function's arguments.
type PropertySchema struct {
	Bits      Bits
	Literals  map[string]struct{}
	Functions map[string]string
}

func literals(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Schema is the top-level CSS property whitelist, separable data from the
// filtering code.
type Schema struct {
	Properties map[string]PropertySchema

	// StrictVendorPrefixes, when true, disables the vendor-prefix
	// fallback: an unrecognized `-webkit-foo` etc. is
	// rejected outright instead of retrying against the unprefixed `foo`
	// entry.
	StrictVendorPrefixes bool

	// URLPolicy is the URL-validation extension point: nil means every `url(...)`
	// token in a style value is dropped. A caller may supply a validator
	// that accepts/rewrites the decoded URL text.
	URLPolicy func(string) (string, bool)
}

var vendorPrefixes = []string{"-ms-", "-moz-", "-o-", "-webkit-"}

// lookup resolves a property name against the schema, applying the
// vendor-prefix retry unless StrictVendorPrefixes is set.
func (s Schema) lookup(name string) (PropertySchema, bool) {
	if p, ok := s.Properties[name]; ok {
		return p, true
	}
	if s.StrictVendorPrefixes || name == "" || name[0] != '-' {
		return PropertySchema{}, false
	}
	for _, prefix := range vendorPrefixes {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			if p, ok := s.Properties[name[len(prefix):]]; ok {
				return p, true
			}
		}
	}
	return PropertySchema{}, false
}

// colorFunctionArgs is the shared sub-schema for rgb()/rgba()/hsl()/hsla()
// argument lists: numbers, percentages, and the comma/slash separators.
var colorFunctionArgs = PropertySchema{
	Bits:     QUANTITY,
	Literals: literals(",", "/", "%"),
}

var colorFunctions = map[string]string{
	"rgb":  "$color-args",
	"rgba": "$color-args",
	"hsl":  "$color-args",
	"hsla": "$color-args",
}

var colorProperty = PropertySchema{
	Bits:      HASH_VALUE | UNRESERVED_WORD,
	Functions: colorFunctions,
	Literals: literals(
		"transparent", "currentcolor", "inherit", "initial", "unset",
		"black", "white", "red", "green", "blue", "yellow", "orange",
		"purple", "gray", "grey", "silver", "maroon", "navy", "teal",
		"olive", "lime", "aqua", "fuchsia", "pink", "brown", "beige",
		"tan", "gold", "indigo", "violet", "coral", "salmon", "khaki",
		"ivory", "lavender", "crimson", "chocolate", "darkgray", "darkgrey",
		"lightgray", "lightgrey",
	),
}

// DefaultSchema returns the default CSS property whitelist. It covers the common presentational-CSS surface:
// color, typography, box model, and a constrained background/border set,
// with every `url(...)` dropped per the URLPolicy extension point.
func DefaultSchema() Schema {
	p := map[string]PropertySchema{
		"$color-args": colorFunctionArgs,

		"color":            colorProperty,
		"background-color": colorProperty,
		"border-color":     colorProperty,
		"outline-color":    colorProperty,

		"background": {
			Bits:      HASH_VALUE | UNRESERVED_WORD,
			Functions: colorFunctions,
			Literals: literals(
				"none", "transparent", "inherit", "initial", "unset",
				"no-repeat", "repeat", "repeat-x", "repeat-y", "center",
				"top", "bottom", "left", "right", "fixed", "scroll",
			),
		},

		"font-family": {
			Bits: UNRESERVED_WORD | STRING,
			Literals: literals(
				"serif", "sans-serif", "monospace", "cursive", "fantasy",
				"system-ui", "inherit", "initial", "unset", ",",
			),
		},
		"font-size": {
			Bits: QUANTITY,
			Literals: literals(
				"xx-small", "x-small", "small", "medium", "large",
				"x-large", "xx-large", "smaller", "larger", "inherit",
				"initial", "unset", "100", "200", "300", "400", "500",
				"600", "700", "800", "900",
			),
		},
		"font-weight": {
			Bits: QUANTITY,
			Literals: literals(
				"normal", "bold", "bolder", "lighter", "inherit",
				"initial", "unset", "100", "200", "300", "400", "500",
				"600", "700", "800", "900",
			),
		},
		"font-style": {
			Literals: literals("normal", "italic", "oblique", "inherit", "initial", "unset"),
		},
		"text-align": {
			Literals: literals("left", "right", "center", "justify", "inherit", "initial", "unset"),
		},
		"text-decoration": {
			Literals: literals("none", "underline", "overline", "line-through", "inherit", "initial", "unset"),
		},
		"text-transform": {
			Literals: literals("none", "capitalize", "uppercase", "lowercase", "inherit", "initial", "unset"),
		},
		"white-space": {
			Literals: literals("normal", "nowrap", "pre", "pre-wrap", "pre-line", "inherit", "initial", "unset"),
		},
		"vertical-align": {
			Bits: QUANTITY,
			Literals: literals(
				"baseline", "sub", "super", "top", "text-top", "middle",
				"bottom", "text-bottom", "inherit", "initial", "unset",
			),
		},
		"line-height": {
			Bits:     QUANTITY,
			Literals: literals("normal", "inherit", "initial", "unset"),
		},
		"letter-spacing": {
			Bits:     QUANTITY | NEGATIVE,
			Literals: literals("normal", "inherit", "initial", "unset"),
		},
		"list-style-type": {
			Literals: literals(
				"none", "disc", "circle", "square", "decimal",
				"lower-alpha", "upper-alpha", "lower-roman", "upper-roman",
				"inherit", "initial", "unset",
			),
		},
		"display": {
			Literals: literals(
				"none", "inline", "block", "inline-block", "table",
				"table-row", "table-cell", "list-item", "inherit",
				"initial", "unset",
			),
		},
	}

	for _, side := range []string{"", "-top", "-right", "-bottom", "-left"} {
		p["margin"+side] = PropertySchema{
			Bits:     QUANTITY | NEGATIVE,
			Literals: literals("auto", "inherit", "initial", "unset"),
		}
		p["padding"+side] = PropertySchema{
			Bits:     QUANTITY,
			Literals: literals("inherit", "initial", "unset"),
		}
		p["border"+side+"-width"] = PropertySchema{
			Bits:     QUANTITY,
			Literals: literals("thin", "medium", "thick", "inherit", "initial", "unset"),
		}
		p["border"+side+"-style"] = PropertySchema{
			Literals: literals(
				"none", "hidden", "dotted", "dashed", "solid", "double",
				"groove", "ridge", "inset", "outset", "inherit", "initial",
				"unset",
			),
		}
		p["border"+side+"-color"] = colorProperty
	}

	p["width"] = PropertySchema{Bits: QUANTITY, Literals: literals("auto", "inherit", "initial", "unset")}
	p["height"] = PropertySchema{Bits: QUANTITY, Literals: literals("auto", "inherit", "initial", "unset")}
	p["max-width"] = PropertySchema{Bits: QUANTITY, Literals: literals("none", "inherit", "initial", "unset")}
	p["max-height"] = PropertySchema{Bits: QUANTITY, Literals: literals("none", "inherit", "initial", "unset")}
	p["min-width"] = PropertySchema{Bits: QUANTITY, Literals: literals("none", "inherit", "initial", "unset")}
	p["min-height"] = PropertySchema{Bits: QUANTITY, Literals: literals("none", "inherit", "initial", "unset")}

	return Schema{Properties: p}
}
