package graph

import "strings"

// DefaultSchema is assumed for selected table references without a schema.
const DefaultSchema = "public"

// TableKey identifies a table by normalized schema and name.
type TableKey struct {
	Schema string
	Name   string
}

// String returns "schema.name". A part holding a dot, a double quote or
// "->" is wrapped in double quotes with inner quotes doubled, so distinct
// keys never share a string.
func (k TableKey) String() string {
	return quoteIdent(k.Schema) + "." + quoteIdent(k.Name)
}

func quoteIdent(s string) string {
	if !strings.ContainsAny(s, `."`) && !strings.Contains(s, "->") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// closingQuote returns the rune closing an identifier opened by r: double
// quotes, MySQL backticks or SQL Server brackets.
func closingQuote(r rune) (rune, bool) {
	switch r {
	case '"':
		return '"', true
	case '`':
		return '`', true
	case '[':
		return ']', true
	}
	return 0, false
}

// unquote trims whitespace and strips surrounding identifier quotes until
// none are left.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		closing, ok := closingQuote(rune(s[0]))
		if !ok || rune(s[len(s)-1]) != closing {
			break
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// NormalizeIdent trims whitespace, strips surrounding quotes ("", `` or [])
// and lower-cases. Quotes are stripped until none surround the value so
// that NormalizeIdent(NormalizeIdent(s)) == NormalizeIdent(s) for every s.
func NormalizeIdent(s string) string {
	return strings.ToLower(unquote(s))
}

// Normalize builds the comparable key for a schema-qualified table.
func Normalize(schema, name string) TableKey {
	return TableKey{Schema: NormalizeIdent(schema), Name: NormalizeIdent(name)}
}

// ParseTableRef splits a selected table reference of the form "schema.name"
// or "name" into a normalized key. The split happens at the first dot that
// is outside quotes, so `"my.schema"."orders"` keeps its dot.
func ParseTableRef(ref string) TableKey {
	ref = strings.TrimSpace(ref)

	var closing rune
	quoted := false
	for i, r := range ref {
		switch {
		case quoted:
			if r == closing {
				quoted = false
			}
		case r == '.':
			schema := ref[:i]
			if NormalizeIdent(schema) == "" {
				schema = DefaultSchema
			}
			return Normalize(schema, ref[i+1:])
		default:
			closing, quoted = closingQuote(r)
		}
	}

	return Normalize(DefaultSchema, ref)
}
