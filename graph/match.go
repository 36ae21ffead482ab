package graph

import "github.com/viveknathani/dblineage/database"

// Candidate is one target table a source table may map to.
type Candidate struct {
	Key      TableKey
	RowCount int64
	// Virtual marks a placeholder for a table that does not exist in the
	// target yet.
	Virtual bool
}

// Matcher resolves source tables against one target snapshot. Both indexes
// keep snapshot order so repeated matches return candidates in the same
// order.
type Matcher struct {
	fallbackSchema string
	byKey          map[TableKey][]Candidate
	byName         map[string][]Candidate
}

// NewMatcher indexes the tables of target. A nil target yields a matcher
// that only produces placeholders.
func NewMatcher(target *database.SchemaSnapshot) *Matcher {
	m := &Matcher{
		byKey:  make(map[TableKey][]Candidate),
		byName: make(map[string][]Candidate),
	}
	if target == nil {
		return m
	}

	m.fallbackSchema = NormalizeIdent(target.Location.Schema)

	for _, table := range target.Tables {
		key := Normalize(table.Schema, table.Name)
		if key.Name == "" {
			continue
		}
		// A snapshot listing the same table twice still yields one candidate.
		if _, seen := m.byKey[key]; seen {
			continue
		}
		c := Candidate{Key: key, RowCount: table.RowCount}
		m.byKey[key] = append(m.byKey[key], c)
		m.byName[key.Name] = append(m.byName[key.Name], c)
	}

	return m
}

// Match returns the target candidates for src in strict priority order:
// the exact schema.name match, else every same-named table in any schema,
// else a single virtual placeholder in the fallback schema. Several
// name-only matches are all returned so the ambiguity stays visible.
func (m *Matcher) Match(src TableKey) []Candidate {
	if exact, ok := m.byKey[src]; ok {
		return append([]Candidate(nil), exact...)
	}

	if byName, ok := m.byName[src.Name]; ok {
		return append([]Candidate(nil), byName...)
	}

	schema := m.fallbackSchema
	if schema == "" {
		schema = src.Schema
	}

	return []Candidate{{Key: TableKey{Schema: schema, Name: src.Name}, Virtual: true}}
}
