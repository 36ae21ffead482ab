package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viveknathani/dblineage/database"
)

func TestMatcherMatch(t *testing.T) {
	target := &database.SchemaSnapshot{
		Location: database.Location{Type: "postgres", Database: "dw", Schema: "Raw"},
		Tables: []database.TableInfo{
			{Schema: "sales", Name: "orders", RowCount: 12},
			{Schema: "c", Name: "items", RowCount: 3},
			{Schema: "b", Name: "items", RowCount: 2},
			{Schema: `"Sales"`, Name: `"ORDERS"`, RowCount: 99},
		},
	}
	m := NewMatcher(target)

	tests := []struct {
		name string
		src  TableKey
		want []Candidate
	}{
		{
			name: "exact match wins",
			src:  TableKey{"sales", "orders"},
			want: []Candidate{{Key: TableKey{"sales", "orders"}, RowCount: 12}},
		},
		{
			name: "name only match keeps snapshot order",
			src:  TableKey{"a", "items"},
			want: []Candidate{
				{Key: TableKey{"c", "items"}, RowCount: 3},
				{Key: TableKey{"b", "items"}, RowCount: 2},
			},
		},
		{
			name: "name only match from another schema",
			src:  TableKey{"archive", "orders"},
			want: []Candidate{{Key: TableKey{"sales", "orders"}, RowCount: 12}},
		},
		{
			name: "placeholder in target default schema",
			src:  TableKey{"public", "customers"},
			want: []Candidate{{Key: TableKey{"raw", "customers"}, Virtual: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.src))
		})
	}
}

func TestMatcherPlaceholderUsesSourceSchema(t *testing.T) {
	m := NewMatcher(&database.SchemaSnapshot{})

	got := m.Match(TableKey{"finance", "ledger"})
	require.Len(t, got, 1)
	assert.Equal(t, TableKey{"finance", "ledger"}, got[0].Key)
	assert.True(t, got[0].Virtual)
}

func TestMatcherNilTarget(t *testing.T) {
	got := NewMatcher(nil).Match(TableKey{"public", "orders"})
	assert.Equal(t, []Candidate{{Key: TableKey{"public", "orders"}, Virtual: true}}, got)
}

func TestMatcherResultIsACopy(t *testing.T) {
	m := NewMatcher(&database.SchemaSnapshot{
		Tables: []database.TableInfo{{Schema: "s", Name: "t"}},
	})

	first := m.Match(TableKey{"s", "t"})
	first[0].Key.Name = "mutated"

	assert.Equal(t, "t", m.Match(TableKey{"s", "t"})[0].Key.Name)
}
