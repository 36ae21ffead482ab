package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/orchestrator"
)

func newOrchestrator(t *testing.T, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	opts = append([]orchestrator.Option{orchestrator.WithScheduler(orchestrator.InlineScheduler{})}, opts...)
	o := orchestrator.New(zap.NewNop(), opts...)

	o.Update(orchestrator.Inputs{
		Enabled: true,
		Source: &database.SchemaSnapshot{
			Location: database.Location{Type: "postgres", Database: "shop", Schema: "public"},
			Tables: []database.TableInfo{
				{Schema: "sales", Name: "orders", RowCount: 10},
				{Schema: "public", Name: "customers", RowCount: 3},
			},
		},
		Target: &database.SchemaSnapshot{
			Location: database.Location{Type: "mysql", Database: "dw", Schema: "raw"},
			Tables:   []database.TableInfo{{Schema: "sales", Name: "orders", RowCount: 12}},
		},
		Selected: []string{"sales.orders", "public.customers"},
	})
	require.Equal(t, orchestrator.StateReady, o.Status().State)
	return o
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, key := range keys {
		updated, _ := m.Update(key)
		var ok bool
		m, ok = updated.(Model)
		require.True(t, ok)
	}
	return m
}

func TestViewShowsGraph(t *testing.T) {
	m := New(newOrchestrator(t))

	out := m.View()
	assert.Contains(t, out, "ready  2 sources → 2 targets, 2 links")
	assert.Contains(t, out, "→ shop sales.orders [SUCCESS]")
	assert.Contains(t, out, "⇥ dw raw.customers [PENDING]")
	assert.Contains(t, out, "schema: all  types: 1[x] mysql  2[x] postgres")
}

func TestViewIdle(t *testing.T) {
	m := New(orchestrator.New(zap.NewNop()))
	assert.Contains(t, m.View(), "select source tables to see their lineage")
}

func TestSearch(t *testing.T) {
	o := newOrchestrator(t)
	m := New(o)

	m = press(t, m, runes("/"), runes("c"), runes("u"), runes("s"), runes("t"))
	assert.True(t, m.searching)
	assert.Equal(t, "cust", o.View().Filter.Search)

	frame := o.View()
	require.Len(t, frame.Graph.Nodes, 2)
	assert.Equal(t, "src:public.customers", frame.Graph.Nodes[0].ID)
	assert.Equal(t, "tgt:raw.customers", frame.Graph.Nodes[1].ID)

	// Keys typed while searching go to the search box.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, "cust", o.View().Filter.Search)

	m = press(t, m, runes("/"), runes("x"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Empty(t, o.View().Filter.Search)
	assert.Len(t, o.View().Graph.Nodes, 4)
}

func TestSchemaCycle(t *testing.T) {
	o := newOrchestrator(t)
	m := New(o)

	for _, want := range []string{"public", "raw", "sales", ""} {
		m = press(t, m, runes("s"))
		assert.Equal(t, want, o.View().Filter.Schema)
	}

	m = press(t, m, runes("s"), runes("s"), runes("s"))
	assert.Contains(t, m.View(), "schema: sales")
	assert.Len(t, o.View().Graph.Nodes, 2)

	m = press(t, m, runes("c"))
	assert.False(t, o.View().Filter.Active())
	assert.Equal(t, -1, m.schema)
}

func TestDatabaseTypeToggle(t *testing.T) {
	o := newOrchestrator(t)
	m := New(o)

	m = press(t, m, runes("2"))
	assert.Equal(t, map[database.Type]bool{database.Postgres: false}, o.View().Filter.DatabaseTypes)
	assert.Contains(t, m.View(), "2[ ] postgres")
	for _, n := range o.View().Graph.Nodes {
		assert.Equal(t, graph.RoleTarget, n.Role)
	}

	m = press(t, m, runes("2"))
	assert.Equal(t, map[database.Type]bool{database.Postgres: true}, o.View().Filter.DatabaseTypes)
	assert.Len(t, o.View().Graph.Nodes, 4)

	// Out of range keys do nothing.
	press(t, m, runes("9"))
	assert.Len(t, o.View().Filter.DatabaseTypes, 1)
}

func TestCursorHoverAndActivate(t *testing.T) {
	var activated []graph.Role
	o := newOrchestrator(t, orchestrator.WithNodeActivation(func(role graph.Role, _ graph.LineageNode) {
		activated = append(activated, role)
	}))
	m := New(o)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	frame := o.View()
	assert.Equal(t, "src:sales.orders", frame.Hover.HoveredID)
	assert.True(t, frame.Hover.NodeActive("tgt:sales.orders"))
	assert.False(t, frame.Hover.NodeActive("src:public.customers"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []graph.Role{graph.RoleSource}, activated)
	require.NotNil(t, m.details)
	assert.Contains(t, m.View(), "rows: 10")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.details)

	// The cursor stays on the visible nodes.
	m = press(t, m, runes("j"), runes("j"), runes("j"), runes("j"))
	assert.Equal(t, 3, m.cursor)
	m = press(t, m, runes("k"), runes("k"), runes("k"), runes("k"))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, "src:public.customers", o.View().Hover.HoveredID)
}

func TestCursorFollowsFilter(t *testing.T) {
	o := newOrchestrator(t)
	m := New(o)

	m = press(t, m, runes("j"), runes("j"), runes("j"))
	require.Equal(t, 3, m.cursor)

	m = press(t, m, runes("s"))
	assert.Equal(t, 0, m.cursor, "only one public node is left")
}

func TestQuit(t *testing.T) {
	m := New(newOrchestrator(t))

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestBridgeWithoutProgram(t *testing.T) {
	b := &Bridge{}
	assert.NotPanics(t, func() {
		b.OnChange(orchestrator.Status{State: orchestrator.StateReady})
	})
}
