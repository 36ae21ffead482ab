package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/graph"
)

// manualScheduler queues builds until the test runs them, so tests decide
// the order in which concurrent builds complete.
type manualScheduler struct {
	tasks []func()
}

func (s *manualScheduler) Schedule(task func()) {
	s.tasks = append(s.tasks, task)
}

func (s *manualScheduler) run(i int) {
	task := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	task()
}

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func shopInputs(selected ...string) Inputs {
	return Inputs{
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
		Selected: selected,
	}
}

func newInline(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithScheduler(InlineScheduler{}), WithClock(fixedClock)}, opts...)
	return New(zap.NewNop(), opts...)
}

func TestNewStartsIdle(t *testing.T) {
	o := newInline(t)

	assert.Equal(t, StateIdle, o.Status().State)
	frame := o.View()
	assert.True(t, frame.Graph.IsEmpty())
	assert.Equal(t, graph.Summary{}, frame.Status.Summary)
}

func TestUpdateIncompleteInputsAreIdle(t *testing.T) {
	disabled := shopInputs("sales.orders")
	disabled.Enabled = false

	noSource := shopInputs("sales.orders")
	noSource.Source = nil

	noTarget := shopInputs("sales.orders")
	noTarget.Target = nil

	tests := []struct {
		name string
		in   Inputs
	}{
		{"disabled", disabled},
		{"missing source", noSource},
		{"missing target", noTarget},
		{"empty selection", shopInputs()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := 0
			o := newInline(t, WithBuilder(func(in graph.Inputs) (*graph.LineageGraph, error) {
				built++
				return graph.Build(in), nil
			}))

			require.True(t, o.Update(shopInputs("sales.orders")))
			require.Equal(t, StateReady, o.Status().State)

			assert.True(t, o.Update(tt.in))
			assert.Equal(t, StateIdle, o.Status().State)
			assert.Equal(t, 1, built)

			frame := o.View()
			assert.Empty(t, frame.Graph.Nodes)
			assert.Empty(t, frame.Graph.Edges)
			assert.Equal(t, graph.Summary{}, frame.Status.Summary)
		})
	}
}

func TestUpdateReady(t *testing.T) {
	o := newInline(t)

	require.True(t, o.Update(shopInputs("sales.orders")))

	status := o.Status()
	assert.Equal(t, StateReady, status.State)
	assert.Empty(t, status.Error)
	assert.NotEmpty(t, status.BuildID)
	assert.Equal(t, graph.Summary{Sources: 1, Targets: 1, Links: 1}, status.Summary)

	g := o.Graph()
	tgt, ok := g.Node("tgt:sales.orders")
	require.True(t, ok)
	assert.Equal(t, graph.StatusSuccess, tgt.Status)
	assert.Equal(t, fixedNow, tgt.LastUpdated, "missing timestamp defaults to the clock")
	assert.Positive(t, tgt.Position.X, "committed graphs are positioned")
	assert.Positive(t, g.Width)
}

func TestUpdateUsesSuppliedTimestamp(t *testing.T) {
	o := newInline(t)
	stamp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	in := shopInputs("sales.orders")
	in.LastUpdated = &stamp
	o.Update(in)

	require.Len(t, o.Graph().Edges, 1)
	assert.Equal(t, stamp, o.Graph().Edges[0].LastExecutionTime)
}

func TestUpdateEmpty(t *testing.T) {
	o := newInline(t, WithBuilder(func(in graph.Inputs) (*graph.LineageGraph, error) {
		g := graph.Build(in)
		g.Edges = []graph.LineageEdge{}
		return g, nil
	}))

	o.Update(shopInputs("sales.orders"))

	status := o.Status()
	assert.Equal(t, StateEmpty, status.State)
	assert.Equal(t, graph.Summary{Sources: 1, Targets: 1, Links: 0}, status.Summary)
}

func TestUpdateBuildFailures(t *testing.T) {
	tests := []struct {
		name    string
		builder Builder
		want    string
	}{
		{
			name: "returned error",
			builder: func(graph.Inputs) (*graph.LineageGraph, error) {
				return nil, errors.New("snapshot unreadable")
			},
			want: "snapshot unreadable",
		},
		{
			name: "panic with string",
			builder: func(graph.Inputs) (*graph.LineageGraph, error) {
				panic("index out of range")
			},
			want: "index out of range",
		},
		{
			name: "panic with error",
			builder: func(graph.Inputs) (*graph.LineageGraph, error) {
				panic(errors.New("boom"))
			},
			want: "boom",
		},
		{
			name: "nil graph",
			builder: func(graph.Inputs) (*graph.LineageGraph, error) {
				return nil, nil
			},
			want: ErrNilGraph.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newInline(t, WithBuilder(tt.builder))

			require.True(t, o.Update(shopInputs("sales.orders")))

			status := o.Status()
			assert.Equal(t, StateError, status.State)
			assert.Equal(t, tt.want, status.Error)
			assert.True(t, o.View().Graph.IsEmpty(), "no partial graph after a failure")
		})
	}
}

func TestErrorClearsOnNextChange(t *testing.T) {
	fail := true
	o := newInline(t, WithBuilder(func(in graph.Inputs) (*graph.LineageGraph, error) {
		if fail {
			panic("boom")
		}
		return graph.Build(in), nil
	}))

	o.Update(shopInputs("sales.orders"))
	require.Equal(t, StateError, o.Status().State)

	fail = false
	assert.False(t, o.Update(shopInputs("sales.orders")), "error is terminal until inputs change")
	assert.Equal(t, StateError, o.Status().State)

	o.Update(shopInputs("sales.orders", "public.customers"))
	assert.Equal(t, StateReady, o.Status().State)
	assert.Empty(t, o.Status().Error)
}

func TestUpdateUnchangedInputsIsNoop(t *testing.T) {
	built := 0
	o := newInline(t, WithBuilder(func(in graph.Inputs) (*graph.LineageGraph, error) {
		built++
		return graph.Build(in), nil
	}))

	assert.True(t, o.Update(shopInputs("sales.orders", "public.customers")))
	assert.False(t, o.Update(shopInputs("sales.orders", "public.customers")))
	assert.False(t, o.Update(shopInputs("public.customers", "sales.orders")), "selection order does not matter")
	assert.Equal(t, 1, built)

	changed := shopInputs("sales.orders", "public.customers")
	changed.Target.Tables[0].RowCount = 13
	assert.True(t, o.Update(changed), "snapshot contents are compared, not pointers")
	assert.Equal(t, 2, built)
}

func TestUpdateWithoutFingerprintAlwaysRebuilds(t *testing.T) {
	marshalInputs = func(any) ([]byte, error) { return nil, errors.New("encoder broke") }
	t.Cleanup(func() { marshalInputs = json.Marshal })

	built := 0
	o := newInline(t, WithBuilder(func(in graph.Inputs) (*graph.LineageGraph, error) {
		built++
		return graph.Build(in), nil
	}))

	assert.True(t, o.Update(shopInputs("sales.orders")))
	assert.True(t, o.Update(shopInputs("sales.orders")))
	assert.Equal(t, 2, built)
	assert.Equal(t, StateReady, o.Status().State)

	marshalInputs = json.Marshal
	assert.True(t, o.Update(shopInputs("sales.orders")), "the first fingerprinted update has nothing to compare with")
	assert.False(t, o.Update(shopInputs("sales.orders")))
	assert.Equal(t, 3, built)
}

func TestLastRequestWins(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{"in order", []int{0, 0}},
		{"newest first", []int{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &manualScheduler{}
			o := New(zap.NewNop(), WithScheduler(sched), WithClock(fixedClock))

			o.Update(shopInputs("sales.orders"))
			o.Update(shopInputs("sales.orders", "public.customers"))
			assert.Equal(t, StateLoading, o.Status().State)
			require.Len(t, sched.tasks, 2)

			for _, i := range tt.order {
				sched.run(i)
			}

			status := o.Status()
			assert.Equal(t, StateReady, status.State)
			assert.Equal(t, uint64(2), status.Generation)
			assert.Equal(t, graph.Summary{Sources: 2, Targets: 2, Links: 2}, status.Summary)
		})
	}
}

func TestStaleBuildAfterIdleIsDropped(t *testing.T) {
	sched := &manualScheduler{}
	o := New(zap.NewNop(), WithScheduler(sched), WithClock(fixedClock))

	o.Update(shopInputs("sales.orders"))
	o.Update(shopInputs())
	require.Equal(t, StateIdle, o.Status().State)

	sched.run(0)

	assert.Equal(t, StateIdle, o.Status().State)
	assert.True(t, o.View().Graph.IsEmpty())
}

func TestLoadingKeepsPreviousGraph(t *testing.T) {
	sched := &manualScheduler{}
	o := New(zap.NewNop(), WithScheduler(sched), WithClock(fixedClock))

	o.Update(shopInputs("sales.orders"))
	sched.run(0)
	before := o.Graph()

	o.Update(shopInputs("sales.orders", "public.customers"))
	assert.Equal(t, StateLoading, o.Status().State)
	assert.Same(t, before, o.Graph())
	assert.Equal(t, graph.Summary{Sources: 1, Targets: 1, Links: 1}, o.Status().Summary)
}

func TestOnChange(t *testing.T) {
	var states []State
	o := newInline(t, WithOnChange(func(s Status) {
		states = append(states, s.State)
	}))

	o.Update(shopInputs("sales.orders"))
	o.SetSearch("orders")
	o.Update(shopInputs())

	assert.Equal(t, []State{StateLoading, StateReady, StateReady, StateIdle}, states)
}

func TestActivate(t *testing.T) {
	type call struct {
		role graph.Role
		node graph.LineageNode
	}
	var calls []call
	o := newInline(t, WithNodeActivation(func(role graph.Role, node graph.LineageNode) {
		calls = append(calls, call{role, node})
	}))
	o.Update(shopInputs("public.customers"))

	assert.True(t, o.Activate("tgt:raw.customers"))
	assert.False(t, o.Activate("tgt:nope.nope"))

	require.Len(t, calls, 1)
	assert.Equal(t, graph.RoleTarget, calls[0].role)
	assert.Equal(t, graph.StatusPending, calls[0].node.Status)
	assert.Equal(t, "raw", calls[0].node.Schema)
}

func TestViewFilters(t *testing.T) {
	o := newInline(t)
	o.Update(shopInputs("sales.orders", "public.customers"))
	base := o.Graph()

	frame := o.View()
	assert.Same(t, base, frame.Graph, "no filter shows the committed graph itself")
	assert.Equal(t, []string{"public", "raw", "sales"}, frame.Schemas)
	assert.Equal(t, []database.Type{database.MySQL, database.Postgres}, frame.DatabaseTypes)

	o.SetSearch("customers")
	frame = o.View()
	assert.Len(t, frame.Graph.Nodes, 2)
	assert.Equal(t, "customers", frame.Filter.Search)

	o.SetSchema("raw")
	frame = o.View()
	require.Len(t, frame.Graph.Nodes, 1)
	assert.Equal(t, "tgt:raw.customers", frame.Graph.Nodes[0].ID)
	assert.Empty(t, frame.Graph.Edges)

	o.SetSchema("")
	o.SetSearch("")
	o.SetDatabaseTypeEnabled(database.MySQL, false)
	frame = o.View()
	for _, n := range frame.Graph.Nodes {
		assert.Equal(t, database.Postgres, n.DatabaseType)
	}

	o.SetSearch("no such table")
	frame = o.View()
	assert.True(t, frame.Graph.IsEmpty())
	assert.Equal(t, StateReady, frame.Status.State, "an empty view is not an error")

	o.ClearFilters()
	assert.Same(t, base, o.View().Graph)
	assert.Same(t, base, o.Graph(), "filtering never replaces the committed graph")
}

func TestViewReusesAdjacency(t *testing.T) {
	o := newInline(t)
	o.Update(shopInputs("sales.orders", "public.customers"))

	o.View()
	o.View()
	assert.Equal(t, 1, o.adjacency.Builds())

	o.SetSearch("shop")
	o.View()
	assert.Equal(t, 2, o.adjacency.Builds(), "source-only view has no edges")

	o.SetSearch("SHOP")
	o.View()
	assert.Equal(t, 2, o.adjacency.Builds(), "same visible edges reuse the adjacency")
}

func TestHover(t *testing.T) {
	o := newInline(t)
	o.Update(shopInputs("sales.orders", "public.customers"))

	assert.True(t, o.Hover("src:sales.orders"))
	hover := o.View().Hover
	assert.Equal(t, "src:sales.orders", hover.HoveredID)
	assert.True(t, hover.NodeActive("tgt:sales.orders"))
	assert.False(t, hover.NodeActive("tgt:raw.customers"))

	o.SetSearch("customers")
	assert.Empty(t, o.View().Hover.HoveredID, "hidden nodes lose the hover")

	assert.False(t, o.Hover("src:sales.orders"))
	assert.True(t, o.Hover("src:public.customers"))
}

func TestBackgroundSchedulerWait(t *testing.T) {
	var mu sync.Mutex
	var states []State
	o := New(zap.NewNop(), WithOnChange(func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}))

	o.Update(shopInputs("sales.orders"))
	o.Update(shopInputs("sales.orders", "public.customers"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))

	status := o.Status()
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, uint64(2), status.Generation)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateLoading)
	assert.Contains(t, states, StateReady)
}

func TestWaitHonoursContext(t *testing.T) {
	sched := &manualScheduler{}
	o := New(zap.NewNop(), WithScheduler(sched))
	o.Update(shopInputs("sales.orders"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Wait(ctx), context.Canceled)

	sched.run(0)
	assert.NoError(t, o.Wait(context.Background()))
}
