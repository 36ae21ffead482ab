// Package orchestrator keeps a lineage graph in sync with its inputs. It
// rebuilds off the caller's goroutine whenever the inputs change, commits
// only the most recently requested build, and serves filtered projections
// of the committed graph.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/layout"
	"github.com/viveknathani/dblineage/view"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateError   State = "error"
)

var ErrNilGraph = errors.New("builder returned no graph")

// Inputs are the values a rebuild depends on. A nil LastUpdated stamps the
// graph with the clock's current time.
type Inputs struct {
	Enabled     bool
	Source      *database.SchemaSnapshot
	Target      *database.SchemaSnapshot
	Selected    []string
	LastUpdated *time.Time
}

func (in Inputs) complete() bool {
	return in.Enabled && in.Source != nil && in.Target != nil && len(in.Selected) > 0
}

var marshalInputs = json.Marshal

// fingerprint hashes everything a build reads. Selection order is ignored
// since the built graph is sorted anyway.
func fingerprint(in Inputs) ([blake2b.Size256]byte, error) {
	selected := append([]string(nil), in.Selected...)
	sort.Strings(selected)

	var stamp string
	if in.LastUpdated != nil {
		stamp = in.LastUpdated.UTC().Format(time.RFC3339Nano)
	}

	data, err := marshalInputs(struct {
		Enabled     bool                     `json:"enabled"`
		Source      *database.SchemaSnapshot `json:"source"`
		Target      *database.SchemaSnapshot `json:"target"`
		Selected    []string                 `json:"selected"`
		LastUpdated string                   `json:"last_updated"`
	}{in.Enabled, in.Source, in.Target, selected, stamp})
	if err != nil {
		return [blake2b.Size256]byte{}, fmt.Errorf("failed to fingerprint inputs: %w", err)
	}

	return blake2b.Sum256(data), nil
}

// Builder turns inputs into an unpositioned graph.
type Builder func(graph.Inputs) (*graph.LineageGraph, error)

func defaultBuilder(in graph.Inputs) (*graph.LineageGraph, error) {
	return graph.Build(in), nil
}

// Status describes the committed state.
type Status struct {
	State      State         `json:"state"`
	Error      string        `json:"error,omitempty"`
	Generation uint64        `json:"generation"`
	BuildID    string        `json:"build_id,omitempty"`
	Summary    graph.Summary `json:"summary"`
}

// Frame is what a host displays: the visible graph, the highlighting
// context for it and the choices the filter controls offer.
type Frame struct {
	Status        Status
	Graph         *graph.LineageGraph
	Hover         view.HoverContext
	Filter        view.Filter
	Schemas       []string
	DatabaseTypes []database.Type
}

type Option func(*Orchestrator)

func WithScheduler(s Scheduler) Option {
	return func(o *Orchestrator) {
		o.scheduler = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithLayout(opts layout.Options) Option {
	return func(o *Orchestrator) {
		o.layout = opts
	}
}

// WithBuilder replaces graph.Build, mostly for tests.
func WithBuilder(b Builder) Option {
	return func(o *Orchestrator) {
		o.build = b
	}
}

// WithNodeActivation registers the callback run by Activate.
func WithNodeActivation(fn func(graph.Role, graph.LineageNode)) Option {
	return func(o *Orchestrator) {
		o.onActivate = fn
	}
}

// WithOnChange registers a callback run after every state or filter
// change. It is called without internal locks held and may call back into
// the orchestrator.
func WithOnChange(fn func(Status)) Option {
	return func(o *Orchestrator) {
		o.onChange = fn
	}
}

type Orchestrator struct {
	logger     *zap.Logger
	scheduler  Scheduler
	now        func() time.Time
	layout     layout.Options
	build      Builder
	onActivate func(graph.Role, graph.LineageNode)
	onChange   func(Status)

	mu          sync.Mutex
	fingerprint [blake2b.Size256]byte
	seen        bool
	generation  uint64
	status      Status
	base        *graph.LineageGraph

	filter    view.Filter
	visible   *graph.LineageGraph
	stale     bool
	adjacency view.AdjacencyCache
	hovered   string

	inflight int
	idle     chan struct{}
}

func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:    logger.Named("orchestrator"),
		scheduler: BackgroundScheduler{},
		now:       time.Now,
		layout:    layout.DefaultOptions(),
		build:     defaultBuilder,
		status:    Status{State: StateIdle},
		base:      emptyGraph(),
		stale:     true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func emptyGraph() *graph.LineageGraph {
	return &graph.LineageGraph{Nodes: []graph.LineageNode{}, Edges: []graph.LineageEdge{}}
}

// Update records new inputs and reports whether they differ from the last
// ones. Incomplete inputs reset to idle; complete ones start a build on the
// scheduler. Update never waits for a build. Inputs that cannot be
// fingerprinted always count as changed.
func (o *Orchestrator) Update(in Inputs) bool {
	sum, err := fingerprint(in)
	if err != nil {
		o.logger.Warn("rebuilding without change detection", zap.Error(err))
	}

	o.mu.Lock()
	if err == nil && o.seen && sum == o.fingerprint {
		o.mu.Unlock()
		return false
	}
	o.seen = err == nil
	o.fingerprint = sum
	o.generation++
	generation := o.generation

	if !in.complete() {
		o.commitLocked(Status{State: StateIdle, Generation: generation}, emptyGraph())
		status := o.status
		o.mu.Unlock()

		o.logger.Debug("lineage inputs incomplete", zap.Uint64("generation", generation))
		o.notify(status)
		return true
	}

	buildID := uuid.NewString()
	o.status = Status{State: StateLoading, Generation: generation, BuildID: buildID, Summary: o.base.Summary()}
	o.beginLocked()
	status := o.status
	o.mu.Unlock()

	stamp := o.now()
	if in.LastUpdated != nil {
		stamp = *in.LastUpdated
	}
	buildInputs := graph.Inputs{
		Source:      in.Source,
		Target:      in.Target,
		Selected:    append([]string(nil), in.Selected...),
		LastUpdated: stamp,
	}

	o.logger.Debug("scheduling lineage build",
		zap.String("build_id", buildID),
		zap.Uint64("generation", generation),
		zap.Int("selected", len(in.Selected)),
	)
	o.notify(status)
	o.scheduler.Schedule(func() {
		o.run(generation, buildID, buildInputs)
	})
	return true
}

func (o *Orchestrator) run(generation uint64, buildID string, in graph.Inputs) {
	defer o.end()

	start := time.Now()
	g, err := o.safeBuild(in)
	elapsed := time.Since(start)

	o.mu.Lock()
	if generation != o.generation {
		latest := o.generation
		o.mu.Unlock()
		o.logger.Debug("dropping superseded lineage build",
			zap.String("build_id", buildID),
			zap.Uint64("generation", generation),
			zap.Uint64("latest", latest),
		)
		return
	}

	status := Status{Generation: generation, BuildID: buildID}
	switch {
	case err != nil:
		status.State = StateError
		status.Error = err.Error()
		g = emptyGraph()
	case len(g.Edges) == 0:
		status.State = StateEmpty
	default:
		status.State = StateReady
	}
	o.commitLocked(status, g)
	status = o.status
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("lineage build failed",
			zap.String("build_id", buildID),
			zap.Uint64("generation", generation),
			zap.Error(err),
		)
	} else {
		o.logger.Info("lineage build committed",
			zap.String("build_id", buildID),
			zap.Uint64("generation", generation),
			zap.String("state", string(status.State)),
			zap.Int("nodes", len(g.Nodes)),
			zap.Int("edges", len(g.Edges)),
			zap.Duration("elapsed", elapsed),
		)
	}
	o.notify(status)
}

// safeBuild runs the builder and the layout, turning panics into errors.
func (o *Orchestrator) safeBuild(in graph.Inputs) (g *graph.LineageGraph, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	g, err = o.build(in)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNilGraph
	}
	return g.Positioned(o.layout), nil
}

func (o *Orchestrator) commitLocked(status Status, g *graph.LineageGraph) {
	status.Summary = g.Summary()
	o.status = status
	o.base = g
	o.stale = true
	if _, ok := g.Node(o.hovered); !ok {
		o.hovered = ""
	}
}

func (o *Orchestrator) beginLocked() {
	if o.inflight == 0 {
		o.idle = make(chan struct{})
	}
	o.inflight++
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	if o.inflight == 0 {
		close(o.idle)
	}
}

// Wait blocks until no build is in flight or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	if o.inflight == 0 {
		o.mu.Unlock()
		return nil
	}
	idle := o.idle
	o.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) notify(status Status) {
	if o.onChange != nil {
		o.onChange(status)
	}
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Graph returns the committed, unfiltered graph.
func (o *Orchestrator) Graph() *graph.LineageGraph {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.base
}

func (o *Orchestrator) updateFilter(change func(f *view.Filter)) {
	o.mu.Lock()
	change(&o.filter)
	o.stale = true
	status := o.status
	o.mu.Unlock()
	o.notify(status)
}

func (o *Orchestrator) SetSearch(search string) {
	o.updateFilter(func(f *view.Filter) { f.Search = search })
}

// SetSchema restricts the view to one schema; "" removes the restriction.
func (o *Orchestrator) SetSchema(schema string) {
	o.updateFilter(func(f *view.Filter) { f.Schema = schema })
}

func (o *Orchestrator) SetDatabaseTypeEnabled(t database.Type, enabled bool) {
	o.updateFilter(func(f *view.Filter) {
		if f.DatabaseTypes == nil {
			f.DatabaseTypes = make(map[database.Type]bool)
		}
		f.DatabaseTypes[t] = enabled
	})
}

func (o *Orchestrator) ClearFilters() {
	o.updateFilter(func(f *view.Filter) { *f = view.Filter{} })
}

// refreshLocked recomputes the projection after the graph or the filter
// changed.
func (o *Orchestrator) refreshLocked() {
	if !o.stale {
		return
	}
	o.visible = view.Apply(o.base, o.filter, o.layout)
	o.stale = false
	if _, ok := o.visible.Node(o.hovered); !ok {
		o.hovered = ""
	}
}

// View returns the filtered view of the committed graph. The adjacency is
// rebuilt only when the visible edges differ from the previous call.
func (o *Orchestrator) View() Frame {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.refreshLocked()

	return Frame{
		Status: o.status,
		Graph:  o.visible,
		Hover: view.HoverContext{
			HoveredID: o.hovered,
			Adjacency: o.adjacency.For(o.visible.Edges),
		},
		Filter:        o.filter.Clone(),
		Schemas:       view.Schemas(o.base),
		DatabaseTypes: view.DatabaseTypes(o.base),
	}
}

// Hover highlights id and its neighbors. An id that is not visible clears
// the highlight. It reports whether id is now hovered.
func (o *Orchestrator) Hover(id string) bool {
	o.mu.Lock()
	o.refreshLocked()
	_, ok := o.visible.Node(id)
	if ok {
		o.hovered = id
	} else {
		o.hovered = ""
	}
	o.mu.Unlock()
	return ok
}

// Activate runs the node activation callback for id. It reports whether id
// names a node of the committed graph.
func (o *Orchestrator) Activate(id string) bool {
	o.mu.Lock()
	node, ok := o.base.Node(id)
	o.mu.Unlock()
	if !ok {
		return false
	}

	o.logger.Debug("node activated", zap.String("node", id), zap.String("role", string(node.Role)))
	if o.onActivate != nil {
		o.onActivate(node.Role, node)
	}
	return true
}
