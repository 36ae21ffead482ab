// Package view derives what is displayed from a built lineage graph: the
// filtered subgraph and the hover highlighting context.
package view

import (
	"sort"
	"strings"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/layout"
)

// Filter is the set of user controls narrowing the visible graph.
type Filter struct {
	// Search is matched as a case-insensitive substring of the node label.
	Search string
	// Schema keeps only nodes in this schema. Empty means all schemas.
	Schema string
	// DatabaseTypes disables every type mapped to false. Types not present
	// in the map stay enabled.
	DatabaseTypes map[database.Type]bool
}

// Active reports whether any dimension of f constrains the graph.
func (f Filter) Active() bool {
	if strings.TrimSpace(f.Search) != "" || graph.NormalizeIdent(f.Schema) != "" {
		return true
	}
	for _, enabled := range f.DatabaseTypes {
		if !enabled {
			return true
		}
	}
	return false
}

// Clone returns a copy of f that shares no map with it.
func (f Filter) Clone() Filter {
	out := Filter{Search: f.Search, Schema: f.Schema}
	if f.DatabaseTypes != nil {
		out.DatabaseTypes = make(map[database.Type]bool, len(f.DatabaseTypes))
		for t, enabled := range f.DatabaseTypes {
			out.DatabaseTypes[t] = enabled
		}
	}
	return out
}

// Match reports whether n passes every active dimension of f.
func (f Filter) Match(n graph.LineageNode) bool {
	if enabled, ok := f.DatabaseTypes[n.DatabaseType]; ok && !enabled {
		return false
	}
	if schema := graph.NormalizeIdent(f.Schema); schema != "" && graph.NormalizeIdent(n.Schema) != schema {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" &&
		!strings.Contains(strings.ToLower(n.Label()), search) {
		return false
	}
	return true
}

// Apply returns the part of base that passes f, laid out afresh with opts.
// An inactive filter returns base itself. base is never modified.
func Apply(base *graph.LineageGraph, f Filter, opts layout.Options) *graph.LineageGraph {
	if base == nil {
		return &graph.LineageGraph{Nodes: []graph.LineageNode{}, Edges: []graph.LineageEdge{}}
	}
	if !f.Active() {
		return base
	}

	sub := &graph.LineageGraph{Nodes: []graph.LineageNode{}, Edges: []graph.LineageEdge{}}
	visible := make(map[string]bool, len(base.Nodes))
	for _, n := range base.Nodes {
		if f.Match(n) {
			visible[n.ID] = true
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, e := range base.Edges {
		if visible[e.Source] && visible[e.Target] {
			sub.Edges = append(sub.Edges, e)
		}
	}

	if len(sub.Nodes) == 0 {
		return sub
	}
	return sub.Positioned(opts)
}

// Schemas lists the distinct schemas of g's nodes, normalized and sorted.
func Schemas(g *graph.LineageGraph) []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, n := range g.Nodes {
		s := graph.NormalizeIdent(n.Schema)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DatabaseTypes lists the distinct database types of g's nodes, sorted.
func DatabaseTypes(g *graph.LineageGraph) []database.Type {
	if g == nil {
		return nil
	}
	seen := make(map[database.Type]bool)
	var out []database.Type
	for _, n := range g.Nodes {
		if seen[n.DatabaseType] {
			continue
		}
		seen[n.DatabaseType] = true
		out = append(out, n.DatabaseType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
