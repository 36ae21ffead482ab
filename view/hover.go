package view

import (
	"sort"

	"github.com/viveknathani/dblineage/graph"
)

// Adjacency maps a node id to the sorted ids of every node sharing an edge
// with it, in either direction.
type Adjacency map[string][]string

func NewAdjacency(edges []graph.LineageEdge) Adjacency {
	sets := make(map[string]map[string]bool)
	link := func(a, b string) {
		if sets[a] == nil {
			sets[a] = make(map[string]bool)
		}
		sets[a][b] = true
	}
	for _, e := range edges {
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}

	adj := make(Adjacency, len(sets))
	for id, set := range sets {
		neighbors := make([]string, 0, len(set))
		for n := range set {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		adj[id] = neighbors
	}
	return adj
}

// Connected reports whether x and y share an edge.
func (a Adjacency) Connected(x, y string) bool {
	neighbors := a[x]
	i := sort.SearchStrings(neighbors, y)
	return i < len(neighbors) && neighbors[i] == y
}

// HoverContext is the read-only highlighting state handed to renderers.
// The zero value highlights everything.
type HoverContext struct {
	HoveredID string
	Adjacency Adjacency
}

// WithHovered returns a copy of c hovering id. The adjacency is shared.
func (c HoverContext) WithHovered(id string) HoverContext {
	c.HoveredID = id
	return c
}

// NodeActive reports whether id should be drawn at full strength: nothing is
// hovered, id is hovered, or id neighbors the hovered node.
func (c HoverContext) NodeActive(id string) bool {
	if c.HoveredID == "" || c.HoveredID == id {
		return true
	}
	return c.Adjacency.Connected(c.HoveredID, id)
}

// EdgeActive reports whether e touches the hovered node.
func (c HoverContext) EdgeActive(e graph.LineageEdge) bool {
	if c.HoveredID == "" {
		return true
	}
	return e.Source == c.HoveredID || e.Target == c.HoveredID
}

// edgeSetKey identifies a sorted edge slice by its ids.
func edgeSetKey(edges []graph.LineageEdge) string {
	n := 0
	for _, e := range edges {
		n += len(e.ID) + 1
	}
	buf := make([]byte, 0, n)
	for _, e := range edges {
		buf = append(buf, e.ID...)
		buf = append(buf, '\n')
	}
	return string(buf)
}

// AdjacencyCache rebuilds the adjacency only when the edge set it is asked
// about differs from the previous one.
type AdjacencyCache struct {
	key    string
	adj    Adjacency
	builds int
}

// For returns the adjacency of edges, reusing the last result when the
// edge ids are unchanged.
func (c *AdjacencyCache) For(edges []graph.LineageEdge) Adjacency {
	key := edgeSetKey(edges)
	if c.adj != nil && key == c.key {
		return c.adj
	}
	c.key = key
	c.adj = NewAdjacency(edges)
	c.builds++
	return c.adj
}

// Builds reports how many times For had to rebuild the adjacency.
func (c *AdjacencyCache) Builds() int {
	return c.builds
}
