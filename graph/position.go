package graph

import "github.com/viveknathani/dblineage/layout"

// Positioned returns a copy of g with every node placed by the layered
// layout. g itself is not modified.
func (g *LineageGraph) Positioned(opts layout.Options) *LineageGraph {
	out := &LineageGraph{
		Nodes: make([]LineageNode, len(g.Nodes)),
		Edges: make([]LineageEdge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	sortByID(out)

	ids := make([]string, len(out.Nodes))
	for i, n := range out.Nodes {
		ids[i] = n.ID
	}
	edges := make([]layout.Edge, len(out.Edges))
	for i, e := range out.Edges {
		edges[i] = layout.Edge{From: e.Source, To: e.Target}
	}

	res := layout.Compute(ids, edges, opts)
	for i := range out.Nodes {
		p := res.Positions[out.Nodes[i].ID]
		out.Nodes[i].Position = Position{X: p.X, Y: p.Y}
	}
	out.Width, out.Height = res.Width, res.Height

	return out
}
