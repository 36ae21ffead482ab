// Package layout places the nodes of a directed graph on a layered grid.
//
// Compute runs three phases on a sorted copy of its input:
//
//   - ranking: every node gets the length of the longest path reaching it
//     from a node without incoming edges. Cycles are broken by releasing the
//     smallest remaining id, which makes the edges closing the cycle point
//     backwards.
//   - ordering: nodes inside a rank are reordered by the barycenter of
//     their neighbors in alternating down and up sweeps. The ordering with
//     the fewest crossings between adjacent ranks is kept.
//   - coordinates: ranks are spaced along the flow axis and orders along
//     the cross axis, each rank centred on the widest one. Points are the
//     top-left corners of fixed size boxes.
//
// Output depends only on the set of node ids and edges, never on the order
// they are passed in.
package layout

import (
	"sort"
)

type Direction string

const (
	// LeftToRight puts rank 0 on the left.
	LeftToRight Direction = "LR"
	// TopToBottom puts rank 0 at the top.
	TopToBottom Direction = "TB"
)

// Options are the box size and spacing constants. Zero values fall back to
// DefaultOptions.
type Options struct {
	NodeWidth  float64
	NodeHeight float64
	RankSep    float64
	NodeSep    float64
	Margin     float64
	Iterations int
	Direction  Direction
}

func DefaultOptions() Options {
	return Options{
		NodeWidth:  304,
		NodeHeight: 124,
		RankSep:    160,
		NodeSep:    64,
		Margin:     24,
		Iterations: 4,
		Direction:  LeftToRight,
	}
}

// WithDefaults replaces unset or invalid fields with their defaults.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.NodeWidth <= 0 {
		o.NodeWidth = d.NodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = d.NodeHeight
	}
	if o.RankSep <= 0 {
		o.RankSep = d.RankSep
	}
	if o.NodeSep <= 0 {
		o.NodeSep = d.NodeSep
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if o.Direction != TopToBottom {
		o.Direction = LeftToRight
	}
	return o
}

type Edge struct {
	From string
	To   string
}

type Point struct {
	X float64
	Y float64
}

// Result holds the top-left corner of every node and the drawing extent.
type Result struct {
	Positions map[string]Point
	Ranks     map[string]int
	Width     float64
	Height    float64
}

// Compute lays out the graph. Edges whose endpoints are not in nodeIDs and
// self loops are ignored; duplicate ids and edges collapse.
func Compute(nodeIDs []string, edges []Edge, opts Options) Result {
	opts = opts.WithDefaults()

	g := newDigraph(nodeIDs, edges)
	res := Result{
		Positions: make(map[string]Point, len(g.ids)),
		Ranks:     make(map[string]int, len(g.ids)),
	}
	if len(g.ids) == 0 {
		return res
	}

	ranks := g.assignRanks()
	layers := g.orderLayers(ranks, opts.Iterations)

	for id, r := range ranks {
		res.Ranks[id] = r
	}
	res.Width, res.Height = place(layers, opts, res.Positions)

	return res
}

// digraph is the sorted, deduplicated form of the input.
type digraph struct {
	ids   []string
	succs map[string][]string
	preds map[string][]string
}

func newDigraph(nodeIDs []string, edges []Edge) *digraph {
	g := &digraph{
		succs: make(map[string][]string),
		preds: make(map[string][]string),
	}

	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if !known[id] {
			known[id] = true
			g.ids = append(g.ids, id)
		}
	}
	sort.Strings(g.ids)

	sorted := make([]Edge, 0, len(edges))
	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		if e.From == e.To || !known[e.From] || !known[e.To] || seen[e] {
			continue
		}
		seen[e] = true
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})

	for _, e := range sorted {
		g.succs[e.From] = append(g.succs[e.From], e.To)
		g.preds[e.To] = append(g.preds[e.To], e.From)
	}

	return g
}

// assignRanks computes longest-path ranks with Kahn's algorithm over a
// frontier kept in id order.
func (g *digraph) assignRanks() map[string]int {
	ranks := make(map[string]int, len(g.ids))
	inDegree := make(map[string]int, len(g.ids))
	done := make(map[string]bool, len(g.ids))
	queued := make(map[string]bool, len(g.ids))

	var frontier []string
	for _, id := range g.ids {
		ranks[id] = 0
		inDegree[id] = len(g.preds[id])
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
			queued[id] = true
		}
	}

	next := 0 // scan position for cycle breaking
	for processed := 0; processed < len(g.ids); {
		if len(frontier) == 0 {
			for done[g.ids[next]] || queued[g.ids[next]] {
				next++
			}
			frontier = append(frontier, g.ids[next])
			queued[g.ids[next]] = true
		}

		current := frontier[0]
		frontier = frontier[1:]
		done[current] = true
		processed++

		for _, succ := range g.succs[current] {
			if done[succ] {
				continue
			}
			if ranks[current]+1 > ranks[succ] {
				ranks[succ] = ranks[current] + 1
			}
			inDegree[succ]--
			if inDegree[succ] == 0 && !queued[succ] {
				queued[succ] = true
				frontier = append(frontier, succ)
				sort.Strings(frontier)
			}
		}
	}

	return ranks
}

// orderLayers groups nodes by rank and reduces crossings with barycenter
// sweeps. Layers start in id order.
func (g *digraph) orderLayers(ranks map[string]int, iterations int) [][]string {
	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}

	layers := make([][]string, maxRank+1)
	for _, id := range g.ids {
		layers[ranks[id]] = append(layers[ranks[id]], id)
	}

	best := copyLayers(layers)
	bestCrossings := g.crossings(layers, ranks)

	for i := 0; i < iterations && bestCrossings > 0; i++ {
		if i%2 == 0 {
			for r := 1; r < len(layers); r++ {
				g.sortByBarycenter(layers, r, ranks, g.preds, func(n int) bool { return n < r })
			}
		} else {
			for r := len(layers) - 2; r >= 0; r-- {
				g.sortByBarycenter(layers, r, ranks, g.succs, func(n int) bool { return n > r })
			}
		}

		if c := g.crossings(layers, ranks); c < bestCrossings {
			bestCrossings = c
			best = copyLayers(layers)
		}
	}

	return best
}

// sortByBarycenter reorders layer r by the mean index of each node's
// neighbors on the swept side. Nodes without such neighbors keep their
// index as barycenter; ties keep the current order.
func (g *digraph) sortByBarycenter(layers [][]string, r int, ranks map[string]int,
	neighbors map[string][]string, onSweptSide func(rank int) bool) {

	index := make(map[string]int)
	for _, layer := range layers {
		for i, id := range layer {
			index[id] = i
		}
	}

	layer := layers[r]
	bary := make(map[string]float64, len(layer))
	for i, id := range layer {
		sum, count := 0, 0
		for _, n := range neighbors[id] {
			if onSweptSide(ranks[n]) {
				sum += index[n]
				count++
			}
		}
		if count == 0 {
			bary[id] = float64(i)
			continue
		}
		bary[id] = float64(sum) / float64(count)
	}

	sort.SliceStable(layer, func(i, j int) bool { return bary[layer[i]] < bary[layer[j]] })
}

// crossings counts crossing pairs among edges joining adjacent ranks.
func (g *digraph) crossings(layers [][]string, ranks map[string]int) int {
	index := make(map[string]int)
	for _, layer := range layers {
		for i, id := range layer {
			index[id] = i
		}
	}

	total := 0
	for r := 0; r+1 < len(layers); r++ {
		var segments [][2]int
		for _, from := range layers[r] {
			for _, to := range g.succs[from] {
				if ranks[to] == r+1 {
					segments = append(segments, [2]int{index[from], index[to]})
				}
			}
		}
		for i := 0; i < len(segments); i++ {
			for j := i + 1; j < len(segments); j++ {
				a, b := segments[i], segments[j]
				if (a[0] < b[0] && a[1] > b[1]) || (a[0] > b[0] && a[1] < b[1]) {
					total++
				}
			}
		}
	}

	return total
}

// place assigns top-left corners and returns the drawing width and height.
func place(layers [][]string, opts Options, out map[string]Point) (float64, float64) {
	along, across := opts.NodeWidth, opts.NodeHeight
	if opts.Direction == TopToBottom {
		along, across = opts.NodeHeight, opts.NodeWidth
	}

	widest := 0
	for _, layer := range layers {
		if len(layer) > widest {
			widest = len(layer)
		}
	}

	for r, layer := range layers {
		offset := float64(widest-len(layer)) * (across + opts.NodeSep) / 2
		for i, id := range layer {
			centerAlong := opts.Margin + float64(r)*(along+opts.RankSep) + along/2
			centerAcross := opts.Margin + offset + float64(i)*(across+opts.NodeSep) + across/2

			cx, cy := centerAlong, centerAcross
			if opts.Direction == TopToBottom {
				cx, cy = centerAcross, centerAlong
			}
			out[id] = Point{X: cx - opts.NodeWidth/2, Y: cy - opts.NodeHeight/2}
		}
	}

	extentAlong := 2*opts.Margin + float64(len(layers))*along + float64(len(layers)-1)*opts.RankSep
	extentAcross := 2*opts.Margin + float64(widest)*across + float64(widest-1)*opts.NodeSep
	if opts.Direction == TopToBottom {
		return extentAcross, extentAlong
	}
	return extentAlong, extentAcross
}

func copyLayers(layers [][]string) [][]string {
	out := make([][]string, len(layers))
	for i, layer := range layers {
		out[i] = append([]string(nil), layer...)
	}
	return out
}
