package render

import (
	"fmt"
	"strings"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/layout"
)

// Layout units covered by one character cell.
const (
	cellWidth  = 8.0
	cellHeight = 24.0

	minBoxCols = 16
	minBoxRows = 5
)

type canvas struct {
	grid   [][]rune
	width  int
	height int
}

func newCanvas(width, height int) *canvas {
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}
	return &canvas{grid: grid, width: width, height: height}
}

func (c *canvas) set(x, y int, ch rune) {
	if y >= 0 && y < c.height && x >= 0 && x < c.width {
		c.grid[y][x] = ch
	}
}

func (c *canvas) get(x, y int) rune {
	if y >= 0 && y < c.height && x >= 0 && x < c.width {
		return c.grid[y][x]
	}
	return ' '
}

// line draws a connector glyph, joining it with any connector already in
// the cell.
func (c *canvas) line(x, y int, ch rune) {
	c.set(x, y, joinGlyphs(c.get(x, y), ch))
}

func (c *canvas) text(x, y int, s string) {
	for _, ch := range s {
		c.set(x, y, ch)
		x++
	}
}

func (c *canvas) String() string {
	var sb strings.Builder
	for y := 0; y < c.height; y++ {
		line := string(c.grid[y])
		// Trim trailing spaces
		line = strings.TrimRight(line, " ")
		sb.WriteString(line)
		if y < c.height-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Connector glyphs as sets of the directions they open to.
const (
	up = 1 << iota
	down
	left
	right
)

var glyphDirections = map[rune]int{
	'─': left | right,
	'│': up | down,
	'┄': left | right,
	'┆': up | down,
	'┌': down | right,
	'┐': down | left,
	'└': up | right,
	'┘': up | left,
	'├': up | down | right,
	'┤': up | down | left,
	'┬': down | left | right,
	'┴': up | left | right,
	'┼': up | down | left | right,
}

var directionGlyphs = map[int]rune{
	left | right:             '─',
	up | down:                '│',
	down | right:             '┌',
	down | left:              '┐',
	up | right:               '└',
	up | left:                '┘',
	up | down | right:        '├',
	up | down | left:         '┤',
	down | left | right:      '┬',
	up | left | right:        '┴',
	up | down | left | right: '┼',
}

func joinGlyphs(current, next rune) rune {
	if current == ' ' {
		return next
	}
	a, ok := glyphDirections[current]
	if !ok {
		return current
	}
	b, ok := glyphDirections[next]
	if !ok {
		return current
	}
	if a|b == b {
		return next
	}
	if ch, ok := directionGlyphs[a|b]; ok {
		return ch
	}
	return current
}

type nodeBox struct {
	node   graph.LineageNode
	col    int
	row    int
	width  int
	height int
}

func (b nodeBox) centerCol() int { return b.col + b.width/2 }
func (b nodeBox) centerRow() int { return b.row + b.height/2 }

type boxStyle struct {
	horizontal, vertical                           rune
	topLeft, topRight, bottomLeft, bottomRight     rune
	separatorLeft, separatorRight, separatorMiddle rune
}

var (
	solidBox   = boxStyle{'─', '│', '┌', '┐', '└', '┘', '├', '┤', '─'}
	dimmedBox  = boxStyle{'┄', '┆', '┌', '┐', '└', '┘', '├', '┤', '┄'}
	hoveredBox = boxStyle{'═', '║', '╔', '╗', '╚', '╝', '╟', '╢', '─'}
)

// renderCanvas draws the positioned graph as boxes and arrows on a
// character grid scaled down from layout units.
func renderCanvas(g *graph.LineageGraph, o options) string {
	if g.IsEmpty() {
		return "no tables to display"
	}

	boxWidth := int(o.layout.NodeWidth / cellWidth)
	if boxWidth < minBoxCols {
		boxWidth = minBoxCols
	}
	boxHeight := int(o.layout.NodeHeight / cellHeight)
	if boxHeight < minBoxRows {
		boxHeight = minBoxRows
	}

	boxes := make(map[string]nodeBox, len(g.Nodes))
	width, height := 0, 0
	for _, node := range g.Nodes {
		b := nodeBox{
			node:   node,
			col:    int(node.Position.X / cellWidth),
			row:    int(node.Position.Y / cellHeight),
			width:  boxWidth,
			height: boxHeight,
		}
		boxes[node.ID] = b
		if b.col+b.width > width {
			width = b.col + b.width
		}
		if b.row+b.height > height {
			height = b.row + b.height
		}
	}

	c := newCanvas(width+1, height+1)

	var arrows []func()
	for _, edge := range g.Edges {
		from, ok := boxes[edge.Source]
		if !ok {
			continue
		}
		to, ok := boxes[edge.Target]
		if !ok {
			continue
		}
		arrows = append(arrows, drawEdge(c, from, to, o.hover.EdgeActive(edge), o.layout.Direction))
	}

	for _, node := range g.Nodes {
		style := solidBox
		switch {
		case o.hover.HoveredID == node.ID:
			style = hoveredBox
		case !o.hover.NodeActive(node.ID):
			style = dimmedBox
		}
		drawBox(c, boxes[node.ID], style)
	}

	for _, arrow := range arrows {
		arrow()
	}

	return c.String()
}

func drawBox(c *canvas, b nodeBox, style boxStyle) {
	right := b.col + b.width - 1
	bottom := b.row + b.height - 1

	for x := b.col; x <= right; x++ {
		for y := b.row; y <= bottom; y++ {
			c.set(x, y, ' ')
		}
	}

	// Borders
	for x := b.col + 1; x < right; x++ {
		c.set(x, b.row, style.horizontal)
		c.set(x, bottom, style.horizontal)
		c.set(x, b.row+2, style.separatorMiddle)
	}
	for y := b.row + 1; y < bottom; y++ {
		c.set(b.col, y, style.vertical)
		c.set(right, y, style.vertical)
	}
	c.set(b.col, b.row, style.topLeft)
	c.set(right, b.row, style.topRight)
	c.set(b.col, bottom, style.bottomLeft)
	c.set(right, bottom, style.bottomRight)
	c.set(b.col, b.row+2, style.separatorLeft)
	c.set(right, b.row+2, style.separatorRight)

	// Title (centered)
	inner := b.width - 2
	title := truncate(b.node.Schema+"."+b.node.Table, inner)
	padding := (inner - len([]rune(title))) / 2
	c.text(b.col+1+padding, b.row+1, title)

	// Details, as many as fit
	details := boxDetails(b.node)
	for i, line := range details {
		y := b.row + 3 + i
		if y >= bottom {
			break
		}
		c.text(b.col+2, y, truncate(line, inner-2))
	}
}

func boxDetails(node graph.LineageNode) []string {
	counts := fmt.Sprintf("%d rows · %d cols", node.RowCount, node.ColumnCount)
	if node.Role == graph.RoleTarget {
		counts = string(node.Status) + " · " + counts
	}
	return []string{counts, string(node.DatabaseType) + " · " + node.Database}
}

// drawEdge draws the connector between two boxes and returns a function
// drawing the arrow head, to be run once every box is on the canvas.
func drawEdge(c *canvas, from, to nodeBox, active bool, direction layout.Direction) func() {
	horizontal, vertical := '─', '│'
	if !active {
		horizontal, vertical = '┄', '┆'
	}

	if direction == layout.TopToBottom {
		x0, y0 := from.centerCol(), from.row+from.height
		x1, y1 := to.centerCol(), to.row-1
		midY := (y0 + y1) / 2

		for y := y0; y < midY; y++ {
			c.line(x0, y, vertical)
		}
		if x0 != x1 {
			if x1 > x0 {
				c.line(x0, midY, '└')
				c.line(x1, midY, '┐')
			} else {
				c.line(x0, midY, '┘')
				c.line(x1, midY, '┌')
			}
			lo, hi := x0, x1
			if lo > hi {
				lo, hi = hi, lo
			}
			for x := lo + 1; x < hi; x++ {
				c.line(x, midY, horizontal)
			}
		} else {
			c.line(x0, midY, vertical)
		}
		for y := midY + 1; y < y1; y++ {
			c.line(x1, y, vertical)
		}

		head := '▼'
		if !active {
			head = '▽'
		}
		return func() { c.set(x1, y1, head) }
	}

	x0, y0 := from.col+from.width, from.centerRow()
	x1, y1 := to.col-1, to.centerRow()
	midX := (x0 + x1) / 2

	for x := x0; x < midX; x++ {
		c.line(x, y0, horizontal)
	}
	if y0 != y1 {
		if y1 > y0 {
			c.line(midX, y0, '┐')
			c.line(midX, y1, '└')
		} else {
			c.line(midX, y0, '┘')
			c.line(midX, y1, '┌')
		}
		lo, hi := y0, y1
		if lo > hi {
			lo, hi = hi, lo
		}
		for y := lo + 1; y < hi; y++ {
			c.line(midX, y, vertical)
		}
	} else {
		c.line(midX, y0, horizontal)
	}
	for x := midX + 1; x < x1; x++ {
		c.line(x, y1, horizontal)
	}

	head := '►'
	if !active {
		head = '▷'
	}
	return func() { c.set(x1, y1, head) }
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
