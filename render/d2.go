package render

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/viveknathani/d2/d2graph"
	"github.com/viveknathani/d2/d2layouts/d2elklayout"
	"github.com/viveknathani/d2/d2lib"
	"github.com/viveknathani/d2/d2renderers/d2ascii"
	"github.com/viveknathani/d2/d2renderers/d2ascii/charset"
	"github.com/viveknathani/d2/d2renderers/d2svg"
	"github.com/viveknathani/d2/d2target"
	"github.com/viveknathani/d2/lib/textmeasure"
	"oss.terrastruct.com/util-go/go2"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/layout"
)

// d2Script describes the graph in the D2 diagram language, one sql_table
// per node.
func d2Script(g *graph.LineageGraph, o options) string {
	var sb strings.Builder

	if o.layout.Direction == layout.TopToBottom {
		sb.WriteString("direction: down\n")
	} else {
		sb.WriteString("direction: right\n")
	}

	for _, node := range g.Nodes {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s: %s {\n", strconv.Quote(node.ID), strconv.Quote(node.Label())))
		sb.WriteString("  shape: sql_table\n")
		sb.WriteString(fmt.Sprintf("  engine: %s\n", strconv.Quote(string(node.DatabaseType))))
		sb.WriteString(fmt.Sprintf("  rows: %s\n", strconv.Quote(strconv.FormatInt(node.RowCount, 10))))
		sb.WriteString(fmt.Sprintf("  columns: %s\n", strconv.Quote(strconv.Itoa(node.ColumnCount))))
		if node.Role == graph.RoleTarget {
			sb.WriteString(fmt.Sprintf("  status: %s\n", strconv.Quote(string(node.Status))))
		}
		sb.WriteString("}\n")
	}

	if len(g.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range g.Edges {
		sb.WriteString(fmt.Sprintf("%s -> %s: %s\n",
			strconv.Quote(edge.Source), strconv.Quote(edge.Target), strconv.Quote(edge.MappingType)))
	}

	return sb.String()
}

func compileD2(ctx context.Context, script string) (*d2target.Diagram, *d2svg.RenderOpts, error) {
	ruler, err := textmeasure.NewRuler()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create text ruler: %w", err)
	}

	layoutResolver := func(engine string) (d2graph.LayoutGraph, error) {
		return d2elklayout.DefaultLayout, nil
	}

	compileOpts := &d2lib.CompileOptions{
		Ruler:          ruler,
		Layout:         go2.Pointer("elk"),
		LayoutResolver: layoutResolver,
	}

	themeID := int64(0)
	renderOpts := &d2svg.RenderOpts{
		Pad:     go2.Pointer(int64(0)),
		ThemeID: &themeID,
	}

	diagram, _, err := d2lib.Compile(ctx, script, compileOpts, renderOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile diagram: %w", err)
	}

	return diagram, renderOpts, nil
}

func renderASCII(ctx context.Context, g *graph.LineageGraph, o options) (string, error) {
	if g.IsEmpty() {
		return "no tables to display", nil
	}

	diagram, _, err := compileD2(ctx, d2Script(g, o))
	if err != nil {
		return "", err
	}

	artist := d2ascii.NewASCIIartist()
	out, err := artist.Render(ctx, diagram, &d2ascii.RenderOpts{
		Scale:   go2.Pointer(2.0),
		Charset: charset.Unicode,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render ascii diagram: %w", err)
	}

	return string(out), nil
}

func renderSVG(ctx context.Context, g *graph.LineageGraph, o options) (string, error) {
	script := d2Script(g, o)
	if g.IsEmpty() {
		script += "\nempty: \"no tables to display\"\n"
	}

	diagram, renderOpts, err := compileD2(ctx, script)
	if err != nil {
		return "", err
	}

	out, err := d2svg.Render(diagram, renderOpts)
	if err != nil {
		return "", fmt.Errorf("failed to render svg diagram: %w", err)
	}

	return string(out), nil
}
