package render

import (
	"fmt"
	"strings"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/view"
)

// renderText lists every source table with its targets below it.
func renderText(g *graph.LineageGraph, o options) string {
	var sb strings.Builder

	summary := g.Summary()
	sb.WriteString(fmt.Sprintf("Sources: %d\nTargets: %d\nLinks: %d\n", summary.Sources, summary.Targets, summary.Links))

	if g.IsEmpty() {
		sb.WriteString("\nno tables to display\n")
		return sb.String()
	}

	outgoing := make(map[string][]graph.LineageEdge)
	linked := make(map[string]bool)
	for _, edge := range g.Edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
		linked[edge.Target] = true
	}

	for _, node := range g.Nodes {
		if node.Role != graph.RoleSource {
			continue
		}
		sb.WriteString("\n")
		writeNodeLine(&sb, node, o.hover)

		edges := outgoing[node.ID]
		if len(edges) == 0 {
			sb.WriteString("└── (no visible targets)\n")
			continue
		}
		for i, edge := range edges {
			connector := "├── "
			if i == len(edges)-1 {
				connector = "└── "
			}
			target, ok := g.Node(edge.Target)
			if !ok {
				continue
			}
			sb.WriteString(connector)
			writeNodeLine(&sb, target, o.hover)
		}
	}

	var unlinked []graph.LineageNode
	for _, node := range g.Nodes {
		if node.Role == graph.RoleTarget && !linked[node.ID] {
			unlinked = append(unlinked, node)
		}
	}
	if len(unlinked) > 0 {
		sb.WriteString("\nUnlinked targets:\n")
		for _, node := range unlinked {
			sb.WriteString("• ")
			writeNodeLine(&sb, node, o.hover)
		}
	}

	return sb.String()
}

func writeNodeLine(sb *strings.Builder, node graph.LineageNode, hover view.HoverContext) {
	sb.WriteString(node.Label())
	sb.WriteString(fmt.Sprintf(" (%s, %d rows, %d columns", node.DatabaseType, node.RowCount, node.ColumnCount))
	if node.Role == graph.RoleTarget {
		sb.WriteString(", ")
		sb.WriteString(string(node.Status))
	}
	sb.WriteString(")")

	switch {
	case hover.HoveredID == node.ID:
		sb.WriteString(" ◆")
	case !hover.NodeActive(node.ID):
		sb.WriteString(" ·")
	}
	sb.WriteString("\n")
}
