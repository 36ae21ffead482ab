package render

import (
	"encoding/json"
	"fmt"

	"github.com/viveknathani/dblineage/graph"
)

func renderJSON(g *graph.LineageGraph) (string, error) {
	type Result struct {
		Summary graph.Summary       `json:"summary"`
		Width   float64             `json:"width"`
		Height  float64             `json:"height"`
		Nodes   []graph.LineageNode `json:"nodes"`
		Edges   []graph.LineageEdge `json:"edges"`
	}

	result := Result{
		Summary: g.Summary(),
		Width:   g.Width,
		Height:  g.Height,
		Nodes:   g.Nodes,
		Edges:   g.Edges,
	}
	if result.Nodes == nil {
		result.Nodes = []graph.LineageNode{}
	}
	if result.Edges == nil {
		result.Edges = []graph.LineageEdge{}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return string(data), nil
}
