package visualization

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
)

// Visualization represents a laid-out graph ready for export
type Visualization struct {
	Graph     *graph.Graph
	Positions map[string]Vec3
	Volume    Ellipsoid
	Colors    *palette.Assigner // optional
}

// ExportJSON exports the visualization to JSON. Nodes without a position are
// skipped, and so are edges touching them.
func (v *Visualization) ExportJSON() ([]byte, error) {
	type NodeViz struct {
		ID         string            `json:"id"`
		Types      []string          `json:"types"`
		Name       string            `json:"name"`
		Properties map[string]string `json:"properties"`
		Position   Vec3              `json:"position"`
		Color      string            `json:"color,omitempty"`
	}

	type EdgeViz struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type"`
		Color  string `json:"color,omitempty"`
	}

	type VizData struct {
		Volume Ellipsoid `json:"volume"`
		Nodes  []NodeViz `json:"nodes"`
		Edges  []EdgeViz `json:"edges"`
	}

	data := VizData{
		Volume: v.Volume,
		Nodes:  make([]NodeViz, 0, v.Graph.NodeCount()),
		Edges:  make([]EdgeViz, 0, v.Graph.EdgeCount()),
	}

	for _, node := range v.Graph.Nodes() {
		pos, ok := v.Positions[node.ID]
		if !ok {
			continue
		}
		props := make(map[string]string, len(node.Attributes))
		for key, val := range node.Attributes {
			if s, ok := val.(string); ok {
				props[key] = s
			} else {
				props[key] = fmt.Sprintf("%v", val)
			}
		}
		nv := NodeViz{
			ID:         node.ID,
			Types:      node.Types,
			Name:       node.DisplayName(),
			Properties: props,
			Position:   pos,
		}
		if v.Colors != nil {
			nv.Color = v.Colors.NodeColor(node).Hex()
		}
		data.Nodes = append(data.Nodes, nv)
	}

	for _, edge := range v.Graph.Edges() {
		_, okS := v.Positions[edge.Source]
		_, okT := v.Positions[edge.Target]
		if !okS || !okT {
			continue
		}
		ev := EdgeViz{ID: edge.ID, Source: edge.Source, Target: edge.Target, Type: edge.Type}
		if v.Colors != nil {
			ev.Color = v.Colors.EdgeColor(edge).Hex()
		}
		data.Edges = append(data.Edges, ev)
	}

	return json.Marshal(data)
}
