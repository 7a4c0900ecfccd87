package palette

import (
	"fmt"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// Config holds the per-label overrides (as hex strings) and the generator
// seed.
type Config struct {
	Nodes map[string]string `yaml:"nodes"`
	Edges map[string]string `yaml:"edges"`
	Seed  uint64            `yaml:"seed"`
}

// Assigner keeps two independent taxonomies, one for node types and one for
// edge types.
type Assigner struct {
	Nodes *Taxonomy
	Edges *Taxonomy
}

// NewAssigner builds an Assigner with the default palettes.
func NewAssigner(cfg Config) (*Assigner, error) {
	nodeOverrides, err := parseOverrides(cfg.Nodes)
	if err != nil {
		return nil, fmt.Errorf("node colors: %w", err)
	}
	edgeOverrides, err := parseOverrides(cfg.Edges)
	if err != nil {
		return nil, fmt.Errorf("edge colors: %w", err)
	}
	return &Assigner{
		Nodes: NewTaxonomy(DefaultNodePalette, nodeOverrides, defaultNodeColor, cfg.Seed),
		Edges: NewTaxonomy(DefaultEdgePalette, edgeOverrides, defaultEdgeColor, cfg.Seed+1),
	}, nil
}

func parseOverrides(in map[string]string) (map[string]Color, error) {
	out := make(map[string]Color, len(in))
	for label, hex := range in {
		c, err := ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		out[label] = c
	}
	return out, nil
}

// ObserveGraph assigns colors to every node and edge type of g in the order
// the types were first seen during ingestion.
func (a *Assigner) ObserveGraph(g *graph.Graph) {
	a.Nodes.Observe(g.NodeTypes()...)
	a.Edges.Observe(g.EdgeTypes()...)
}

// NodeColor returns the color of a node's first type, or the default color
// for an untyped node.
func (a *Assigner) NodeColor(n *graph.Node) Color {
	return a.Nodes.Color(n.PrimaryType())
}

// EdgeColor returns the color of the edge type.
func (a *Assigner) EdgeColor(e *graph.Edge) Color {
	return a.Edges.Color(e.Type)
}
