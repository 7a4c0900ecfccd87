package visualization

import (
	"math"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// LayeredLayout arranges nodes in horizontal rings stacked along the Y axis,
// one ring per BFS level from the root nodes.
type LayeredLayout struct {
	config LayoutConfig
}

// NewLayeredLayout creates a new layered layout
func NewLayeredLayout(config LayoutConfig) *LayeredLayout {
	return &LayeredLayout{config: config}
}

// ComputeLayout arranges nodes hierarchically
func (ll *LayeredLayout) ComputeLayout(nodeIDs []string, edges []*graph.Edge) (map[string]Vec3, error) {
	vol := ll.config.Volume()
	if err := validateVolume(vol); err != nil {
		return nil, err
	}
	nodeIDs = dedupe(nodeIDs)
	positions := make(map[string]Vec3, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return positions, nil
	}

	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = true
	}
	outgoing := make(map[string][]string)
	hasIncoming := make(map[string]bool)
	for _, e := range edges {
		if e.Source == e.Target || !known[e.Source] || !known[e.Target] {
			continue
		}
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
		hasIncoming[e.Target] = true
	}

	// Find root nodes (nodes with no incoming edges)
	var roots []string
	for _, id := range nodeIDs {
		if !hasIncoming[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		roots = []string{nodeIDs[0]}
	}

	// Build levels using BFS
	var levels [][]string
	visited := make(map[string]bool)
	for _, id := range roots {
		visited[id] = true
	}
	current := roots
	for len(current) > 0 {
		levels = append(levels, current)
		var next []string
		for _, id := range current {
			for _, to := range outgoing[id] {
				if !visited[to] {
					visited[to] = true
					next = append(next, to)
				}
			}
		}
		current = next
	}

	// Cycles unreachable from a root go to the last level
	for _, id := range nodeIDs {
		if !visited[id] {
			levels[len(levels)-1] = append(levels[len(levels)-1], id)
		}
	}

	for li, level := range levels {
		// Normalised height in (-1, 1), top level first.
		h := 1 - 2*(float64(li)+0.5)/float64(len(levels))
		ring := math.Sqrt(1-h*h) * shellFill
		for ni, id := range level {
			angle := 2 * math.Pi * float64(ni) / float64(len(level))
			r := ring
			if len(level) == 1 {
				r = 0
			}
			unit := Vec3{X: r * math.Cos(angle), Y: h * shellFill, Z: r * math.Sin(angle)}
			positions[id] = vol.Clamp(vol.Center.Add(unit.Mul(vol.Radii)))
		}
	}
	return positions, nil
}
