package visualization

import (
	"math"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// ForceDirectedLayout refines a hub-first placement with a spring embedder.
// Every step is clamped back into the containment volume.
type ForceDirectedLayout struct {
	config LayoutConfig
	seed   *HubFirstLayout
}

// NewForceDirectedLayout creates a new force-directed layout
func NewForceDirectedLayout(config LayoutConfig) *ForceDirectedLayout {
	if config.Iterations <= 0 {
		config.Iterations = 50
	}
	return &ForceDirectedLayout{config: config, seed: NewHubFirstLayout(config)}
}

// ComputeLayout computes positions using force-directed algorithm
func (fdl *ForceDirectedLayout) ComputeLayout(nodeIDs []string, edges []*graph.Edge) (map[string]Vec3, error) {
	positions, err := fdl.seed.ComputeLayout(nodeIDs, edges)
	if err != nil || len(positions) < 2 {
		return positions, err
	}
	vol := fdl.config.Volume()
	nodeIDs = dedupe(nodeIDs)
	adj := adjacency(nodeIDs, edges)

	// Optimal distance for n nodes sharing the ellipsoid volume.
	volume := 4.0 / 3.0 * math.Pi * vol.Radii.X * vol.Radii.Y * vol.Radii.Z
	k := math.Cbrt(volume / float64(len(nodeIDs)))
	temperature := math.Max(vol.Radii.X, math.Max(vol.Radii.Y, vol.Radii.Z)) / 10.0

	for iter := 0; iter < fdl.config.Iterations; iter++ {
		forces := make(map[string]Vec3, len(nodeIDs))

		// Repulsion between all nodes
		for i, a := range nodeIDs {
			for j := i + 1; j < len(nodeIDs); j++ {
				b := nodeIDs[j]
				d := positions[a].Sub(positions[b])
				dist := math.Max(d.Length(), 0.01)
				f := d.Normalize().Scale((k * k) / dist)
				forces[a] = forces[a].Add(f)
				forces[b] = forces[b].Sub(f)
			}
		}

		// Attraction between connected nodes
		for _, a := range nodeIDs {
			for _, b := range adj[a] {
				d := positions[a].Sub(positions[b])
				dist := d.Length()
				if dist < 0.01 {
					continue
				}
				forces[a] = forces[a].Sub(d.Normalize().Scale((dist * dist) / k))
			}
		}

		cool := 1.0 - float64(iter)/float64(fdl.config.Iterations)
		for _, id := range nodeIDs {
			f := forces[id]
			mag := f.Length()
			if mag == 0 {
				continue
			}
			step := f.Normalize().Scale(math.Min(mag, temperature) * cool)
			positions[id] = vol.Clamp(positions[id].Add(step))
		}
		temperature *= 0.95
	}
	return positions, nil
}
