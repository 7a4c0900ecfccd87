package visualization

import (
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// HubFirstLayout places the best-connected nodes first so clusters form
// around hubs. A node with placed neighbours lands between their centroid
// and a random point of the volume; a node without lands uniformly at random.
type HubFirstLayout struct {
	config LayoutConfig
}

// NewHubFirstLayout creates a new hub-first layout
func NewHubFirstLayout(config LayoutConfig) *HubFirstLayout {
	if config.Bias <= 0 || config.Bias > 1 {
		config.Bias = 0.7
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 8
	}
	return &HubFirstLayout{config: config}
}

// ComputeLayout returns a position for every id in nodeIDs. The result is a
// pure function of the inputs and the configured seed.
func (l *HubFirstLayout) ComputeLayout(nodeIDs []string, edges []*graph.Edge) (map[string]Vec3, error) {
	vol := l.config.Volume()
	if err := validateVolume(vol); err != nil {
		return nil, err
	}
	nodeIDs = dedupe(nodeIDs)
	positions := make(map[string]Vec3, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return positions, nil
	}

	rng := newRand(l.config.Seed)
	adj := adjacency(nodeIDs, edges)

	for _, id := range hubOrder(nodeIDs, adj) {
		centroid, ok := placedCentroid(id, adj, positions)
		if !ok {
			positions[id] = vol.SampleUniform(rng)
			continue
		}
		positions[id] = l.place(vol, centroid, rng)
	}
	return positions, nil
}

func (l *HubFirstLayout) place(vol Ellipsoid, centroid Vec3, rng *rand.Rand) Vec3 {
	var candidate Vec3
	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		candidate = centroid.Scale(l.config.Bias).
			Add(vol.randomBoxPoint(rng).Scale(1 - l.config.Bias))
		if vol.Contains(candidate) {
			return candidate
		}
	}
	return vol.Clamp(candidate)
}

// placedCentroid averages the positions of id's neighbours placed so far,
// summed in adjacency order.
func placedCentroid(id string, adj neighbours, positions map[string]Vec3) (Vec3, bool) {
	var sum Vec3
	n := 0
	for _, nb := range adj[id] {
		if p, ok := positions[nb]; ok {
			sum = sum.Add(p)
			n++
		}
	}
	if n == 0 {
		return Vec3{}, false
	}
	return sum.Scale(1 / float64(n)), true
}

func validateVolume(vol Ellipsoid) error {
	if vol.Radii.X <= 0 || vol.Radii.Y <= 0 || vol.Radii.Z <= 0 {
		return fmt.Errorf("visualization: containment radii must be positive, got %+v", vol.Radii)
	}
	return nil
}

// NewLayoutFromConfig returns the layout named by config.Kind.
func NewLayoutFromConfig(config LayoutConfig) (Layout, error) {
	switch config.Kind {
	case "", KindHubFirst:
		return NewHubFirstLayout(config), nil
	case KindForce:
		return NewForceDirectedLayout(config), nil
	case KindShell:
		return NewShellLayout(config), nil
	case KindLayered:
		return NewLayeredLayout(config), nil
	default:
		return nil, fmt.Errorf("visualization: unknown layout kind %q", config.Kind)
	}
}
