package visualization

import (
	"math"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// shellFill is how far out the shell sits relative to the volume surface.
const shellFill = 0.9

// ShellLayout spreads nodes evenly over an inner shell of the volume using a
// Fibonacci lattice. Hubs take the first lattice points.
type ShellLayout struct {
	config LayoutConfig
}

// NewShellLayout creates a new shell layout
func NewShellLayout(config LayoutConfig) *ShellLayout {
	return &ShellLayout{config: config}
}

// ComputeLayout arranges nodes on the shell
func (sl *ShellLayout) ComputeLayout(nodeIDs []string, edges []*graph.Edge) (map[string]Vec3, error) {
	vol := sl.config.Volume()
	if err := validateVolume(vol); err != nil {
		return nil, err
	}
	nodeIDs = dedupe(nodeIDs)
	positions := make(map[string]Vec3, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return positions, nil
	}
	if len(nodeIDs) == 1 {
		positions[nodeIDs[0]] = vol.Center
		return positions, nil
	}

	golden := math.Pi * (3 - math.Sqrt(5))
	n := float64(len(nodeIDs))
	for i, id := range hubOrder(nodeIDs, adjacency(nodeIDs, edges)) {
		y := 1 - 2*(float64(i)+0.5)/n
		r := math.Sqrt(1 - y*y)
		angle := golden * float64(i)
		unit := Vec3{X: r * math.Cos(angle), Y: y, Z: r * math.Sin(angle)}
		positions[id] = vol.Clamp(vol.Center.Add(unit.Scale(shellFill).Mul(vol.Radii)))
	}
	return positions, nil
}
