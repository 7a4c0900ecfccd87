package visualization

import (
	"math"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// Vec3 is a point or offset in scene space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Mul is the component-wise product.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Distance returns |v-o|.
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// Normalize returns v scaled to unit length, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Kind       string  `yaml:"kind"`        // hub-first (default), force, shell or layered
	Center     Vec3    `yaml:"center"`      // Containment volume center
	Radii      Vec3    `yaml:"radii"`       // Containment volume semi-axes
	Bias       float64 `yaml:"bias"`        // Weight toward the neighbour centroid
	MaxRetries int     `yaml:"max_retries"` // Resamples before projecting into the volume
	Seed       uint64  `yaml:"seed"`
	Iterations int     `yaml:"iterations"` // Number of iterations for iterative algorithms
}

// DefaultLayoutConfig returns the hub-first layout inside a 100x60x100
// ellipsoid.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Kind:       KindHubFirst,
		Radii:      Vec3{X: 100, Y: 60, Z: 100},
		Bias:       0.7,
		MaxRetries: 8,
		Seed:       1,
		Iterations: 50,
	}
}

// Volume returns the containment ellipsoid described by the config.
func (c LayoutConfig) Volume() Ellipsoid {
	return Ellipsoid{Center: c.Center, Radii: c.Radii}
}

// Layout kinds accepted by NewLayoutFromConfig.
const (
	KindHubFirst = "hub-first"
	KindForce    = "force"
	KindShell    = "shell"
	KindLayered  = "layered"
)

// Layout interface for different layout algorithms. Every returned position
// lies inside the layout's containment volume.
type Layout interface {
	ComputeLayout(nodeIDs []string, edges []*graph.Edge) (map[string]Vec3, error)
}
