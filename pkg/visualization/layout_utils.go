package visualization

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// containEpsilon absorbs rounding in Contains; projected points are pulled
// this far inside the surface.
const containEpsilon = 1e-9

// Ellipsoid is the containment volume.
type Ellipsoid struct {
	Center Vec3 `json:"center"`
	Radii  Vec3 `json:"radii"`
}

// level returns sum((d_i/r_i)^2) for the offset of p from the center.
func (e Ellipsoid) level(p Vec3) float64 {
	d := p.Sub(e.Center)
	return sq(d.X/e.Radii.X) + sq(d.Y/e.Radii.Y) + sq(d.Z/e.Radii.Z)
}

// Contains reports whether p lies inside or on the ellipsoid.
func (e Ellipsoid) Contains(p Vec3) bool {
	l := e.level(p)
	return !math.IsNaN(l) && l <= 1+containEpsilon
}

// SampleUniform draws a point uniformly distributed over the ellipsoid volume:
// a uniform direction with a cube-root radius, scaled per axis.
func (e Ellipsoid) SampleUniform(rng *rand.Rand) Vec3 {
	theta := 2 * math.Pi * rng.Float64()
	phi := math.Acos(2*rng.Float64() - 1)
	r := math.Cbrt(rng.Float64())
	unit := Vec3{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Sin(phi) * math.Sin(theta),
		Z: r * math.Cos(phi),
	}
	return e.Center.Add(unit.Mul(e.Radii))
}

// randomBoxPoint draws a point from the bounding box of the ellipsoid.
func (e Ellipsoid) randomBoxPoint(rng *rand.Rand) Vec3 {
	u := Vec3{2*rng.Float64() - 1, 2*rng.Float64() - 1, 2*rng.Float64() - 1}
	return e.Center.Add(u.Mul(e.Radii))
}

// Clamp returns p unchanged when it is inside, otherwise p pulled along the
// ray from the center until it lies just inside the surface.
func (e Ellipsoid) Clamp(p Vec3) Vec3 {
	l := e.level(p)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return e.Center
	}
	if l <= 1 {
		return p
	}
	d := p.Sub(e.Center).Scale((1 - containEpsilon) / math.Sqrt(l))
	return e.Center.Add(d)
}

func sq(x float64) float64 { return x * x }

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
}

// neighbours maps a node id to its distinct neighbours in edge order.
// Layouts iterate these slices, never a map, so float sums are reproducible.
type neighbours map[string][]string

// adjacency builds undirected neighbour lists restricted to known ids.
// Self-loops, parallel edges and edges touching unknown ids are ignored.
func adjacency(nodeIDs []string, edges []*graph.Edge) neighbours {
	known := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = struct{}{}
	}
	type pair struct{ a, b string }
	linked := make(map[pair]struct{}, 2*len(edges))
	adj := make(neighbours, len(nodeIDs))
	link := func(a, b string) {
		if _, ok := linked[pair{a, b}]; ok {
			return
		}
		linked[pair{a, b}] = struct{}{}
		adj[a] = append(adj[a], b)
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue
		}
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}
	return adj
}

// hubOrder returns nodeIDs sorted by descending neighbour count. The sort is
// stable, so ties keep ingestion order.
func hubOrder(nodeIDs []string, adj neighbours) []string {
	order := slices.Clone(nodeIDs)
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(len(adj[b]), len(adj[a]))
	})
	return order
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(nodeIDs []string) []string {
	seen := make(map[string]struct{}, len(nodeIDs))
	out := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
