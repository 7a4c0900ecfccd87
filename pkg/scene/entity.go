package scene

import (
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// Entity is anything that owns exactly one render resource.
type Entity interface {
	Key() ResourceKey
	// Materialize creates the entity's render object.
	Materialize(b Backend) (Handle, error)
	Appearance() Appearance
}

// SpatialNode is a graph node placed in the scene.
type SpatialNode struct {
	Node     *graph.Node
	Position visualization.Vec3
	Color    palette.Color
	Name     string

	state ActivationState
}

// ID returns the graph node id.
func (n *SpatialNode) ID() string { return n.Node.ID }

// State returns the activation state.
func (n *SpatialNode) State() ActivationState { return n.state }

func (n *SpatialNode) Key() ResourceKey { return ResourceKey{Kind: KindNode, ID: n.Node.ID} }

func (n *SpatialNode) Appearance() Appearance { return NodeProfile(n.state).With(n.Color) }

func (n *SpatialNode) Materialize(b Backend) (Handle, error) {
	return b.CreateNode(NodeSpec{
		ID:         n.Node.ID,
		Label:      n.Name,
		Position:   n.Position,
		Appearance: n.Appearance(),
	})
}

// SpatialEdge is a graph edge between two materialized nodes. Its state is
// derived from its endpoints.
type SpatialEdge struct {
	Edge  *graph.Edge
	From  *SpatialNode
	To    *SpatialNode
	Color palette.Color

	state ActivationState
}

// ID returns the graph edge id.
func (e *SpatialEdge) ID() string { return e.Edge.ID }

// State returns the activation state.
func (e *SpatialEdge) State() ActivationState { return e.state }

// derived is the state the endpoints imply.
func (e *SpatialEdge) derived() ActivationState {
	if e.From.state == Active && e.To.state == Active {
		return Active
	}
	return Inactive
}

func (e *SpatialEdge) Key() ResourceKey { return ResourceKey{Kind: KindEdge, ID: e.Edge.ID} }

func (e *SpatialEdge) Appearance() Appearance { return EdgeProfile(e.state).With(e.Color) }

func (e *SpatialEdge) Materialize(b Backend) (Handle, error) {
	return b.CreateEdge(EdgeSpec{
		ID:         e.Edge.ID,
		From:       e.From.Position,
		To:         e.To.Position,
		Appearance: e.Appearance(),
	})
}

// Halo is the emphasis sprite an active node carries.
type Halo struct {
	Owner  *SpatialNode
	Radius float64

	glow float64
}

func (h *Halo) Key() ResourceKey { return ResourceKey{Kind: KindHalo, ID: h.Owner.Node.ID} }

func (h *Halo) Appearance() Appearance {
	return Appearance{Color: h.Owner.Color, Brightness: 1, Opacity: 0.5, Glow: h.glow}
}

func (h *Halo) Materialize(b Backend) (Handle, error) {
	return b.CreateHalo(HaloSpec{
		ID:         h.Owner.Node.ID,
		Position:   h.Owner.Position,
		Radius:     h.Radius,
		Appearance: h.Appearance(),
	})
}
