package scene

import (
	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// Handle is an opaque reference to a render object created by a Backend.
type Handle string

// Kind is the kind of entity a resource belongs to.
type Kind uint8

const (
	KindNode Kind = iota
	KindEdge
	KindHalo
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	case KindHalo:
		return "halo"
	default:
		return "unknown"
	}
}

// ResourceKey identifies the single resource an entity may own.
type ResourceKey struct {
	Kind Kind
	ID   string
}

func (k ResourceKey) String() string { return k.Kind.String() + ":" + k.ID }

// Appearance is the full set of material parameters of a render object.
type Appearance struct {
	Color      palette.Color `json:"color"`
	Brightness float64       `json:"brightness"`
	Opacity    float64       `json:"opacity"`
	Glow       float64       `json:"glow"`
}

// NodeSpec describes a node sphere.
type NodeSpec struct {
	ID         string
	Label      string
	Position   visualization.Vec3
	Appearance Appearance
}

// EdgeSpec describes a tube between two points.
type EdgeSpec struct {
	ID         string
	From, To   visualization.Vec3
	Appearance Appearance
}

// HaloSpec describes a camera-facing emphasis sprite around a node.
type HaloSpec struct {
	ID         string
	Position   visualization.Vec3
	Radius     float64
	Appearance Appearance
}

// Backend is the graphics library. Implementations need not be safe for
// concurrent use; the scene calls them from the loop goroutine only.
type Backend interface {
	CreateNode(spec NodeSpec) (Handle, error)
	CreateEdge(spec EdgeSpec) (Handle, error)
	CreateHalo(spec HaloSpec) (Handle, error)
	SetAppearance(h Handle, a Appearance) error
	SetOrientation(h Handle, facing visualization.Vec3) error
	SetLabel(h Handle, label string) error
	Dispose(h Handle) error
	Render(f animation.Frame) error
}
