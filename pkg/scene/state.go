package scene

import (
	"math"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/palette"
)

// ActivationState is the state of a node or edge.
type ActivationState uint8

const (
	Inactive ActivationState = iota
	Active
)

func (s ActivationState) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Profile is the effect parameters for one kind in one state.
type Profile struct {
	Brightness float64
	Opacity    float64
	Glow       float64
}

// With returns the appearance of color under the profile.
func (p Profile) With(c palette.Color) Appearance {
	return Appearance{Color: c, Brightness: p.Brightness, Opacity: p.Opacity, Glow: p.Glow}
}

var (
	nodeProfiles = [...]Profile{
		Inactive: {Brightness: 0.35, Opacity: 0.6, Glow: 0},
		Active:   {Brightness: 1.0, Opacity: 1.0, Glow: 0.8},
	}
	edgeProfiles = [...]Profile{
		Inactive: {Brightness: 0.3, Opacity: 0.25, Glow: 0},
		Active:   {Brightness: 1.0, Opacity: 0.9, Glow: 0.6},
	}
)

// NodeProfile returns the fixed node profile for s.
func NodeProfile(s ActivationState) Profile { return nodeProfiles[s] }

// EdgeProfile returns the fixed edge profile for s.
func EdgeProfile(s ActivationState) Profile { return edgeProfiles[s] }

// Pulse is the halo glow oscillation.
type Pulse struct {
	Period    time.Duration `yaml:"period"`
	Base      float64       `yaml:"base"`
	Amplitude float64       `yaml:"amplitude"`
}

// DefaultPulse is a two second breathing glow.
func DefaultPulse() Pulse {
	return Pulse{Period: 2 * time.Second, Base: 0.6, Amplitude: 0.3}
}

// Glow returns the glow at elapsed time t. A non-positive period holds the
// glow at Base.
func (p Pulse) Glow(t time.Duration) float64 {
	if p.Period <= 0 {
		return p.Base
	}
	phase := 2 * math.Pi * float64(t%p.Period) / float64(p.Period)
	return p.Base + p.Amplitude*math.Sin(phase)
}
