// Package palette assigns stable colors to node and edge type labels.
package palette

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultKey is the taxonomy entry used for entities with no type label.
const DefaultKey = "default"

// Color is an sRGB color with 8-bit channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string { return c.Hex() }

// ParseHex parses #rrggbb (or the short #rgb form).
func ParseHex(s string) (Color, error) {
	cc, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("palette: invalid color %q: %w", s, err)
	}
	return fromColorful(cc), nil
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// DefaultNodePalette is the ordered palette handed out to node types in
// first-seen order.
var DefaultNodePalette = []Color{
	{0x4e, 0x79, 0xa7}, {0xf2, 0x8e, 0x2b}, {0xe1, 0x57, 0x59}, {0x76, 0xb7, 0xb2},
	{0x59, 0xa1, 0x4f}, {0xed, 0xc9, 0x48}, {0xb0, 0x7a, 0xa1}, {0xff, 0x9d, 0xa7},
	{0x9c, 0x75, 0x5f}, {0xba, 0xb0, 0xac},
}

// DefaultEdgePalette is the ordered palette for edge types.
var DefaultEdgePalette = []Color{
	{0x8c, 0xd1, 0xff}, {0xff, 0xd0, 0x8a}, {0xc3, 0xa6, 0xff}, {0x9e, 0xf0, 0xb0},
	{0xff, 0xa8, 0xc5}, {0xf5, 0xf5, 0x9a},
}

var (
	defaultNodeColor = Color{0xaa, 0xaa, 0xaa}
	defaultEdgeColor = Color{0x66, 0x66, 0x66}
)

// Taxonomy maps labels to colors. Assignment is append-only: once a label
// has a color it keeps it for the lifetime of the Taxonomy.
type Taxonomy struct {
	mu        sync.Mutex
	palette   []Color
	next      int
	overrides map[string]Color
	assigned  map[string]Color
	order     []string
	rng       *rand.Rand
}

// NewTaxonomy creates a taxonomy over palette. Overrides win over automatic
// assignment, including for DefaultKey. seed drives the colors generated once
// the palette is exhausted.
func NewTaxonomy(palette []Color, overrides map[string]Color, fallback Color, seed uint64) *Taxonomy {
	t := &Taxonomy{
		palette:   append([]Color(nil), palette...),
		overrides: make(map[string]Color, len(overrides)),
		assigned:  make(map[string]Color),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for k, v := range overrides {
		t.overrides[k] = v
	}
	if c, ok := t.overrides[DefaultKey]; ok {
		fallback = c
	}
	t.assigned[DefaultKey] = fallback
	t.order = append(t.order, DefaultKey)
	return t
}

// Color returns the color for label, assigning one if the label is new. An
// empty label maps to the default entry.
func (t *Taxonomy) Color(label string) Color {
	if label == "" {
		label = DefaultKey
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.assigned[label]; ok {
		return c
	}
	c, ok := t.overrides[label]
	if !ok {
		c = t.nextColorLocked()
	}
	t.assigned[label] = c
	t.order = append(t.order, label)
	return c
}

// Observe assigns colors to labels in order, as if Color was called on each.
func (t *Taxonomy) Observe(labels ...string) {
	for _, l := range labels {
		t.Color(l)
	}
}

// Lookup returns the color assigned to label without assigning one.
func (t *Taxonomy) Lookup(label string) (Color, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.assigned[label]
	return c, ok
}

// Labels returns the assigned labels in assignment order, DefaultKey first.
func (t *Taxonomy) Labels() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// Len returns the number of assigned labels including DefaultKey.
func (t *Taxonomy) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

func (t *Taxonomy) nextColorLocked() Color {
	if t.next < len(t.palette) {
		c := t.palette[t.next]
		t.next++
		return c
	}
	// Saturation and value stay in a band that reads on a dark background.
	h := t.rng.Float64() * 360
	s := 0.45 + t.rng.Float64()*0.4
	v := 0.7 + t.rng.Float64()*0.3
	return fromColorful(colorful.Hsv(h, s, v))
}
