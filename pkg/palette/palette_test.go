package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

func TestTaxonomy_RepeatedTypesShareAColor(t *testing.T) {
	tax := NewTaxonomy(DefaultNodePalette, nil, defaultNodeColor, 1)

	var got []Color
	for _, label := range []string{"Person", "Movie", "Person"} {
		got = append(got, tax.Color(label))
	}

	distinct := map[Color]bool{}
	for _, c := range got {
		distinct[c] = true
	}
	assert.Len(t, distinct, 2)
	assert.Equal(t, got[0], got[2])

	for i := 0; i < 3; i++ {
		assert.Equal(t, got[0], tax.Color("Person"))
		assert.Equal(t, got[1], tax.Color("Movie"))
	}
}

func TestTaxonomy_FirstSeenOrder(t *testing.T) {
	tax := NewTaxonomy(DefaultNodePalette, nil, defaultNodeColor, 1)
	tax.Observe("B", "A")

	assert.Equal(t, DefaultNodePalette[0], tax.Color("B"))
	assert.Equal(t, DefaultNodePalette[1], tax.Color("A"))
	assert.Equal(t, []string{DefaultKey, "B", "A"}, tax.Labels())
}

func TestTaxonomy_OverridesWin(t *testing.T) {
	red := Color{0xff, 0, 0}
	tax := NewTaxonomy(DefaultNodePalette, map[string]Color{"Movie": red, DefaultKey: red}, defaultNodeColor, 1)

	assert.Equal(t, red, tax.Color("Movie"))
	assert.Equal(t, red, tax.Color(""))
	// an override does not consume a palette slot
	assert.Equal(t, DefaultNodePalette[0], tax.Color("Person"))
}

func TestTaxonomy_DefaultAlwaysExists(t *testing.T) {
	tax := NewTaxonomy(nil, nil, defaultEdgeColor, 1)
	c, ok := tax.Lookup(DefaultKey)
	require.True(t, ok)
	assert.Equal(t, defaultEdgeColor, c)
	assert.Equal(t, 1, tax.Len())
}

func TestTaxonomy_GeneratesPastPaletteDeterministically(t *testing.T) {
	small := []Color{{1, 2, 3}}
	a := NewTaxonomy(small, nil, defaultNodeColor, 42)
	b := NewTaxonomy(small, nil, defaultNodeColor, 42)

	labels := []string{"x", "y", "z", "w"}
	for _, l := range labels {
		assert.Equal(t, a.Color(l), b.Color(l), l)
	}
	assert.Equal(t, small[0], a.Color("x"))

	before := a.Color("z")
	a.Color("new-label")
	assert.Equal(t, before, a.Color("z"), "assignment must be append-only")
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#4e79a7")
	require.NoError(t, err)
	assert.Equal(t, Color{0x4e, 0x79, 0xa7}, c)
	assert.Equal(t, "#4e79a7", c.Hex())

	_, err = ParseHex("blue")
	assert.Error(t, err)
}

func TestAssigner_ObserveGraph(t *testing.T) {
	g, _ := graph.Ingest(graph.Dataset{
		Nodes: []graph.NodeRecord{
			{ID: "1", Types: []string{"Person", "Actor"}},
			{ID: "2", Types: []string{"Movie"}},
			{ID: "3"},
		},
		Edges: []graph.EdgeRecord{
			{ID: "e1", Type: "ACTED_IN", Source: "1", Target: "2"},
		},
	}, graph.Limits{})

	a, err := NewAssigner(Config{Nodes: map[string]string{"Movie": "#ff0000"}})
	require.NoError(t, err)
	a.ObserveGraph(g)

	node := func(id string) *graph.Node {
		n, ok := g.Node(id)
		require.True(t, ok, id)
		return n
	}
	e1, ok := g.Edge("e1")
	require.True(t, ok)

	assert.Equal(t, DefaultNodePalette[0], a.NodeColor(node("1")))
	assert.Equal(t, Color{0xff, 0, 0}, a.NodeColor(node("2")))
	assert.Equal(t, defaultNodeColor, a.NodeColor(node("3")))
	assert.Equal(t, DefaultEdgePalette[0], a.EdgeColor(e1))
}

func TestNewAssigner_RejectsBadOverride(t *testing.T) {
	_, err := NewAssigner(Config{Edges: map[string]string{"KNOWS": "nope"}})
	assert.Error(t, err)
}
