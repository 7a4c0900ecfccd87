package activation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet_NormalisesOrderAndDuplicates(t *testing.T) {
	s := NewSet([]Node{
		{ID: "145", Name: "Motor"},
		{ID: "144", Name: "Visual"},
		{ID: " 145 ", Name: "Motor cortex"},
		{ID: ""},
		{ID: "146"},
	})

	assert.Equal(t, []string{"144", "145", "146"}, s.IDs())
	n, ok := s.Lookup("145")
	require.True(t, ok)
	assert.Equal(t, "Motor cortex", n.Name, "last duplicate wins")
	n, _ = s.Lookup("146")
	assert.Equal(t, "Neuron 146", n.Name)
	assert.False(t, s.Contains("999"))
}

func TestSet_EqualIsOrderIndependent(t *testing.T) {
	a := NewSet([]Node{{ID: "A", Name: "a"}, {ID: "B", Name: "b"}})
	b := NewSet([]Node{{ID: "B", Name: "b"}, {ID: "A", Name: "a"}})
	assert.True(t, a.Equal(b))
	assert.True(t, a.SameMembers(b))

	c := NewSet([]Node{{ID: "A", Name: "renamed"}, {ID: "B", Name: "b"}})
	assert.False(t, a.Equal(c))
	assert.True(t, a.SameMembers(c))

	var empty Set
	assert.True(t, empty.Equal(NewSet(nil)))
}

func TestSet_NodesEncodesAsArray(t *testing.T) {
	var s Set
	data, err := json.Marshal(s.Nodes())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		old, next   []Node
		activated   []string
		deactivated []string
		renamed     []string
	}{
		{
			name:      "from empty",
			next:      []Node{{ID: "A"}},
			activated: []string{"A"},
		},
		{
			name:      "grow",
			old:       []Node{{ID: "A"}},
			next:      []Node{{ID: "A"}, {ID: "B"}},
			activated: []string{"B"},
		},
		{
			name:        "to empty",
			old:         []Node{{ID: "A"}, {ID: "B"}},
			deactivated: []string{"A", "B"},
		},
		{
			name:        "swap",
			old:         []Node{{ID: "A"}, {ID: "C"}},
			next:        []Node{{ID: "B"}, {ID: "C"}, {ID: "D"}},
			activated:   []string{"B", "D"},
			deactivated: []string{"A"},
		},
		{
			name:    "rename only",
			old:     []Node{{ID: "A", Name: "one"}},
			next:    []Node{{ID: "A", Name: "two"}},
			renamed: []string{"A"},
		},
		{
			name: "unchanged",
			old:  []Node{{ID: "A"}},
			next: []Node{{ID: "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare(NewSet(tt.old), NewSet(tt.next))

			var activated, renamed []string
			for _, n := range d.Activated {
				activated = append(activated, n.ID)
			}
			for _, n := range d.Renamed {
				renamed = append(renamed, n.ID)
			}
			assert.ElementsMatch(t, tt.activated, activated)
			assert.ElementsMatch(t, tt.deactivated, d.Deactivated)
			assert.ElementsMatch(t, tt.renamed, renamed)
			assert.Equal(t, len(tt.activated)+len(tt.deactivated), d.Transitions())
			assert.Equal(t, len(tt.activated)+len(tt.deactivated)+len(tt.renamed) == 0, d.Empty())
		})
	}
}

func TestSet_Merge(t *testing.T) {
	a := NewSet([]Node{{ID: "1", Name: "old"}, {ID: "2"}})
	b := NewSet([]Node{{ID: "1", Name: "new"}, {ID: "3"}})
	m := a.Merge(b)

	assert.Equal(t, []string{"1", "2", "3"}, m.IDs())
	n, _ := m.Lookup("1")
	assert.Equal(t, "new", n.Name)
}

func TestUpdate_SinceFoldsMissedUpdates(t *testing.T) {
	s0 := NewSet([]Node{{ID: "A"}, {ID: "B", Name: "b"}})
	s1 := NewSet([]Node{{ID: "B", Name: "b"}, {ID: "C"}})
	s2 := NewSet([]Node{{ID: "B", Name: "bee"}, {ID: "C"}, {ID: "D"}})
	u1 := Update{Diff: Compare(s0, s1), Set: s1, Version: 1}
	u2 := Update{Diff: Compare(s1, s2), Set: s2, Version: 2}

	assert.Equal(t, u2.Diff, u2.Since(s1))

	// u1 was never seen: the diff from s0 covers both steps.
	d := u2.Since(s0)
	assert.Equal(t, []string{"A"}, d.Deactivated)
	require.Len(t, d.Activated, 2)
	assert.Equal(t, "C", d.Activated[0].ID)
	assert.Equal(t, "D", d.Activated[1].ID)
	require.Len(t, d.Renamed, 1)
	assert.Equal(t, "bee", d.Renamed[0].Name)

	assert.True(t, u1.Since(s1).Empty())
}
