package activation

import (
	"cmp"
	"slices"
	"strings"
)

// Node is one entry of the activation set: a node id and the display name the
// controller attached to it.
type Node struct {
	ID   string `json:"id" validate:"required,max=256"`
	Name string `json:"name" validate:"max=256"`
}

// DefaultName is the display name used when a controller activates an id
// without naming it.
func DefaultName(id string) string {
	return "Neuron " + id
}

// Set is an activation set normalised to ascending id order with no duplicate
// ids. The zero value is the empty set.
type Set struct {
	nodes []Node
}

// NewSet normalises nodes into a Set. Entries with an empty id are skipped;
// for duplicate ids the last entry wins, matching how a controller that sends
// the same id twice expects the later name to stick.
func NewSet(nodes []Node) Set {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" {
			continue
		}
		if n.Name == "" {
			n.Name = DefaultName(n.ID)
		}
		byID[n.ID] = n
	}
	out := make([]Node, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	return Set{nodes: out}
}

// Nodes returns a copy of the entries in id order. Never nil, so it encodes as
// [] rather than null.
func (s Set) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// IDs returns the ids in ascending order.
func (s Set) IDs() []string {
	ids := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Len returns the number of entries.
func (s Set) Len() int { return len(s.nodes) }

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s.Lookup(id)
	return ok
}

// Lookup returns the entry for id.
func (s Set) Lookup(id string) (Node, bool) {
	i, ok := slices.BinarySearchFunc(s.nodes, id, func(n Node, target string) int {
		return cmp.Compare(n.ID, target)
	})
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Merge returns the union of s and other; names from other win.
func (s Set) Merge(other Set) Set {
	all := make([]Node, 0, len(s.nodes)+len(other.nodes))
	all = append(all, s.nodes...)
	all = append(all, other.nodes...)
	return NewSet(all)
}

// SameMembers compares the id sets only, independent of display names.
func (s Set) SameMembers(other Set) bool {
	if len(s.nodes) != len(other.nodes) {
		return false
	}
	for i := range s.nodes {
		if s.nodes[i].ID != other.nodes[i].ID {
			return false
		}
	}
	return true
}

// Equal compares ids and names. Both sets are kept sorted, so this is the
// sort-then-compare check in linear time.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.nodes, other.nodes)
}

// Diff is the symmetric difference between two activation sets.
type Diff struct {
	// Activated holds entries present in the new set but not the old.
	Activated []Node `json:"activated"`
	// Deactivated holds ids present in the old set but not the new.
	Deactivated []string `json:"deactivated"`
	// Renamed holds entries present in both whose display name changed.
	Renamed []Node `json:"renamed,omitempty"`
}

// Update is one published change: the diff from the previous set, the set
// it produced and the authority version it arrived with. A consumer that
// missed updates diffs its own copy against Set to catch up.
type Update struct {
	Diff    Diff
	Set     Set
	Version uint64
}

// Since returns the diff that takes local to u.Set. It equals u.Diff when
// local is the set u was computed from.
func (u Update) Since(local Set) Diff {
	return Compare(local, u.Set)
}

// Empty reports whether the diff carries no change at all.
func (d Diff) Empty() bool {
	return len(d.Activated) == 0 && len(d.Deactivated) == 0 && len(d.Renamed) == 0
}

// Transitions is the number of state transitions the diff implies. Renames
// are not transitions.
func (d Diff) Transitions() int {
	return len(d.Activated) + len(d.Deactivated)
}

// Compare computes the diff that takes old to next with a single merge pass
// over the two sorted sets.
func Compare(old, next Set) Diff {
	d := Diff{Activated: []Node{}, Deactivated: []string{}}
	i, j := 0, 0
	for i < len(old.nodes) || j < len(next.nodes) {
		switch {
		case j >= len(next.nodes):
			d.Deactivated = append(d.Deactivated, old.nodes[i].ID)
			i++
		case i >= len(old.nodes):
			d.Activated = append(d.Activated, next.nodes[j])
			j++
		case old.nodes[i].ID < next.nodes[j].ID:
			d.Deactivated = append(d.Deactivated, old.nodes[i].ID)
			i++
		case old.nodes[i].ID > next.nodes[j].ID:
			d.Activated = append(d.Activated, next.nodes[j])
			j++
		default:
			if old.nodes[i].Name != next.nodes[j].Name {
				d.Renamed = append(d.Renamed, next.nodes[j])
			}
			i++
			j++
		}
	}
	return d
}
