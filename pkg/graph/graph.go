package graph

import (
	"cmp"
	"slices"
	"strings"
)

// Graph is an ingested, self-consistent node/edge set for one load cycle.
type Graph struct {
	nodes     []*Node
	edges     []*Edge
	nodeIndex map[string]*Node
	edgeIndex map[string]*Edge
	adjacency map[string]map[string]struct{}
	nodeTypes []string
	edgeTypes []string
}

// Ingest validates a dataset and builds a Graph from whatever is extractable.
// Nodes with an empty id, duplicate ids (first wins), and nodes past
// limits.MaxNodes are skipped. Edges with an empty id, a duplicate id, or an
// endpoint that is not an ingested node are dropped.
func Ingest(ds Dataset, limits Limits) (*Graph, IngestStats) {
	var stats IngestStats
	g := &Graph{
		nodes:     make([]*Node, 0, len(ds.Nodes)),
		edges:     make([]*Edge, 0, len(ds.Edges)),
		nodeIndex: make(map[string]*Node, len(ds.Nodes)),
		edgeIndex: make(map[string]*Edge, len(ds.Edges)),
		adjacency: make(map[string]map[string]struct{}),
	}

	seenNodeType := make(map[string]struct{})
	for _, rec := range ds.Nodes {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			stats.MalformedNodes++
			continue
		}
		if _, dup := g.nodeIndex[id]; dup {
			stats.DuplicateNodes++
			continue
		}
		if limits.MaxNodes > 0 && len(g.nodes) >= limits.MaxNodes {
			stats.TruncatedNodes++
			continue
		}

		types := make([]string, 0, len(rec.Types))
		for _, t := range rec.Types {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		attrs := make(map[string]any, len(rec.Attributes))
		for k, v := range rec.Attributes {
			attrs[k] = v
		}

		n := &Node{ID: id, Types: types, Attributes: attrs, Index: len(g.nodes)}
		g.nodes = append(g.nodes, n)
		g.nodeIndex[id] = n

		for _, t := range types {
			if _, ok := seenNodeType[t]; !ok {
				seenNodeType[t] = struct{}{}
				g.nodeTypes = append(g.nodeTypes, t)
			}
		}
	}

	seenEdgeType := make(map[string]struct{})
	for _, rec := range ds.Edges {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			stats.MalformedEdges++
			continue
		}
		if _, dup := g.edgeIndex[id]; dup {
			stats.DuplicateEdges++
			continue
		}
		src, dst := strings.TrimSpace(rec.Source), strings.TrimSpace(rec.Target)
		if g.nodeIndex[src] == nil || g.nodeIndex[dst] == nil {
			stats.DanglingEdges++
			continue
		}
		if limits.MaxEdges > 0 && len(g.edges) >= limits.MaxEdges {
			stats.TruncatedEdges++
			continue
		}

		e := &Edge{ID: id, Type: strings.TrimSpace(rec.Type), Source: src, Target: dst, Index: len(g.edges)}
		g.edges = append(g.edges, e)
		g.edgeIndex[id] = e

		if !e.SelfLoop() {
			g.link(src, dst)
			g.link(dst, src)
		}
		if _, ok := seenEdgeType[e.Type]; !ok && e.Type != "" {
			seenEdgeType[e.Type] = struct{}{}
			g.edgeTypes = append(g.edgeTypes, e.Type)
		}
	}

	stats.Nodes = len(g.nodes)
	stats.Edges = len(g.edges)
	return g, stats
}

func (g *Graph) link(a, b string) {
	set := g.adjacency[a]
	if set == nil {
		set = make(map[string]struct{})
		g.adjacency[a] = set
	}
	set[b] = struct{}{}
}

// Nodes returns the nodes in ingestion order. The slice must not be modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the edges in ingestion order. The slice must not be modified.
func (g *Graph) Edges() []*Edge { return g.edges }

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodeIndex[id]
	return n, ok
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edgeIndex[id]
	return e, ok
}

// NodeCount returns the number of ingested nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of ingested edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Degree is the size of the node's undirected neighbour set. Self-loops and
// parallel edges do not count.
func (g *Graph) Degree(id string) int {
	return len(g.adjacency[id])
}

// Neighbors returns the undirected neighbours of id in ingestion order.
func (g *Graph) Neighbors(id string) []string {
	set := g.adjacency[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(set))
	for nid := range set {
		out = append(out, g.nodeIndex[nid])
	}
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.Index, b.Index) })
	ids := make([]string, len(out))
	for i, n := range out {
		ids[i] = n.ID
	}
	return ids
}

// NodeTypes returns distinct node type labels in first-seen order.
func (g *Graph) NodeTypes() []string { return g.nodeTypes }

// EdgeTypes returns distinct edge type labels in first-seen order.
func (g *Graph) EdgeTypes() []string { return g.edgeTypes }

// NodeIDs returns all node ids in ingestion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// EdgesBetween returns the edges connecting a and b in either direction.
func (g *Graph) EdgesBetween(a, b string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			out = append(out, e)
		}
	}
	return out
}
