package graph

// NodeRecord is a raw node as returned by a data source.
type NodeRecord struct {
	ID         string         `json:"id"`
	Types      []string       `json:"types"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EdgeRecord is a raw edge as returned by a data source.
type EdgeRecord struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Dataset is the unvalidated output of a source load.
type Dataset struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// Node is an ingested graph vertex. Nodes are immutable for the lifetime of
// the Graph that holds them.
type Node struct {
	ID         string
	Types      []string
	Attributes map[string]any
	// Index is the ingestion position, used as the tie-breaker wherever a
	// deterministic order is needed.
	Index int
}

// PrimaryType returns the first type label, or "" for untyped nodes.
func (n *Node) PrimaryType() string {
	if len(n.Types) == 0 {
		return ""
	}
	return n.Types[0]
}

// DisplayName picks a human label from the common name-like attributes,
// falling back to the id.
func (n *Node) DisplayName() string {
	for _, key := range []string{"name", "title", "label"} {
		if v, ok := n.Attributes[key].(string); ok && v != "" {
			return v
		}
	}
	return n.ID
}

// Edge is an ingested directed edge whose endpoints are guaranteed to exist
// in the owning Graph.
type Edge struct {
	ID     string
	Type   string
	Source string
	Target string
	Index  int
}

// SelfLoop reports whether the edge starts and ends at the same node.
func (e *Edge) SelfLoop() bool {
	return e.Source == e.Target
}

// Limits bounds how much of a dataset is ingested. Zero means unlimited.
type Limits struct {
	MaxNodes int `yaml:"max_nodes"`
	MaxEdges int `yaml:"max_edges"`
}

// IngestStats counts everything Ingest dropped. Ingestion never fails; the
// counters are the only signal that the input was partially malformed.
type IngestStats struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	MalformedNodes int `json:"malformed_nodes"`
	DuplicateNodes int `json:"duplicate_nodes"`
	TruncatedNodes int `json:"truncated_nodes"`
	MalformedEdges int `json:"malformed_edges"`
	DuplicateEdges int `json:"duplicate_edges"`
	DanglingEdges  int `json:"dangling_edges"`
	TruncatedEdges int `json:"truncated_edges"`
}

// Dropped returns the total number of records that did not make it in.
func (s IngestStats) Dropped() int {
	return s.MalformedNodes + s.DuplicateNodes + s.TruncatedNodes +
		s.MalformedEdges + s.DuplicateEdges + s.DanglingEdges + s.TruncatedEdges
}
