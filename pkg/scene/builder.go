package scene

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// Progress reports how far the current generation has been built.
type Progress struct {
	Loaded     bool   `json:"loaded"`
	Generation uint64 `json:"generation"`
	Total      int    `json:"total"`
	Built      int    `json:"built"`
	Failed     int    `json:"failed"`
}

// Done reports whether every queued entity has been attempted.
func (p Progress) Done() bool { return p.Loaded && p.Built+p.Failed >= p.Total }

// Builder materializes a graph into a Scene in fixed-size batches: all nodes
// first, then the edges whose endpoints exist. One batch runs per executed
// tick so construction never holds the loop for long.
type Builder struct {
	scene     *Scene
	layout    visualization.Layout
	colors    *palette.Assigner
	batchSize int

	graph     *graph.Graph
	positions map[string]visualization.Vec3
	nodes     []*graph.Node
	edges     []*graph.Edge
	cursor    int
	failed    int

	refreshMu sync.Mutex
	refresh   *graph.Graph

	progress atomic.Pointer[Progress]
	laidOut  atomic.Pointer[visualization.Visualization]

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewBuilder creates a builder for scene. logger and reg may be nil.
func NewBuilder(s *Scene, layout visualization.Layout, colors *palette.Assigner, logger logging.Logger, reg *metrics.Registry) *Builder {
	b := &Builder{
		scene:     s,
		layout:    layout,
		colors:    colors,
		batchSize: s.cfg.BatchSize,
		logger:    logging.ForComponent(logger, "builder"),
		metrics:   reg,
	}
	b.publish()
	return b
}

// Load lays out g, assigns its colors and queues it for materialization in
// the scene's current generation. Nothing is created until Step.
func (b *Builder) Load(g *graph.Graph) error {
	positions, err := b.layout.ComputeLayout(g.NodeIDs(), g.Edges())
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	b.colors.ObserveGraph(g)

	b.graph = g
	b.positions = positions
	b.nodes = g.Nodes()
	b.edges = g.Edges()
	b.cursor = 0
	b.failed = 0
	b.laidOut.Store(&visualization.Visualization{Graph: g, Positions: positions, Colors: b.colors})
	b.publish()

	b.logger.Info("graph loaded",
		logging.Generation(b.scene.Generation()),
		logging.Int("nodes", len(b.nodes)),
		logging.Int("edges", len(b.edges)))
	return nil
}

// Step materializes up to one batch and returns how many entities it
// attempted.
func (b *Builder) Step() int {
	total := len(b.nodes) + len(b.edges)
	if b.graph == nil || b.cursor >= total {
		return 0
	}

	n := 0
	for n < b.batchSize && b.cursor < total {
		var err error
		if b.cursor < len(b.nodes) {
			node := b.nodes[b.cursor]
			err = b.scene.addNode(node, b.positions[node.ID], b.colors.NodeColor(node))
		} else {
			edge := b.edges[b.cursor-len(b.nodes)]
			err = b.scene.addEdge(edge, b.colors.EdgeColor(edge))
		}
		if err != nil {
			b.failed++
			b.logger.Warn("materialize failed", logging.Error(err))
		}
		b.cursor++
		n++
	}

	b.scene.flush()
	b.scene.publish()
	b.metrics.RecordBuildBatch()
	b.publish()

	if b.cursor >= total {
		b.logger.Info("scene built",
			logging.Generation(b.scene.Generation()),
			logging.Int("nodes", len(b.scene.nodes)),
			logging.Int("edges", len(b.scene.edges)),
			logging.Int("failed", b.failed))
	}
	return n
}

// BuildAll runs Step until the queue is drained.
func (b *Builder) BuildAll() {
	for b.Step() > 0 {
	}
}

// Refresh disposes the current generation and starts building g as the
// next. The desired activation set carries over.
func (b *Builder) Refresh(g *graph.Graph) error {
	b.scene.disposeGeneration()
	b.graph = nil
	b.nodes, b.edges = nil, nil
	return b.Load(g)
}

// RequestRefresh schedules Refresh(g) for the next Animate call. Safe for
// concurrent use; a later request replaces an earlier one.
func (b *Builder) RequestRefresh(g *graph.Graph) {
	b.refreshMu.Lock()
	b.refresh = g
	b.refreshMu.Unlock()
}

// Dispose releases everything built so far and clears the queue.
func (b *Builder) Dispose() {
	b.scene.disposeGeneration()
	b.graph = nil
	b.positions = nil
	b.nodes, b.edges = nil, nil
	b.laidOut.Store(nil)
	b.cursor, b.failed = 0, 0
	b.publish()
}

// Graph returns the graph being built.
func (b *Builder) Graph() *graph.Graph { return b.graph }

// Position returns the computed position of node id.
func (b *Builder) Position(id string) (visualization.Vec3, bool) {
	p, ok := b.positions[id]
	return p, ok
}

// Visualization returns the loaded graph with its layout, or false before
// Load. The positions map is never mutated after Load, so the result is safe
// to read from another goroutine.
func (b *Builder) Visualization() (visualization.Visualization, bool) {
	v := b.laidOut.Load()
	if v == nil {
		return visualization.Visualization{}, false
	}
	return *v, true
}

// Progress returns the build progress. Safe for concurrent use.
func (b *Builder) Progress() Progress { return *b.progress.Load() }

// Animate applies a pending refresh and runs one batch.
func (b *Builder) Animate(animation.Frame) {
	b.refreshMu.Lock()
	g := b.refresh
	b.refresh = nil
	b.refreshMu.Unlock()
	if g != nil {
		if err := b.Refresh(g); err != nil {
			b.logger.Error("refresh failed", logging.Error(err))
		}
	}
	b.Step()
}

func (b *Builder) publish() {
	b.progress.Store(&Progress{
		Loaded:     b.graph != nil,
		Generation: b.scene.Generation(),
		Total:      len(b.nodes) + len(b.edges),
		Built:      b.cursor - b.failed,
		Failed:     b.failed,
	})
}
