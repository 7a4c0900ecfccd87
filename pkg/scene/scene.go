package scene

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// ErrMissingEndpoint is returned when an edge is added before both of its
// endpoints are in the scene.
var ErrMissingEndpoint = errors.New("scene: edge endpoint not materialized")

// Config configures the scene and its builder
type Config struct {
	BatchSize  int     `yaml:"batch_size"`
	HaloRadius float64 `yaml:"halo_radius"`
	Pulse      Pulse   `yaml:"pulse"`
}

// DefaultConfig returns batches of 10 and the default halo pulse.
func DefaultConfig() Config {
	return Config{BatchSize: 10, HaloRadius: 3, Pulse: DefaultPulse()}
}

// Transition is one state change of one entity.
type Transition struct {
	Kind       Kind
	ID         string
	From, To   ActivationState
	Generation uint64
}

// ApplyResult summarises one Apply call.
type ApplyResult struct {
	Activated   int
	Deactivated int
	Renamed     int
	Unknown     int
}

// Stats is a point-in-time view of the scene, safe to read from any
// goroutine.
type Stats struct {
	Generation  uint64 `json:"generation"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Halos       int    `json:"halos"`
	ActiveNodes int    `json:"activeNodes"`
	ActiveEdges int    `json:"activeEdges"`
	Resources   int    `json:"resources"`
	Desired     int    `json:"desired"`
	UnknownIDs  uint64 `json:"unknownIds"`
}

// Scene is the live node/edge set of one graph generation plus the desired
// activation set, which outlives generations.
type Scene struct {
	backend   Backend
	resources *ResourceManager
	cfg       Config

	nodes     map[string]*SpatialNode
	nodeOrder []*SpatialNode
	edges     map[string]*SpatialEdge
	edgeOrder []*SpatialEdge
	incident  map[string][]*SpatialEdge
	halos     map[string]*Halo
	desired   map[string]string

	generation  uint64
	activeNodes int
	activeEdges int
	unknown     uint64
	epoch       time.Time

	observers []func(Transition)
	pending   []Transition

	inboxMu sync.Mutex
	inbox   []activation.Diff

	stats atomic.Pointer[Stats]

	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates an empty scene drawing through backend. logger and reg may be
// nil.
func New(backend Backend, cfg Config, logger logging.Logger, reg *metrics.Registry) *Scene {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.HaloRadius <= 0 {
		cfg.HaloRadius = 3
	}
	logger = logging.ForComponent(logger, "scene")
	s := &Scene{
		backend:   backend,
		resources: NewResourceManager(backend, logger),
		cfg:       cfg,
		nodes:     make(map[string]*SpatialNode),
		edges:     make(map[string]*SpatialEdge),
		incident:  make(map[string][]*SpatialEdge),
		halos:     make(map[string]*Halo),
		desired:   make(map[string]string),
		logger:    logger,
		metrics:   reg,
	}
	s.publish()
	return s
}

// Resources returns the scene's resource manager.
func (s *Scene) Resources() *ResourceManager { return s.resources }

// OnTransition registers fn to be called for every state change. Calls are
// made after the whole pass that caused them has been applied.
func (s *Scene) OnTransition(fn func(Transition)) {
	s.observers = append(s.observers, fn)
}

// Generation returns the current generation number.
func (s *Scene) Generation() uint64 { return s.generation }

// Node returns the materialized node with id.
func (s *Scene) Node(id string) (*SpatialNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Edge returns the materialized edge with id.
func (s *Scene) Edge(id string) (*SpatialEdge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// Nodes returns materialized nodes in materialization order.
func (s *Scene) Nodes() []*SpatialNode { return s.nodeOrder }

// Edges returns materialized edges in materialization order.
func (s *Scene) Edges() []*SpatialEdge { return s.edgeOrder }

// HasHalo reports whether node id currently carries a halo.
func (s *Scene) HasHalo(id string) bool {
	_, ok := s.halos[id]
	return ok
}

// Desired reports whether id is in the desired activation set.
func (s *Scene) Desired(id string) bool {
	_, ok := s.desired[id]
	return ok
}

// Stats returns the snapshot taken at the end of the last mutation.
func (s *Scene) Stats() Stats { return *s.stats.Load() }

// Enqueue queues a diff for the next Animate call. Safe for concurrent use.
func (s *Scene) Enqueue(d activation.Diff) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, d)
	s.inboxMu.Unlock()
}

// Apply applies a diff in one pass: deactivations first, then activations,
// then renames. Ids with no materialized node are counted and skipped but
// stay in the desired set, so a node materialized later comes up active.
// Activating an active node or deactivating an inactive one is a no-op.
func (s *Scene) Apply(d activation.Diff) ApplyResult {
	var res ApplyResult

	for _, id := range d.Deactivated {
		delete(s.desired, id)
		n, ok := s.nodes[id]
		if !ok {
			res.Unknown++
			continue
		}
		if s.setNodeState(n, Inactive) {
			res.Deactivated++
		}
	}
	for _, an := range d.Activated {
		s.desired[an.ID] = an.Name
		n, ok := s.nodes[an.ID]
		if !ok {
			res.Unknown++
			continue
		}
		s.rename(n, an.Name)
		if s.setNodeState(n, Active) {
			res.Activated++
		}
	}
	for _, rn := range d.Renamed {
		if _, ok := s.desired[rn.ID]; ok {
			s.desired[rn.ID] = rn.Name
		}
		if n, ok := s.nodes[rn.ID]; ok {
			s.rename(n, rn.Name)
			res.Renamed++
		}
	}

	if res.Unknown > 0 {
		s.unknown += uint64(res.Unknown)
		s.metrics.RecordUnknownIDs(res.Unknown)
		s.logger.Debug("activation ids not in scene", logging.Count(res.Unknown))
	}
	s.flush()
	s.publish()
	return res
}

// Activate applies a single-node activation.
func (s *Scene) Activate(id, name string) ApplyResult {
	if name == "" {
		name = activation.DefaultName(id)
	}
	return s.Apply(activation.Diff{Activated: []activation.Node{{ID: id, Name: name}}})
}

// Deactivate applies a single-node deactivation.
func (s *Scene) Deactivate(id string) ApplyResult {
	return s.Apply(activation.Diff{Deactivated: []string{id}})
}

// setNodeState moves n to state and re-derives its incident edges. It
// reports whether anything changed.
// rename updates the display name and the label of the live resource, if
// any. A node without one picks the name up when it is materialized.
func (s *Scene) rename(n *SpatialNode, name string) {
	if n.Name == name {
		return
	}
	n.Name = name
	s.resources.Relabel(n.Key(), name)
}

func (s *Scene) setNodeState(n *SpatialNode, to ActivationState) bool {
	from := n.state
	if from == to {
		return false
	}
	n.state = to
	s.resources.Update(n)

	if to == Active {
		s.activeNodes++
		h := &Halo{Owner: n, Radius: s.cfg.HaloRadius, glow: s.cfg.Pulse.Base}
		if _, err := s.resources.Acquire(h); err != nil {
			s.logger.Warn("halo creation failed", logging.NodeID(n.ID()), logging.Error(err))
		} else {
			s.halos[n.ID()] = h
		}
	} else {
		s.activeNodes--
		s.resources.Release(ResourceKey{Kind: KindHalo, ID: n.ID()})
		delete(s.halos, n.ID())
	}
	s.queue(Transition{Kind: KindNode, ID: n.ID(), From: from, To: to})

	for _, e := range s.incident[n.ID()] {
		s.deriveEdge(e)
	}
	return true
}

func (s *Scene) deriveEdge(e *SpatialEdge) {
	want := e.derived()
	if e.state == want {
		return
	}
	from := e.state
	e.state = want
	if want == Active {
		s.activeEdges++
	} else {
		s.activeEdges--
	}
	s.resources.Update(e)
	s.queue(Transition{Kind: KindEdge, ID: e.ID(), From: from, To: want})
}

func (s *Scene) queue(t Transition) {
	t.Generation = s.generation
	s.pending = append(s.pending, t)
}

// flush delivers queued transitions. Observers may call back into the scene.
func (s *Scene) flush() {
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		for _, t := range batch {
			for _, fn := range s.observers {
				fn(t)
			}
		}
	}
}

// addNode materializes a node, active if it is in the desired set.
func (s *Scene) addNode(n *graph.Node, pos visualization.Vec3, color palette.Color) error {
	if _, ok := s.nodes[n.ID]; ok {
		return nil
	}
	sn := &SpatialNode{Node: n, Position: pos, Color: color, Name: n.DisplayName()}
	if name, ok := s.desired[n.ID]; ok {
		sn.Name = name
	}
	if _, err := s.resources.Acquire(sn); err != nil {
		return err
	}
	s.nodes[n.ID] = sn
	s.nodeOrder = append(s.nodeOrder, sn)
	if s.Desired(n.ID) {
		s.setNodeState(sn, Active)
	}
	return nil
}

// addEdge materializes an edge whose endpoints are both in the scene.
func (s *Scene) addEdge(e *graph.Edge, color palette.Color) error {
	if _, ok := s.edges[e.ID]; ok {
		return nil
	}
	from, okFrom := s.nodes[e.Source]
	to, okTo := s.nodes[e.Target]
	if !okFrom || !okTo {
		return fmt.Errorf("%w: %s", ErrMissingEndpoint, e.ID)
	}
	se := &SpatialEdge{Edge: e, From: from, To: to, Color: color}
	se.state = se.derived()
	if _, err := s.resources.Acquire(se); err != nil {
		return err
	}
	if se.state == Active {
		s.activeEdges++
		s.queue(Transition{Kind: KindEdge, ID: e.ID, From: Inactive, To: Active})
	}
	s.edges[e.ID] = se
	s.edgeOrder = append(s.edgeOrder, se)
	s.incident[e.Source] = append(s.incident[e.Source], se)
	if e.Target != e.Source {
		s.incident[e.Target] = append(s.incident[e.Target], se)
	}
	return nil
}

// disposeGeneration releases every resource of the current generation and
// starts the next one. The desired set is kept.
func (s *Scene) disposeGeneration() {
	for id := range s.halos {
		s.resources.Release(ResourceKey{Kind: KindHalo, ID: id})
	}
	for _, e := range s.edgeOrder {
		s.resources.Release(e.Key())
	}
	for _, n := range s.nodeOrder {
		s.resources.Release(n.Key())
	}
	s.nodes = make(map[string]*SpatialNode)
	s.nodeOrder = nil
	s.edges = make(map[string]*SpatialEdge)
	s.edgeOrder = nil
	s.incident = make(map[string][]*SpatialEdge)
	s.halos = make(map[string]*Halo)
	s.activeNodes = 0
	s.activeEdges = 0
	s.generation++
	s.publish()
}

// Close releases every resource the scene still holds.
func (s *Scene) Close() {
	s.disposeGeneration()
	s.resources.ReleaseAll()
	s.publish()
}

// Animate drains queued diffs and advances the halo effects. It runs on the
// loop goroutine once per executed tick.
func (s *Scene) Animate(f animation.Frame) {
	s.inboxMu.Lock()
	diffs := s.inbox
	s.inbox = nil
	s.inboxMu.Unlock()
	for _, d := range diffs {
		s.Apply(d)
	}

	if s.epoch.IsZero() {
		s.epoch = f.Now
	}
	glow := s.cfg.Pulse.Glow(f.Now.Sub(s.epoch))
	for id, h := range s.halos {
		h.glow = glow
		s.resources.Update(h)
		s.resources.Orient(ResourceKey{Kind: KindHalo, ID: id}, f.Camera.Position.Sub(h.Owner.Position).Normalize())
	}
	s.publish()
}

func (s *Scene) publish() {
	st := &Stats{
		Generation:  s.generation,
		Nodes:       len(s.nodes),
		Edges:       len(s.edges),
		Halos:       len(s.halos),
		ActiveNodes: s.activeNodes,
		ActiveEdges: s.activeEdges,
		Resources:   s.resources.Len(),
		Desired:     len(s.desired),
		UnknownIDs:  s.unknown,
	}
	s.stats.Store(st)
	s.metrics.UpdateSceneMetrics(metrics.SceneGauges{
		Nodes:       st.Nodes,
		Edges:       st.Edges,
		Halos:       st.Halos,
		ActiveNodes: st.ActiveNodes,
		ActiveEdges: st.ActiveEdges,
		Generation:  st.Generation,
	})
}
