package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/api"
	"github.com/dd0wney/cluso-synapse/pkg/broadcast"
	"github.com/dd0wney/cluso-synapse/pkg/client"
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/pubsub"
	"github.com/dd0wney/cluso-synapse/pkg/reconcile"
	"github.com/dd0wney/cluso-synapse/pkg/scene"
	"github.com/dd0wney/cluso-synapse/pkg/scene/headless"
	"github.com/dd0wney/cluso-synapse/pkg/source"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// rig is one authority plus one scene runner, driven by hand.
type rig struct {
	t       *testing.T
	ctx     context.Context
	client  *client.Client
	rec     *reconcile.Reconciler
	sub     *pubsub.Subscription[activation.Update]
	local   activation.Set
	scene   *scene.Scene
	builder *scene.Builder
	backend *headless.Backend
	sched   *animation.Scheduler
	now     time.Time
}

func chain(n int) graph.Dataset {
	var ds graph.Dataset
	for i := 0; i < n; i++ {
		ds.Nodes = append(ds.Nodes, graph.NodeRecord{ID: fmt.Sprint(i), Types: []string{"Neuron"}})
		if i > 0 {
			ds.Edges = append(ds.Edges, graph.EdgeRecord{
				ID:     fmt.Sprintf("e%d", i),
				Type:   "SYNAPSE",
				Source: fmt.Sprint(i - 1),
				Target: fmt.Sprint(i),
			})
		}
	}
	return ds
}

func newRig(t *testing.T, ds graph.Dataset) *rig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := logging.NewNopLogger()

	srv := httptest.NewServer(api.NewServer(api.Options{Logger: logger}).Handler())
	t.Cleanup(srv.Close)

	loaded, err := source.Static(ds).Load(ctx)
	require.NoError(t, err)
	g, _ := graph.Ingest(loaded, graph.Limits{})

	colors, err := palette.NewAssigner(palette.Config{Seed: 1})
	require.NoError(t, err)
	layout, err := visualization.NewLayoutFromConfig(visualization.DefaultLayoutConfig())
	require.NoError(t, err)

	backend := headless.New()
	cfg := scene.DefaultConfig()
	cfg.BatchSize = 2
	sc := scene.New(backend, cfg, logger, nil)
	t.Cleanup(sc.Close)
	builder := scene.NewBuilder(sc, layout, colors, logger, nil)
	require.NoError(t, builder.Load(g))

	c := client.New(srv.URL + api.DefaultBasePath)
	rec := reconcile.New(c, reconcile.Config{PollInterval: time.Hour}, logger, nil)
	t.Cleanup(rec.Close)
	sub, initial, err := rec.Subscribe(ctx)
	require.NoError(t, err)

	sched := animation.NewScheduler(animation.Config{}, logger, nil)
	sched.Add(builder)
	sched.Add(sc)
	sched.SetRender(backend.Render)

	return &rig{
		t: t, ctx: ctx, client: c, rec: rec, sub: sub, local: initial,
		scene: sc, builder: builder, backend: backend, sched: sched,
		now: time.Unix(1_700_000_000, 0),
	}
}

// sync polls the authority once, hands every resulting diff to the scene
// and runs one frame.
func (r *rig) sync() {
	r.t.Helper()
	require.NoError(r.t, r.rec.PollOnce(r.ctx))
	for {
		select {
		case u := <-r.sub.Channel():
			r.scene.Enqueue(u.Since(r.local))
			r.local = u.Set
			continue
		default:
		}
		break
	}
	r.tick()
}

func (r *rig) tick() {
	r.now = r.now.Add(16 * time.Millisecond)
	r.sched.Tick(r.now)
}

func (r *rig) state(id string) scene.ActivationState {
	r.t.Helper()
	n, ok := r.scene.Node(id)
	require.True(r.t, ok, "node %s not materialized", id)
	return n.State()
}

func TestActivationReachesScene(t *testing.T) {
	r := newRig(t, chain(4))

	for !r.builder.Progress().Done() {
		r.tick()
	}
	require.Len(t, r.scene.Nodes(), 4)
	require.Len(t, r.scene.Edges(), 3)

	_, err := r.client.Activate(r.ctx, client.ActivateRequest{
		Nodes: []activation.Node{{ID: "1", Name: "One"}, {ID: "2", Name: "Two"}},
	})
	require.NoError(t, err)
	r.sync()

	assert.Equal(t, scene.Active, r.state("1"))
	assert.Equal(t, scene.Active, r.state("2"))
	assert.Equal(t, scene.Inactive, r.state("0"))
	assert.True(t, r.scene.HasHalo("1"))
	assert.Equal(t, 2, r.backend.LiveKind(scene.KindHalo))

	e, ok := r.scene.Edge("e2")
	require.True(t, ok)
	assert.Equal(t, scene.Active, e.State())
	e, _ = r.scene.Edge("e1")
	assert.Equal(t, scene.Inactive, e.State())

	st := r.scene.Stats()
	assert.Equal(t, 2, st.ActiveNodes)
	assert.Equal(t, 1, st.ActiveEdges)

	_, err = r.client.Reset(r.ctx)
	require.NoError(t, err)
	r.sync()

	assert.Equal(t, scene.Inactive, r.state("1"))
	assert.Zero(t, r.backend.LiveKind(scene.KindHalo))
	assert.Zero(t, r.scene.Stats().ActiveEdges)
}

func TestActivationBeforeBuildCompletes(t *testing.T) {
	r := newRig(t, chain(10))

	// Activate while nothing is materialized yet.
	_, err := r.client.Activate(r.ctx, client.ActivateRequest{NodeIDs: []string{"9", "ghost"}})
	require.NoError(t, err)
	r.sync()
	assert.True(t, r.scene.Desired("9"))
	assert.True(t, r.scene.Desired("ghost"))

	for !r.builder.Progress().Done() {
		r.tick()
	}

	assert.Equal(t, scene.Active, r.state("9"))
	assert.True(t, r.scene.HasHalo("9"))
	n, _ := r.scene.Node("9")
	assert.Equal(t, "Neuron 9", n.Name)
	assert.Equal(t, 1, r.scene.Stats().ActiveNodes)
}

func TestRefreshRebuildsWithActiveSet(t *testing.T) {
	r := newRig(t, chain(3))
	for !r.builder.Progress().Done() {
		r.tick()
	}

	_, err := r.client.Activate(r.ctx, client.ActivateRequest{NodeIDs: []string{"2"}})
	require.NoError(t, err)
	r.sync()
	gen := r.scene.Generation()

	next, _ := graph.Ingest(chain(5), graph.Limits{})
	r.builder.RequestRefresh(next)
	for r.scene.Generation() == gen || !r.builder.Progress().Done() {
		r.tick()
	}

	assert.Len(t, r.scene.Nodes(), 5)
	assert.Equal(t, scene.Active, r.state("2"))
	assert.Equal(t, 1, r.backend.LiveKind(scene.KindHalo))
}

func TestBroadcastCarriesDiffs(t *testing.T) {
	r := newRig(t, chain(2))

	pub, err := broadcast.NewPublisher(nil, nil)
	require.NoError(t, err)
	defer pub.Close()
	addr := fmt.Sprintf("inproc://e2e-%d", time.Now().UnixNano())
	require.NoError(t, pub.Listen(addr))

	sub, err := broadcast.NewSubscriber()
	require.NoError(t, err)
	defer sub.Close()
	require.NoError(t, sub.Dial(addr))

	bsub, active, err := r.rec.Subscribe(r.ctx)
	require.NoError(t, err)
	go func() {
		_ = pub.Forward(r.ctx, active, bsub.Channel())
	}()

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()

	// PUB/SUB drops frames sent before the subscription is live, so keep
	// writing until one arrives.
	var msg broadcast.Message
	for attempt := 0; ; attempt++ {
		_, err := r.client.Activate(r.ctx, client.ActivateRequest{NodeIDs: []string{fmt.Sprint(attempt % 2)}})
		require.NoError(t, err)
		require.NoError(t, r.rec.PollOnce(r.ctx))

		wait, stop := context.WithTimeout(ctx, 100*time.Millisecond)
		msg, err = sub.Next(wait)
		stop()
		if err == nil {
			break
		}
		require.NoError(t, ctx.Err(), "no broadcast received")
	}

	require.Len(t, msg.Active, 1)
	assert.NotZero(t, msg.Version)
	assert.False(t, msg.Diff.Empty())
}
