package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/broadcast"
	"github.com/dd0wney/cluso-synapse/pkg/client"
	"github.com/dd0wney/cluso-synapse/pkg/config"
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/health"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/reconcile"
	"github.com/dd0wney/cluso-synapse/pkg/scene"
	"github.com/dd0wney/cluso-synapse/pkg/scene/headless"
	"github.com/dd0wney/cluso-synapse/pkg/server"
	"github.com/dd0wney/cluso-synapse/pkg/source"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

const (
	// A reconciler with no success for this many intervals is reported unhealthy.
	staleIntervals        = 5
	systemMetricsInterval = 15 * time.Second
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapse-scene: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("synapse-scene exited", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	reg := metrics.DefaultRegistry()
	reg.SetProcess("scene")
	started := time.Now()

	src, err := source.Open(ctx, cfg.Graph.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	g, err := loadGraph(ctx, src, cfg.Graph.Limits, reg, logger)
	if err != nil {
		return err
	}

	colors, err := palette.NewAssigner(cfg.Colors)
	if err != nil {
		return err
	}
	layout, err := visualization.NewLayoutFromConfig(cfg.Layout)
	if err != nil {
		return err
	}

	backend := headless.New()
	sc := scene.New(backend, cfg.Render.Scene, logger, reg)
	defer sc.Close()

	builder := scene.NewBuilder(sc, layout, colors, logger, reg)
	if err := builder.Load(g); err != nil {
		return err
	}

	authority := client.New(cfg.Authority.URL,
		client.WithToken(cfg.Authority.Token),
		client.WithTimeout(cfg.Authority.Timeout),
	)
	rec := reconcile.New(authority, cfg.Authority.Reconcile(), logger, reg)
	defer rec.Close()

	sub, initial, err := rec.Subscribe(ctx)
	if err != nil {
		return err
	}
	if d := activation.Compare(activation.Set{}, initial); !d.Empty() {
		sc.Enqueue(d)
	}

	sched := animation.NewScheduler(cfg.Render.Scheduler(), logger, reg)
	sched.Add(builder)
	sched.Add(sc)
	sched.SetRender(backend.Render)
	camera := animation.Camera{Position: cfg.Render.Camera}
	sched.SetCamera(func(time.Time) animation.Camera { return camera })

	hc := health.NewHealthChecker(health.WithProcess("scene"))
	hc.RegisterReadinessCheck("scene_build", health.BuildCheck(func() (bool, uint64, int, int, int) {
		p := builder.Progress()
		return p.Loaded, p.Generation, p.Total, p.Built, p.Failed
	}))
	poll := cfg.Authority.PollInterval
	hc.RegisterReadinessCheck("reconciler", health.ReconcileCheck(rec.LastSuccess, poll, staleIntervals*poll))
	hc.RegisterCheck("authority", health.ErrorCheck("authority", func() error {
		return rec.Check(staleIntervals * poll)
	}))
	if p, ok := src.(interface{ Ping(context.Context) error }); ok {
		hc.RegisterCheck("graph_source", health.PingCheck("graph_source", 2*time.Second, p.Ping))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", hc.HTTPHandler())
	mux.HandleFunc("GET /health/ready", hc.ReadinessHandler())
	mux.HandleFunc("GET /health/live", hc.LivenessHandler())
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("GET /scene", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scene":     sc.Stats(),
			"build":     builder.Progress(),
			"scheduler": sched.Stats(),
			"objects":   backend.Live(),
		})
	})
	mux.HandleFunc("GET /scene/export", func(w http.ResponseWriter, r *http.Request) {
		viz, ok := builder.Visualization()
		if !ok {
			http.Error(w, "scene not loaded", http.StatusServiceUnavailable)
			return
		}
		viz.Volume = cfg.Layout.Volume()
		data, err := viz.ExportJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
	ops := server.NewGracefulServer(cfg.Metrics.Addr, mux, server.DefaultOptions(), logger)
	ops.SetReloadFunc(func() error {
		next, err := loadGraph(ctx, src, cfg.Graph.Limits, reg, logger)
		if err != nil {
			return err
		}
		builder.RequestRefresh(next)
		return nil
	})

	var pub *broadcast.Publisher
	if cfg.Broadcast.Listen != "" {
		if pub, err = broadcast.NewPublisher(logger, reg); err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.Listen(cfg.Broadcast.Listen); err != nil {
			return err
		}
	}

	grp, gctx := errgroup.WithContext(ctx)
	if pub != nil {
		bsub, active, err := rec.Subscribe(gctx)
		if err != nil {
			return err
		}
		grp.Go(func() error {
			return pub.Forward(gctx, active, bsub.Channel())
		})
	}
	grp.Go(func() error { return ops.Run(gctx) })
	grp.Go(func() error {
		ops.WatchReload(gctx)
		return nil
	})
	grp.Go(func() error { return rec.Run(gctx) })
	grp.Go(func() error {
		local := initial
		for {
			select {
			case <-gctx.Done():
				return nil
			case u, ok := <-sub.Channel():
				if !ok {
					return nil
				}
				if d := u.Since(local); !d.Empty() {
					sc.Enqueue(d)
				}
				local = u.Set
			}
		}
	})
	grp.Go(func() error { return sched.RunTicker(gctx, cfg.Render.FrameRate) })
	grp.Go(func() error {
		ticker := time.NewTicker(systemMetricsInterval)
		defer ticker.Stop()
		for {
			reg.UpdateSystemMetrics(started)
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	logger.Info("synapse scene running",
		logging.String("authority", authority.BaseURL()),
		logging.String("ops_addr", cfg.Metrics.Addr),
		logging.Count(g.NodeCount()),
	)

	err = grp.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	st := sc.Stats()
	logger.Info("synapse scene stopped",
		logging.Generation(st.Generation),
		logging.Int("active_nodes", st.ActiveNodes),
		logging.Uint64("frames", backend.Frames()),
	)
	return err
}

// loadGraph reads the dataset and ingests it under limits.
func loadGraph(ctx context.Context, src source.Source, limits graph.Limits, reg *metrics.Registry, logger logging.Logger) (*graph.Graph, error) {
	timer := logging.StartTimer(logger, "graph loaded")
	ds, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	g, stats := graph.Ingest(ds, limits)
	reg.RecordIngestStats(stats)
	timer.End(
		logging.Int("nodes", g.NodeCount()),
		logging.Int("edges", g.EdgeCount()),
	)
	return g, nil
}
