package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/api"
	"github.com/dd0wney/cluso-synapse/pkg/api/middleware"
	"github.com/dd0wney/cluso-synapse/pkg/auth"
	"github.com/dd0wney/cluso-synapse/pkg/config"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/server"
	synapsetls "github.com/dd0wney/cluso-synapse/pkg/tls"
)

const systemMetricsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapse-server: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("synapse-server exited", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	reg := metrics.DefaultRegistry()
	reg.SetProcess("authority")
	store := activation.NewStore()

	var validator auth.TokenValidator
	if cfg.Auth.Enabled() {
		tm, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		validator = tm
		if cfg.Auth.PreviousJWTSecret != "" {
			prev, err := auth.NewTokenManager(cfg.Auth.PreviousJWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("auth: previous secret: %w", err)
			}
			validator = auth.NewCompositeTokenValidator(tm, prev)
		}
		logger.Info("token auth enabled",
			logging.Duration("token_ttl", tm.TokenDuration()),
			logging.Bool("rotating", cfg.Auth.PreviousJWTSecret != ""))
	} else {
		logger.Warn("token auth disabled, mutating routes are open")
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.Server.CORSOrigins

	apiServer := api.NewServer(api.Options{
		BasePath:     cfg.Server.BasePath,
		Store:        store,
		Validator:    validator,
		Metrics:      reg,
		Logger:       logger,
		CORS:         cors,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	tlsConfig, err := synapsetls.Load(cfg.Server.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler(), server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TLSConfig:       tlsConfig,
	}, logger)

	logger.Info("synapse authority starting",
		logging.String("addr", cfg.Server.Addr),
		logging.Path(cfg.Server.BasePath),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gs.Run(gctx) })
	g.Go(func() error {
		started := time.Now()
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

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("synapse authority stopped", logging.Version(store.Snapshot().Version))
	return nil
}
