// Package config loads process configuration: built-in defaults, then an
// optional YAML file, then a .env file, then SYNAPSE_* environment variables.
// The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/client"
	"github.com/dd0wney/cluso-synapse/pkg/graph"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/palette"
	"github.com/dd0wney/cluso-synapse/pkg/reconcile"
	"github.com/dd0wney/cluso-synapse/pkg/scene"
	"github.com/dd0wney/cluso-synapse/pkg/source"
	synapsetls "github.com/dd0wney/cluso-synapse/pkg/tls"
	"github.com/dd0wney/cluso-synapse/pkg/validation"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SYNAPSE_"

// Config is the full configuration of both binaries. Each binary reads the
// sections it needs.
type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Auth      AuthConfig                 `yaml:"auth"`
	Authority AuthorityConfig            `yaml:"authority"`
	Graph     GraphConfig                `yaml:"graph"`
	Colors    palette.Config             `yaml:"colors"`
	Layout    visualization.LayoutConfig `yaml:"layout"`
	Render    RenderConfig               `yaml:"render"`
	Broadcast BroadcastConfig            `yaml:"broadcast"`
	Metrics   MetricsConfig              `yaml:"metrics"`
	Logging   LoggingConfig              `yaml:"logging"`
}

// ServerConfig configures the authority's HTTP listener.
type ServerConfig struct {
	Addr            string            `yaml:"addr"`
	BasePath        string            `yaml:"base_path"`
	ReadTimeout     time.Duration     `yaml:"read_timeout"`
	WriteTimeout    time.Duration     `yaml:"write_timeout"`
	IdleTimeout     time.Duration     `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
	CORSOrigins     []string          `yaml:"cors_origins"`
	MaxBodyBytes    int64             `yaml:"max_body_bytes"`
	TLS             synapsetls.Config `yaml:"tls"`
}

// AuthConfig enables bearer-token auth on mutating routes when JWTSecret is
// set. Tokens signed with PreviousJWTSecret stay valid during a rotation.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	PreviousJWTSecret string        `yaml:"previous_jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
}

// Enabled reports whether mutating routes require a token.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

// AuthorityConfig tells the scene runner where to poll.
type AuthorityConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Reconcile converts the section into reconciler settings.
func (a AuthorityConfig) Reconcile() reconcile.Config {
	return reconcile.Config{PollInterval: a.PollInterval, Timeout: a.Timeout}
}

// GraphConfig selects the data source and ingestion limits.
type GraphConfig struct {
	Source source.Config `yaml:"source"`
	Limits graph.Limits  `yaml:"limits"`
}

// RenderConfig configures the frame loop and incremental build.
type RenderConfig struct {
	MaxFPS    float64            `yaml:"max_fps"`
	FrameRate float64            `yaml:"frame_rate"` // ticker rate driving the loop
	Scene     scene.Config       `yaml:"scene"`
	Camera    visualization.Vec3 `yaml:"camera"`
}

// Scheduler converts the section into scheduler settings.
func (r RenderConfig) Scheduler() animation.Config {
	return animation.Config{MaxFPS: r.MaxFPS}
}

// BroadcastConfig configures the mangos PUB/SUB bus. Empty Listen disables
// publishing.
type BroadcastConfig struct {
	Listen string `yaml:"listen"`
	Dial   string `yaml:"dial"`
}

// MetricsConfig configures the scene runner's health and metrics listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			BasePath:        "/api/brain",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
			TLS:             synapsetls.DefaultConfig(),
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Authority: AuthorityConfig{
			URL:          client.DefaultBaseURL,
			PollInterval: reconcile.DefaultConfig().PollInterval,
			Timeout:      reconcile.DefaultConfig().Timeout,
		},
		Graph: GraphConfig{
			Source: source.Config{Kind: source.KindFile, Path: "graph.json"},
			Limits: graph.Limits{MaxNodes: 5000, MaxEdges: 20000},
		},
		Layout: visualization.DefaultLayoutConfig(),
		Render: RenderConfig{
			MaxFPS:    60,
			FrameRate: 120,
			Scene:     scene.DefaultConfig(),
			Camera:    visualization.Vec3{Z: 300},
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Logger builds the process logger at the configured level.
func (c Config) Logger() logging.Logger {
	return logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.Logging.Level))
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	errs = append(errs, validation.NewConfigValidator("server").
		Required("addr", c.Server.Addr).
		Custom("base_path", func() error {
			if c.Server.BasePath != "" && c.Server.BasePath[0] != '/' {
				return errors.New("must start with /")
			}
			return nil
		}).
		Custom("max_body_bytes", func() error {
			if c.Server.MaxBodyBytes <= 0 {
				return errors.New("must be positive")
			}
			return nil
		}).
		Custom("tls", func() error {
			t := c.Server.TLS
			if (t.CertFile == "") != (t.KeyFile == "") {
				return errors.New("cert_file and key_file must be set together")
			}
			if t.Enabled && t.CertFile == "" && !t.AutoGenerate {
				return errors.New("enabled without a certificate or auto_generate")
			}
			return nil
		}).
		Validate())

	errs = append(errs, validation.NewConfigValidator("auth").
		When(c.Auth.Enabled(), func(v *validation.ConfigValidator) {
			v.Custom("jwt_secret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return errors.New("must be at least 32 characters")
				}
				return nil
			})
			v.Custom("previous_jwt_secret", func() error {
				if p := c.Auth.PreviousJWTSecret; p != "" && len(p) < 32 {
					return errors.New("must be at least 32 characters")
				}
				return nil
			})
			v.MinDuration("token_ttl", c.Auth.TokenTTL, time.Minute)
		}).
		Validate())

	errs = append(errs, validation.NewConfigValidator("authority").
		URL("url", c.Authority.URL).
		MinDuration("poll_interval", c.Authority.PollInterval, 10*time.Millisecond).
		MinDuration("timeout", c.Authority.Timeout, time.Millisecond).
		Validate())

	src := c.Graph.Source
	errs = append(errs, validation.NewConfigValidator("graph").
		OneOf("source.kind", src.Kind, []string{source.KindFile, source.KindPostgres, source.KindS3}).
		When(src.Kind == source.KindFile, func(v *validation.ConfigValidator) { v.Required("source.path", src.Path) }).
		When(src.Kind == source.KindPostgres, func(v *validation.ConfigValidator) { v.Required("source.dsn", src.DSN) }).
		When(src.Kind == source.KindS3, func(v *validation.ConfigValidator) {
			v.Required("source.bucket", src.Bucket).Required("source.key", src.Key)
		}).
		NonNegative("limits.max_nodes", c.Graph.Limits.MaxNodes).
		NonNegative("limits.max_edges", c.Graph.Limits.MaxEdges).
		Validate())

	errs = append(errs, validation.NewConfigValidator("colors").
		Custom("overrides", func() error {
			_, err := palette.NewAssigner(c.Colors)
			return err
		}).
		Validate())

	l := c.Layout
	errs = append(errs, validation.NewConfigValidator("layout").
		OneOf("kind", validation.DefaultOr(l.Kind, visualization.KindHubFirst), []string{
			visualization.KindHubFirst, visualization.KindForce, visualization.KindShell, visualization.KindLayered,
		}).
		PositiveFloat("radii.x", l.Radii.X).
		PositiveFloat("radii.y", l.Radii.Y).
		PositiveFloat("radii.z", l.Radii.Z).
		RangeFloat("bias", l.Bias, 0, 1).
		NonNegative("max_retries", l.MaxRetries).
		Validate())

	errs = append(errs, validation.NewConfigValidator("render").
		RangeFloat("max_fps", c.Render.MaxFPS, 0, 1000).
		PositiveFloat("frame_rate", c.Render.FrameRate).
		Positive("scene.batch_size", c.Render.Scene.BatchSize).
		Validate())

	errs = append(errs, validation.NewConfigValidator("logging").
		OneOf("level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"}).
		Validate())

	return errors.Join(errs...)
}
