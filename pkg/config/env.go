package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(string) (string, bool)

// applyEnv overlays SYNAPSE_* variables onto cfg. Only scalar settings that
// operators commonly change per deployment are exposed.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("SERVER_ADDR", &cfg.Server.Addr)
	e.str("SERVER_BASE_PATH", &cfg.Server.BasePath)
	e.list("CORS_ORIGINS", &cfg.Server.CORSOrigins)
	e.int64("MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	e.bool("TLS_ENABLED", &cfg.Server.TLS.Enabled)
	e.str("TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	e.str("TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	e.str("JWT_SECRET", &cfg.Auth.JWTSecret)
	e.str("JWT_PREVIOUS_SECRET", &cfg.Auth.PreviousJWTSecret)
	e.duration("TOKEN_TTL", &cfg.Auth.TokenTTL)

	e.str("AUTHORITY_URL", &cfg.Authority.URL)
	e.str("AUTHORITY_TOKEN", &cfg.Authority.Token)
	e.duration("POLL_INTERVAL", &cfg.Authority.PollInterval)
	e.duration("POLL_TIMEOUT", &cfg.Authority.Timeout)

	e.str("GRAPH_SOURCE", &cfg.Graph.Source.Kind)
	e.str("GRAPH_PATH", &cfg.Graph.Source.Path)
	e.str("GRAPH_DSN", &cfg.Graph.Source.DSN)
	e.str("GRAPH_BUCKET", &cfg.Graph.Source.Bucket)
	e.str("GRAPH_KEY", &cfg.Graph.Source.Key)
	e.str("GRAPH_REGION", &cfg.Graph.Source.Region)
	e.str("GRAPH_ENDPOINT", &cfg.Graph.Source.Endpoint)
	e.int("MAX_NODES", &cfg.Graph.Limits.MaxNodes)
	e.int("MAX_EDGES", &cfg.Graph.Limits.MaxEdges)

	e.str("LAYOUT_KIND", &cfg.Layout.Kind)
	e.uint64("LAYOUT_SEED", &cfg.Layout.Seed)
	e.uint64("COLOR_SEED", &cfg.Colors.Seed)

	e.float("MAX_FPS", &cfg.Render.MaxFPS)
	e.int("BATCH_SIZE", &cfg.Render.Scene.BatchSize)

	e.str("BROADCAST_LISTEN", &cfg.Broadcast.Listen)
	e.str("BROADCAST_DIAL", &cfg.Broadcast.Dial)
	e.str("METRICS_ADDR", &cfg.Metrics.Addr)
	e.str("LOG_LEVEL", &cfg.Logging.Level)

	return e.err
}

type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name string, err error) {
	e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) bool(name string, dst *bool) {
	if v, ok := e.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) int(name string, dst *int) {
	if v, ok := e.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(name string, dst *int64) {
	if v, ok := e.get(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) uint64(name string, dst *uint64) {
	if v, ok := e.get(name); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(name string, dst *float64) {
	if v, ok := e.get(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(name, err)
			return
		}
		*dst = d
	}
}
