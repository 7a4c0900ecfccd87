// Package api serves the activation authority: the single owner of the
// activation set, read by scene pollers and written by controllers.
package api

import (
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/api/middleware"
	"github.com/dd0wney/cluso-synapse/pkg/audit"
	"github.com/dd0wney/cluso-synapse/pkg/auth"
	"github.com/dd0wney/cluso-synapse/pkg/health"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
)

// DefaultBasePath is where the activation routes are mounted.
const DefaultBasePath = "/api/brain"

// Options wires the server's collaborators. Only Store is required.
type Options struct {
	BasePath     string
	Store        *activation.Store
	Validator    auth.TokenValidator // nil leaves mutating routes open
	Audit        *audit.Log          // nil keeps audit.DefaultCapacity events
	Health       *health.HealthChecker
	Metrics      *metrics.Registry
	Logger       logging.Logger
	CORS         *middleware.CORSConfig
	MaxBodyBytes int64
}

// Server handles the authority's HTTP API.
type Server struct {
	basePath     string
	store        *activation.Store
	validator    auth.TokenValidator
	audit        *audit.Log
	health       *health.HealthChecker
	metrics      *metrics.Registry
	logger       logging.Logger
	cors         *middleware.CORSConfig
	maxBodyBytes int64
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	base := strings.TrimRight(opts.BasePath, "/")
	if opts.BasePath == "" {
		base = DefaultBasePath
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Store == nil {
		opts.Store = activation.NewStore()
	}
	hc := opts.Health
	if hc == nil {
		hc = health.NewHealthChecker(health.WithProcess("authority"))
	}
	if opts.Audit == nil {
		opts.Audit = audit.New(audit.DefaultCapacity)
	}
	store := opts.Store
	hc.RegisterReadinessCheck("activation_store", health.ActivationStoreCheck(func() (int, uint64) {
		snap := store.Snapshot()
		return len(snap.Nodes), snap.Version
	}))

	return &Server{
		basePath:     base,
		store:        opts.Store,
		validator:    opts.Validator,
		audit:        opts.Audit,
		health:       hc,
		metrics:      opts.Metrics,
		logger:       logging.ForComponent(opts.Logger, "api"),
		cors:         opts.CORS,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Store returns the activation store the server writes to.
func (s *Server) Store() *activation.Store { return s.store }

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	requireController := middleware.RequireRole(s.validator, s.logger, s.metrics, auth.RoleController, auth.RoleAdmin)
	requireAdmin := middleware.RequireRole(s.validator, s.logger, s.metrics, auth.RoleAdmin)

	mux.HandleFunc("GET "+s.basePath+"/status", s.handleStatus)
	mux.Handle("POST "+s.basePath+"/activate", requireController(http.HandlerFunc(s.handleActivate)))
	mux.Handle("POST "+s.basePath+"/reset", requireController(http.HandlerFunc(s.handleReset)))
	mux.Handle("GET "+s.basePath+"/audit", requireAdmin(http.HandlerFunc(s.handleAudit)))

	mux.Handle("GET /health", s.health.HTTPHandler())
	mux.Handle("GET /health/ready", s.health.ReadinessHandler())
	mux.Handle("GET /health/live", s.health.LivenessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return middleware.Chain(mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Metrics(recorder(s.metrics)),
		middleware.SecurityHeaders(),
		middleware.CORS(s.cors),
		middleware.BodySizeLimit(s.maxBodyBytes),
	)
}

// recorder avoids handing middleware a typed-nil interface.
func recorder(reg *metrics.Registry) middleware.MetricsRecorder {
	if reg == nil {
		return nil
	}
	return reg
}
