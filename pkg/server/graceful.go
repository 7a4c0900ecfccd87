// Package server runs an HTTP server that drains on shutdown and turns
// SIGHUP into a caller-supplied reload.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/logging"
)

// ReloadFunc is called on SIGHUP or Reload.
type ReloadFunc func() error

// Options holds the listener timeouts.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TLSConfig       *tls.Config // nil serves plain HTTP
}

// DefaultOptions returns conservative timeouts.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          logging.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	mu       sync.RWMutex
	addr     net.Addr
	reloadFn ReloadFunc
}

// NewGracefulServer creates a new graceful HTTP server. Zero options fall
// back to DefaultOptions.
func NewGracefulServer(addr string, handler http.Handler, opts Options, logger logging.Logger) *GracefulServer {
	def := DefaultOptions()
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = def.IdleTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = def.ShutdownTimeout
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    opts.ReadTimeout,
			WriteTimeout:   opts.WriteTimeout,
			IdleTimeout:    opts.IdleTimeout,
			MaxHeaderBytes: 1 << 20,
			TLSConfig:      opts.TLSConfig,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          logging.ForComponent(logger, "http"),
		shutdownCh:      make(chan struct{}),
	}
}

// Run listens, serves and shuts down gracefully when ctx is cancelled. It
// returns nil after a clean shutdown.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}

// Serve accepts connections on ln until Shutdown.
func (gs *GracefulServer) Serve(ln net.Listener) error {
	gs.mu.Lock()
	gs.addr = ln.Addr()
	gs.mu.Unlock()

	if gs.server.TLSConfig != nil {
		ln = tls.NewListener(ln, gs.server.TLSConfig)
	}
	gs.logger.Info("HTTP server listening",
		logging.String("addr", ln.Addr().String()),
		logging.Bool("tls", gs.server.TLSConfig != nil),
	)
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once serving, or nil.
func (gs *GracefulServer) Addr() net.Addr {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.addr
}

// Shutdown initiates a graceful shutdown. Later calls return the first result.
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("Initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.shutdownErr = err
			gs.logger.Error("Error during shutdown", logging.Error(err))
			return
		}
		gs.logger.Info("Server shutdown complete")
	})
	return gs.shutdownErr
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function called by Reload.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any.
func (gs *GracefulServer) Reload() error {
	gs.mu.RLock()
	fn := gs.reloadFn
	gs.mu.RUnlock()

	if fn == nil {
		gs.logger.Warn("Reload requested, but no reload function configured")
		return nil
	}

	timer := logging.StartTimer(gs.logger, "Reload complete")
	if err := fn(); err != nil {
		gs.logger.Error("Reload failed", logging.Error(err))
		return err
	}
	timer.End()
	return nil
}

// WatchReload calls Reload on every SIGHUP until ctx is done.
func (gs *GracefulServer) WatchReload(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			gs.logger.Info("Received SIGHUP, reloading")
			_ = gs.Reload()
		}
	}
}
