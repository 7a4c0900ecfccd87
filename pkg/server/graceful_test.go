package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/logging"
	synapsetls "github.com/dd0wney/cluso-synapse/pkg/tls"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func TestGracefulServer_ServeAndShutdown(t *testing.T) {
	gs := NewGracefulServer("127.0.0.1:0", okHandler(), Options{}, logging.NewNopLogger())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- gs.Serve(ln) }()

	require.Eventually(t, func() bool { return gs.Addr() != nil }, time.Second, 5*time.Millisecond)
	resp, err := http.Get("http://" + gs.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	assert.False(t, gs.IsShuttingDown())
	require.NoError(t, gs.Shutdown(time.Second))
	require.NoError(t, gs.Shutdown(time.Second))
	assert.True(t, gs.IsShuttingDown())
	assert.NoError(t, <-done)
}

func TestGracefulServer_RunStopsOnCancel(t *testing.T) {
	gs := NewGracefulServer("127.0.0.1:0", okHandler(), Options{ShutdownTimeout: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()
	require.Eventually(t, func() bool { return gs.Addr() != nil }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	<-gs.ShutdownChannel()
}

func TestGracefulServer_RunListenError(t *testing.T) {
	gs := NewGracefulServer("256.0.0.1:0", okHandler(), Options{}, nil)
	assert.Error(t, gs.Run(context.Background()))
}

func TestGracefulServer_Reload(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), Options{}, nil)
	assert.NoError(t, gs.Reload())

	calls := 0
	gs.SetReloadFunc(func() error { calls++; return nil })
	require.NoError(t, gs.Reload())
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	gs.SetReloadFunc(func() error { return boom })
	assert.ErrorIs(t, gs.Reload(), boom)
}

func TestGracefulServer_WatchReloadOnSIGHUP(t *testing.T) {
	gs := NewGracefulServer(":0", okHandler(), Options{}, nil)
	reloaded := make(chan struct{}, 1)
	gs.SetReloadFunc(func() error {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return nil
	})

	// Keep SIGHUP from terminating the test binary before the watcher registers.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGHUP)
	defer signal.Stop(guard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gs.WatchReload(ctx)

	// Signal until the watcher has registered and picked one up.
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))
		select {
		case <-reloaded:
			assert.False(t, gs.IsShuttingDown())
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("SIGHUP did not trigger reload")
		}
	}
}

func TestGracefulServer_ServeTLS(t *testing.T) {
	tc := synapsetls.DefaultConfig()
	tc.Enabled = true
	cfg, err := synapsetls.Load(tc)
	require.NoError(t, err)

	gs := NewGracefulServer("127.0.0.1:0", okHandler(), Options{TLSConfig: cfg}, logging.NewNopLogger())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ln) }()

	httpClient := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	resp, err := httpClient.Get("https://" + ln.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
	assert.NotNil(t, resp.TLS)

	require.NoError(t, gs.Shutdown(time.Second))
	assert.NoError(t, <-done)
}
