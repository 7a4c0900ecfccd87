package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(s Status) CheckFunc {
	return func() Check { return Check{Status: s} }
}

func TestHealthChecker_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for i, s := range tt.checks {
				hc.RegisterCheck(string(rune('a'+i)), status(s))
			}
			assert.Equal(t, tt.want, hc.Check().Status)
		})
	}
}

func TestHealthChecker_ReadinessIncludedInCheck(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("info", status(StatusDegraded))
	hc.RegisterReadinessCheck("ready", status(StatusHealthy))

	all := hc.Check()
	assert.Len(t, all.Checks, 2)
	assert.Equal(t, "ready", all.Checks["ready"].Name)

	ready := hc.CheckReadiness()
	assert.Len(t, ready.Checks, 1)
	assert.Equal(t, StatusHealthy, ready.Status)
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusDegraded, Worse(StatusHealthy, StatusDegraded))
	assert.Equal(t, StatusUnhealthy, Worse(StatusUnhealthy, StatusDegraded))
	assert.Equal(t, StatusHealthy, Worse(StatusHealthy, StatusHealthy))
}

func TestHealthChecker_EmptyStatusIsUnhealthy(t *testing.T) {
	hc := NewHealthChecker(WithProcess("scene"))
	hc.RegisterCheck("forgetful", func() Check { return Check{Message: "no status"} })

	resp := hc.Check()
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "scene", resp.Process)
	assert.Equal(t, "forgetful", resp.Checks["forgetful"].Name)
	assert.GreaterOrEqual(t, resp.Checks["forgetful"].DurationMS, 0.0)
}

func TestHandlers_StatusCodes(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterCheck("slow", status(StatusDegraded))

	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)

	hc.RegisterReadinessCheck("source", status(StatusDegraded))
	rec = httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hc.RegisterCheck("broken", status(StatusUnhealthy))
	rec = httptest.NewRecorder()
	hc.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestErrorCheck(t *testing.T) {
	assert.Equal(t, StatusHealthy, ErrorCheck("x", func() error { return nil })().Status)

	c := ErrorCheck("x", func() error { return errors.New("stale") })()
	assert.Equal(t, StatusUnhealthy, c.Status)
	assert.Equal(t, "stale", c.Message)
}

func TestPingCheck_Timeout(t *testing.T) {
	c := PingCheck("graph_db", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})()
	assert.Equal(t, StatusUnhealthy, c.Status)
	assert.Contains(t, c.Message, "deadline")
}

func TestActivationStoreCheck(t *testing.T) {
	c := ActivationStoreCheck(func() (int, uint64) { return 3, 9 })()
	assert.Equal(t, StatusHealthy, c.Status)
	assert.Equal(t, 3, c.Details["active_nodes"])
	assert.Equal(t, uint64(9), c.Details["version"])
}

func TestReconcileCheck(t *testing.T) {
	interval, maxAge := time.Second, 10*time.Second
	tests := []struct {
		name string
		last time.Time
		want Status
	}{
		{"never", time.Time{}, StatusUnhealthy},
		{"fresh", time.Now(), StatusHealthy},
		{"late", time.Now().Add(-5 * time.Second), StatusDegraded},
		{"stale", time.Now().Add(-time.Minute), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ReconcileCheck(func() time.Time { return tt.last }, interval, maxAge)()
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestBuildCheck(t *testing.T) {
	progress := func(loaded bool, total, built, failed int) CheckFunc {
		return BuildCheck(func() (bool, uint64, int, int, int) { return loaded, 1, total, built, failed })
	}
	assert.Equal(t, StatusDegraded, progress(false, 0, 0, 0)().Status)
	assert.Equal(t, StatusDegraded, progress(true, 30, 10, 0)().Status)
	assert.Equal(t, StatusDegraded, progress(true, 30, 29, 1)().Status)
	assert.Equal(t, StatusHealthy, progress(true, 30, 30, 0)().Status)
}
