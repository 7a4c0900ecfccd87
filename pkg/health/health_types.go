package health

import (
	"sync"
	"time"
)

// Status is the outcome of a check. The zero value is not a valid status;
// a check that leaves it empty counts as unhealthy.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns the more severe of a and b.
func Worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// Check is the result of one named check.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc produces a Check. It runs on every request to a health endpoint
// and must not block for long.
type CheckFunc func() Check

// HealthChecker runs named checks. Readiness checks gate traffic; the
// combined Check covers both.
type HealthChecker struct {
	mu          sync.RWMutex
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc
	process     string
	started     time.Time
	now         func() time.Time
}

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithProcess names the binary in every response.
func WithProcess(name string) Option {
	return func(hc *HealthChecker) { hc.process = name }
}

// Response is the body of every health endpoint.
type Response struct {
	Status    Status           `json:"status"`
	Process   string           `json:"process,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}
