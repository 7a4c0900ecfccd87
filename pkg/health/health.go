// Package health aggregates component checks for the /health endpoints.
package health

import (
	"maps"
	"time"
)

// NewHealthChecker creates a checker with no checks; it reports healthy
// until one is registered.
func NewHealthChecker(opts ...Option) *HealthChecker {
	hc := &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		started:     time.Now(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// RegisterCheck registers a check reported by /health only. A later
// registration under the same name replaces the earlier one.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck registers a check that must pass before the
// process is considered ready. It also contributes to Check.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// Check performs every registered check.
func (hc *HealthChecker) Check() Response {
	hc.mu.RLock()
	all := maps.Clone(hc.checks)
	maps.Copy(all, hc.readyChecks)
	hc.mu.RUnlock()

	return hc.performChecks(all)
}

// CheckReadiness performs readiness checks only.
func (hc *HealthChecker) CheckReadiness() Response {
	hc.mu.RLock()
	ready := maps.Clone(hc.readyChecks)
	hc.mu.RUnlock()

	return hc.performChecks(ready)
}

// Checks run outside the lock; they may call into components that are
// themselves locked.
func (hc *HealthChecker) performChecks(checksMap map[string]CheckFunc) Response {
	now := hc.now()
	response := Response{
		Status:    StatusHealthy,
		Process:   hc.process,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checksMap)),
		Uptime:    now.Sub(hc.started).Seconds(),
	}

	for name, checkFunc := range checksMap {
		start := hc.now()
		check := checkFunc()
		if check.Name == "" {
			check.Name = name
		}
		if check.Status == "" {
			check.Status = StatusUnhealthy
		}
		check.DurationMS = float64(hc.now().Sub(start).Microseconds()) / 1000
		check.LastChecked = start

		response.Checks[name] = check
		response.Status = Worse(response.Status, check.Status)
	}

	return response
}
