package health

import (
	"context"
	"time"
)

// ErrorCheck reports unhealthy whenever fn returns an error. Use it for
// checks shaped like Reconciler.Check.
func ErrorCheck(name string, fn func() error) CheckFunc {
	return func() Check {
		check := Check{Name: name, Status: StatusHealthy}
		if err := fn(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}

// PingCheck bounds a connectivity test, such as a graph database ping, by timeout.
func PingCheck(name string, timeout time.Duration, ping func(context.Context) error) CheckFunc {
	return func() Check {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		check := Check{Name: name, Status: StatusHealthy, Message: "Connected"}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}

// ActivationStoreCheck reports the size and version of the authoritative set.
// It never fails; the store lives in memory.
func ActivationStoreCheck(state func() (size int, version uint64)) CheckFunc {
	return func() Check {
		size, version := state()
		return Check{
			Name:   "activation_store",
			Status: StatusHealthy,
			Details: map[string]any{
				"active_nodes": size,
				"version":      version,
			},
		}
	}
}

// ReconcileCheck is degraded while polls are merely late and unhealthy once
// the last success is older than maxAge or there has never been one.
func ReconcileCheck(lastSuccess func() time.Time, interval, maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{Name: "reconciler", Details: map[string]any{}}
		last := lastSuccess()
		if last.IsZero() {
			check.Status = StatusUnhealthy
			check.Message = "No successful poll yet"
			return check
		}

		age := time.Since(last)
		check.Details["last_success"] = last
		check.Details["age_seconds"] = age.Seconds()

		switch {
		case age > maxAge:
			check.Status = StatusUnhealthy
			check.Message = "Authority unreachable"
		case age > 2*interval:
			check.Status = StatusDegraded
			check.Message = "Polls are late"
		default:
			check.Status = StatusHealthy
			check.Message = "In sync"
		}
		return check
	}
}

// BuildCheck reports scene construction progress. Building is degraded, not
// unhealthy; failed entities degrade.
func BuildCheck(progress func() (loaded bool, generation uint64, total, built, failed int)) CheckFunc {
	return func() Check {
		loaded, generation, total, built, failed := progress()
		check := Check{
			Name: "scene_build",
			Details: map[string]any{
				"generation": generation,
				"total":      total,
				"built":      built,
				"failed":     failed,
			},
		}

		switch {
		case !loaded:
			check.Status = StatusDegraded
			check.Message = "No graph loaded"
		case built+failed < total:
			check.Status = StatusDegraded
			check.Message = "Building"
		case failed > 0:
			check.Status = StatusDegraded
			check.Message = "Some entities failed to build"
		default:
			check.Status = StatusHealthy
			check.Message = "Built"
		}
		return check
	}
}
