// Package reconcile keeps a local copy of the authoritative activation set
// in step with the remote authority. One Reconciler polls; every interested
// consumer subscribes to the updates it publishes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/pubsub"
)

// ErrNeverSucceeded is reported by Check before the first successful poll.
var ErrNeverSucceeded = errors.New("reconcile: no successful poll yet")

// Fetcher reads the authoritative activation set.
type Fetcher interface {
	Status(ctx context.Context) (activation.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (activation.Snapshot, error)

// Status calls fn(ctx).
func (fn FetcherFunc) Status(ctx context.Context) (activation.Snapshot, error) { return fn(ctx) }

// Config configures polling
type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DefaultConfig polls every second with a two second timeout.
func DefaultConfig() Config {
	return Config{PollInterval: time.Second, Timeout: 2 * time.Second}
}

// Reconciler diffs each polled set against the last applied one and
// publishes the difference together with the new set. Unchanged polls
// publish and log nothing.
type Reconciler struct {
	fetcher Fetcher
	cfg     Config
	bus     *pubsub.Bus[activation.Update]

	// pollMu serializes PollOnce from fetch to apply.
	pollMu sync.Mutex

	mu          sync.Mutex
	last        activation.Set
	version     uint64
	lastSuccess time.Time
	lastErr     error

	stopOnce sync.Once
	stopCh   chan struct{}

	now     func() time.Time
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a reconciler. The initial snapshot is the empty set. logger
// and reg may be nil.
func New(fetcher Fetcher, cfg Config, logger logging.Logger, reg *metrics.Registry) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.PollInterval
	}
	return &Reconciler{
		fetcher: fetcher,
		cfg:     cfg,
		bus:     pubsub.New[activation.Update](pubsub.WithDropOldest(), pubsub.WithDropHook(reg.RecordDroppedDiffs)),
		stopCh:  make(chan struct{}),
		now:     time.Now,
		logger:  logging.ForComponent(logger, "reconciler"),
		metrics: reg,
	}
}

// Subscribe returns a subscription to future updates together with the set
// they apply on top of. Taking both under one lock means a subscriber
// neither misses nor double-counts a diff. A subscriber that falls a full
// buffer behind loses its oldest updates; applying Update.Since to its own
// copy of the set recovers from that.
func (r *Reconciler) Subscribe(ctx context.Context) (*pubsub.Subscription[activation.Update], activation.Set, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, err := r.bus.Subscribe(ctx)
	if err != nil {
		return nil, activation.Set{}, err
	}
	return sub, r.last, nil
}

// Reconcile applies set as the newest authoritative state. It returns the
// diff and true when set differs from the last applied snapshot.
func (r *Reconciler) Reconcile(set activation.Set) (activation.Diff, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconcileLocked(set)
}

func (r *Reconciler) reconcileLocked(set activation.Set) (activation.Diff, bool) {
	if set.Equal(r.last) {
		return activation.Diff{}, false
	}
	d := activation.Compare(r.last, set)
	r.last = set
	// Published under the lock so subscribers see updates in order.
	r.bus.Publish(activation.Update{Diff: d, Set: set, Version: r.version})

	r.metrics.RecordTransitions(len(d.Activated), len(d.Deactivated), set.Len())
	r.logger.Info("activation set changed",
		logging.Int("activated", len(d.Activated)),
		logging.Int("deactivated", len(d.Deactivated)),
		logging.Int("renamed", len(d.Renamed)),
		logging.Count(set.Len()))
	return d, true
}

// PollOnce fetches the authoritative set and reconciles it. A failed fetch
// leaves the snapshot untouched. Concurrent calls run one at a time, so the
// applied snapshot is always the one fetched last. Versions are not
// compared: an authority restart legitimately starts again from zero.
func (r *Reconciler) PollOnce(ctx context.Context) error {
	r.pollMu.Lock()
	defer r.pollMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	snap, err := r.fetcher.Status(ctx)
	elapsed := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastErr = err
		r.metrics.RecordPoll(metrics.PollError, elapsed)
		r.logger.Warn("status poll failed", logging.Error(err), logging.Latency(elapsed))
		return fmt.Errorf("poll status: %w", err)
	}
	r.lastErr = nil
	r.lastSuccess = r.now()
	r.version = snap.Version

	if _, changed := r.reconcileLocked(snap.Set()); changed {
		r.metrics.RecordPoll(metrics.PollChanged, elapsed)
	} else {
		r.metrics.RecordPoll(metrics.PollUnchanged, elapsed)
	}
	return nil
}

// Run polls immediately and then every PollInterval until ctx is done or
// Stop is called. Failed polls are retried on the next interval.
func (r *Reconciler) Run(ctx context.Context) error {
	select {
	case <-r.stopCh:
		return nil
	default:
	}

	r.logger.Info("reconciler started", logging.Duration("interval", r.cfg.PollInterval))
	_ = r.PollOnce(ctx)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			_ = r.PollOnce(ctx)
		}
	}
}

// Stop ends Run. Safe to call more than once and before Run.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Close stops polling and closes every subscription.
func (r *Reconciler) Close() {
	r.Stop()
	r.bus.Shutdown()
}

// Snapshot returns the last applied set and the authority version it came
// with.
func (r *Reconciler) Snapshot() (activation.Set, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.version
}

// LastSuccess returns the time of the last successful poll.
func (r *Reconciler) LastSuccess() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSuccess
}

// Check reports an error when the last successful poll is older than
// maxAge. It is shaped for use as a health check.
func (r *Reconciler) Check(maxAge time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastSuccess.IsZero() {
		if r.lastErr != nil {
			return fmt.Errorf("%w: %v", ErrNeverSucceeded, r.lastErr)
		}
		return ErrNeverSucceeded
	}
	if age := r.now().Sub(r.lastSuccess); age > maxAge {
		return fmt.Errorf("reconcile: last successful poll %s ago", age.Round(time.Millisecond))
	}
	return nil
}
