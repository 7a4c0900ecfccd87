// Package animation runs the single cooperative tick loop that advances
// time-based effects and renders frames under a frame-rate ceiling.
package animation

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// ErrStopped is returned by Run when Stop was called.
var ErrStopped = errors.New("animation: scheduler stopped")

// Camera is the viewpoint of a frame.
type Camera struct {
	Position visualization.Vec3 `json:"position"`
	Target   visualization.Vec3 `json:"target"`
}

// Frame is handed to every animator on an executed tick.
type Frame struct {
	Index  uint64
	Now    time.Time
	Delta  time.Duration // since the previous executed tick; zero on the first
	Camera Camera
}

// Animator advances time-based state for one frame.
type Animator interface {
	Animate(f Frame)
}

// AnimatorFunc adapts a function to Animator.
type AnimatorFunc func(f Frame)

// Animate calls fn(f).
func (fn AnimatorFunc) Animate(f Frame) { fn(f) }

// RenderFunc draws a frame after all animators ran.
type RenderFunc func(f Frame) error

// CameraFunc positions the camera for a frame time.
type CameraFunc func(now time.Time) Camera

// Config configures the scheduler
type Config struct {
	MaxFPS float64 `yaml:"max_fps"` // ceiling; <= 0 disables it
}

// Stats counts ticks since the scheduler was created.
type Stats struct {
	Executed     uint64        `json:"executed"`
	Skipped      uint64        `json:"skipped"`
	RenderErrors uint64        `json:"renderErrors"`
	LastFrame    time.Time     `json:"lastFrame"`
	LastWork     time.Duration `json:"lastWork"`
}

// Scheduler runs registered animators in registration order and then the
// render callback, at most MaxFPS times per second. A tick that arrives
// before the frame interval elapsed is skipped entirely and its time is
// not carried over.
type Scheduler struct {
	mu        sync.Mutex
	interval  time.Duration
	animators []Animator
	render    RenderFunc
	camera    CameraFunc
	last      time.Time
	index     uint64
	stats     Stats

	stopOnce sync.Once
	stopCh   chan struct{}

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewScheduler creates a scheduler. logger and reg may be nil.
func NewScheduler(cfg Config, logger logging.Logger, reg *metrics.Registry) *Scheduler {
	return &Scheduler{
		interval: FrameInterval(cfg.MaxFPS),
		stopCh:   make(chan struct{}),
		logger:   logging.ForComponent(logger, "scheduler"),
		metrics:  reg,
	}
}

// FrameInterval converts a frame-rate ceiling to the minimum time between
// executed ticks.
func FrameInterval(maxFPS float64) time.Duration {
	if maxFPS <= 0 || math.IsInf(maxFPS, 0) || math.IsNaN(maxFPS) {
		return 0
	}
	return time.Duration(float64(time.Second) / maxFPS)
}

// Add registers an animator. Animators run in the order they were added.
func (s *Scheduler) Add(a Animator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animators = append(s.animators, a)
}

// SetRender sets the callback that draws each executed frame.
func (s *Scheduler) SetRender(fn RenderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render = fn
}

// SetCamera sets the camera source.
func (s *Scheduler) SetCamera(fn CameraFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = fn
}

// Tick runs one frame at now unless the ceiling says to skip it. It reports
// whether the frame executed.
func (s *Scheduler) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		s.stats.Skipped++
		s.metrics.RecordFrame(false, 0)
		return false
	}

	f := Frame{Index: s.index, Now: now}
	if !s.last.IsZero() {
		f.Delta = now.Sub(s.last)
	}
	if s.camera != nil {
		f.Camera = s.camera(now)
	}
	s.last = now
	s.index++

	start := time.Now()
	for _, a := range s.animators {
		a.Animate(f)
	}
	if s.render != nil {
		if err := s.render(f); err != nil {
			s.stats.RenderErrors++
			s.logger.Warn("render failed", logging.Error(err), logging.Uint64("frame", f.Index))
		}
	}
	work := time.Since(start)

	s.stats.Executed++
	s.stats.LastFrame = now
	s.stats.LastWork = work
	s.metrics.RecordFrame(true, work)
	return true
}

// Run ticks on every value received from frames until ctx is done, Stop is
// called or frames is closed.
func (s *Scheduler) Run(ctx context.Context, frames <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return ErrStopped
		case now, ok := <-frames:
			if !ok {
				return nil
			}
			// Stop wins over a frame that raced with it.
			select {
			case <-s.stopCh:
				return ErrStopped
			default:
			}
			s.Tick(now)
		}
	}
}

// RunTicker drives Run from a wall-clock ticker at rate frames per second.
func (s *Scheduler) RunTicker(ctx context.Context, rate float64) error {
	interval := FrameInterval(rate)
	if interval <= 0 {
		interval = FrameInterval(60)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return s.Run(ctx, ticker.C)
}

// Stop ends Run. Safe to call more than once and before Run.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Stats returns a copy of the tick counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
