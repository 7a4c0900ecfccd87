package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

var (
	// ErrReentrantAcquire is returned when Acquire is called for an entity
	// whose resource is still being created by an outer Acquire.
	ErrReentrantAcquire = errors.New("scene: resource creation already in progress")
	// ErrReleasedDuringAcquire is returned when the entity was released while
	// its resource was being created. The new resource is disposed.
	ErrReleasedDuringAcquire = errors.New("scene: resource released during creation")
)

type record struct {
	handle    Handle
	pending   bool
	cancelled bool
}

// ResourceManager owns every render resource and keeps at most one per
// entity. Backend calls are made without holding the table lock, so a
// backend callback may safely re-enter Acquire or Release.
type ResourceManager struct {
	mu      sync.Mutex
	backend Backend
	records map[ResourceKey]*record
	logger  logging.Logger
}

// NewResourceManager creates an empty manager over backend.
func NewResourceManager(backend Backend, logger logging.Logger) *ResourceManager {
	return &ResourceManager{
		backend: backend,
		records: make(map[ResourceKey]*record),
		logger:  logging.ForComponent(logger, "resources"),
	}
}

// Acquire returns the entity's existing handle or creates exactly one.
func (m *ResourceManager) Acquire(e Entity) (Handle, error) {
	key := e.Key()

	m.mu.Lock()
	if r, ok := m.records[key]; ok {
		m.mu.Unlock()
		if r.pending {
			return "", fmt.Errorf("%w: %s", ErrReentrantAcquire, key)
		}
		return r.handle, nil
	}
	r := &record{pending: true}
	m.records[key] = r
	m.mu.Unlock()

	h, err := e.Materialize(m.backend)

	m.mu.Lock()
	r.pending = false
	if err != nil {
		if m.records[key] == r {
			delete(m.records, key)
		}
		m.mu.Unlock()
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if r.cancelled {
		m.mu.Unlock()
		m.dispose(key, h)
		return "", fmt.Errorf("%w: %s", ErrReleasedDuringAcquire, key)
	}
	r.handle = h
	m.mu.Unlock()
	return h, nil
}

// Release disposes the entity's resource and forgets it. Releasing an
// unknown or already released key is a no-op. The record is removed before
// the backend is called, so a nested Release of the same key sees nothing.
func (m *ResourceManager) Release(key ResourceKey) {
	m.mu.Lock()
	r, ok := m.records[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.records, key)
	if r.pending {
		r.cancelled = true
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.dispose(key, r.handle)
}

func (m *ResourceManager) dispose(key ResourceKey, h Handle) {
	if err := m.backend.Dispose(h); err != nil {
		m.logger.Warn("dispose failed",
			logging.String("resource", key.String()),
			logging.Error(err))
	}
}

// Handle returns the live handle for key.
func (m *ResourceManager) Handle(key ResourceKey) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok || r.pending {
		return "", false
	}
	return r.handle, true
}

// Update pushes a new appearance to the entity's resource. It reports false
// when the entity has no live resource.
func (m *ResourceManager) Update(e Entity) bool {
	key := e.Key()
	h, ok := m.Handle(key)
	if !ok {
		return false
	}
	if err := m.backend.SetAppearance(h, e.Appearance()); err != nil {
		m.logger.Warn("set appearance failed",
			logging.String("resource", key.String()),
			logging.Error(err))
		return false
	}
	return true
}

// Orient turns a billboard resource to face along facing.
func (m *ResourceManager) Orient(key ResourceKey, facing visualization.Vec3) bool {
	h, ok := m.Handle(key)
	if !ok {
		return false
	}
	if err := m.backend.SetOrientation(h, facing); err != nil {
		m.logger.Warn("set orientation failed",
			logging.String("resource", key.String()),
			logging.Error(err))
		return false
	}
	return true
}

// Relabel changes the text shown on the entity's resource.
func (m *ResourceManager) Relabel(key ResourceKey, label string) bool {
	h, ok := m.Handle(key)
	if !ok {
		return false
	}
	if err := m.backend.SetLabel(h, label); err != nil {
		m.logger.Warn("set label failed",
			logging.String("resource", key.String()),
			logging.Error(err))
		return false
	}
	return true
}

// Len returns the number of recorded resources, including ones still being
// created.
func (m *ResourceManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// LenKind returns the number of recorded resources of one kind.
func (m *ResourceManager) LenKind(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.records {
		if k.Kind == kind {
			n++
		}
	}
	return n
}

// ReleaseAll releases every resource.
func (m *ResourceManager) ReleaseAll() {
	m.mu.Lock()
	keys := make([]ResourceKey, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	for _, k := range keys {
		m.Release(k)
	}
}
