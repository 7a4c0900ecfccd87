package scene

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// fakeBackend counts calls and lets tests hook into create and dispose.
type fakeBackend struct {
	next      int
	live      map[Handle]bool
	disposed  []Handle
	onCreate  func()
	onDispose func(Handle)
	failWith  error
}

func newFakeBackend() *fakeBackend { return &fakeBackend{live: map[Handle]bool{}} }

func (f *fakeBackend) create() (Handle, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.failWith != nil {
		return "", f.failWith
	}
	f.next++
	h := Handle(fmt.Sprintf("h%d", f.next))
	f.live[h] = true
	return h, nil
}

func (f *fakeBackend) CreateNode(NodeSpec) (Handle, error)             { return f.create() }
func (f *fakeBackend) CreateEdge(EdgeSpec) (Handle, error)             { return f.create() }
func (f *fakeBackend) CreateHalo(HaloSpec) (Handle, error)             { return f.create() }
func (f *fakeBackend) SetAppearance(Handle, Appearance) error          { return nil }
func (f *fakeBackend) SetOrientation(Handle, visualization.Vec3) error { return nil }
func (f *fakeBackend) SetLabel(Handle, string) error                   { return nil }
func (f *fakeBackend) Render(animation.Frame) error                    { return nil }

func (f *fakeBackend) Dispose(h Handle) error {
	if !f.live[h] {
		return errors.New("double dispose")
	}
	delete(f.live, h)
	f.disposed = append(f.disposed, h)
	if f.onDispose != nil {
		f.onDispose(h)
	}
	return nil
}

type testEntity struct{ id string }

func (e testEntity) Key() ResourceKey                      { return ResourceKey{Kind: KindNode, ID: e.id} }
func (e testEntity) Appearance() Appearance                { return Appearance{} }
func (e testEntity) Materialize(b Backend) (Handle, error) { return b.CreateNode(NodeSpec{ID: e.id}) }

func TestResourceManager_AcquireIsIdempotent(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)

	h1, err := m.Acquire(testEntity{"a"})
	require.NoError(t, err)
	h2, err := m.Acquire(testEntity{"a"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, b.live, 1)
	assert.Equal(t, 1, m.Len())
}

func TestResourceManager_AcquireReleaseRelease(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)
	key := testEntity{"a"}.Key()

	_, err := m.Acquire(testEntity{"a"})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.Release(key)
		m.Release(key)
	})
	_, ok := m.Handle(key)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Len(t, b.disposed, 1)
}

func TestResourceManager_ReleaseUnknownIsNoop(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)
	m.Release(ResourceKey{Kind: KindHalo, ID: "never"})
	assert.Empty(t, b.disposed)
}

func TestResourceManager_ReentrantAcquire(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)

	var inner error
	b.onCreate = func() {
		b.onCreate = nil
		_, inner = m.Acquire(testEntity{"a"})
	}
	_, err := m.Acquire(testEntity{"a"})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrReentrantAcquire)
	assert.Len(t, b.live, 1)
}

func TestResourceManager_ReleaseDuringCreate(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)
	key := testEntity{"a"}.Key()

	b.onCreate = func() { m.Release(key) }
	_, err := m.Acquire(testEntity{"a"})

	assert.ErrorIs(t, err, ErrReleasedDuringAcquire)
	assert.Empty(t, b.live, "resource created after release must be disposed")
	assert.Equal(t, 0, m.Len())
}

func TestResourceManager_NestedReleaseFromDispose(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)
	key := testEntity{"a"}.Key()
	_, err := m.Acquire(testEntity{"a"})
	require.NoError(t, err)

	b.onDispose = func(Handle) { m.Release(key) }
	m.Release(key)
	assert.Len(t, b.disposed, 1)
}

func TestResourceManager_CreateFailureLeavesNoRecord(t *testing.T) {
	b := newFakeBackend()
	b.failWith = errors.New("out of memory")
	m := NewResourceManager(b, nil)

	_, err := m.Acquire(testEntity{"a"})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())

	b.failWith = nil
	_, err = m.Acquire(testEntity{"a"})
	assert.NoError(t, err)
}

func TestResourceManager_ReleaseAll(t *testing.T) {
	b := newFakeBackend()
	m := NewResourceManager(b, nil)
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Acquire(testEntity{id})
		require.NoError(t, err)
	}
	m.ReleaseAll()
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, b.live)
}

func TestPulse_Glow(t *testing.T) {
	p := DefaultPulse()
	assert.InDelta(t, p.Base, p.Glow(0), 1e-9)
	assert.InDelta(t, p.Base+p.Amplitude, p.Glow(p.Period/4), 1e-9)
	assert.InDelta(t, p.Base, p.Glow(p.Period), 1e-9)

	flat := Pulse{Base: 0.4}
	assert.Equal(t, 0.4, flat.Glow(123))
}

func TestProfiles(t *testing.T) {
	assert.Greater(t, NodeProfile(Active).Brightness, NodeProfile(Inactive).Brightness)
	assert.Greater(t, EdgeProfile(Active).Opacity, EdgeProfile(Inactive).Opacity)
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "halo:x", ResourceKey{Kind: KindHalo, ID: "x"}.String())
}
