// Package headless is a scene.Backend that records objects in memory
// instead of drawing them. It backs the scene runner when no display is
// attached and is the backend used in tests.
package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-synapse/pkg/animation"
	"github.com/dd0wney/cluso-synapse/pkg/scene"
	"github.com/dd0wney/cluso-synapse/pkg/visualization"
)

// ErrUnknownHandle is returned for operations on a handle that was never
// created or was already disposed.
var ErrUnknownHandle = errors.New("headless: unknown handle")

// Object is one recorded render object.
type Object struct {
	Handle     scene.Handle
	Kind       scene.Kind
	ID         string
	Label      string
	Position   visualization.Vec3
	From, To   visualization.Vec3
	Radius     float64
	Appearance scene.Appearance
	Facing     visualization.Vec3
}

// Backend records render objects. Safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	objects  map[scene.Handle]*Object
	created  int
	disposed int
	frames   uint64
	last     animation.Frame

	// BeforeCreate, when set, runs before every create with the lock
	// released. Returning an error fails the create.
	BeforeCreate func(kind scene.Kind, id string) error
	// OnDispose, when set, runs after every successful dispose with the lock
	// released.
	OnDispose func(o Object)
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{objects: make(map[scene.Handle]*Object)}
}

func (b *Backend) create(o *Object) (scene.Handle, error) {
	if b.BeforeCreate != nil {
		if err := b.BeforeCreate(o.Kind, o.ID); err != nil {
			return "", err
		}
	}
	o.Handle = scene.Handle(o.Kind.String() + "-" + uuid.NewString())

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[o.Handle] = o
	b.created++
	return o.Handle, nil
}

func (b *Backend) CreateNode(spec scene.NodeSpec) (scene.Handle, error) {
	return b.create(&Object{
		Kind:       scene.KindNode,
		ID:         spec.ID,
		Label:      spec.Label,
		Position:   spec.Position,
		Appearance: spec.Appearance,
	})
}

func (b *Backend) CreateEdge(spec scene.EdgeSpec) (scene.Handle, error) {
	return b.create(&Object{
		Kind:       scene.KindEdge,
		ID:         spec.ID,
		From:       spec.From,
		To:         spec.To,
		Appearance: spec.Appearance,
	})
}

func (b *Backend) CreateHalo(spec scene.HaloSpec) (scene.Handle, error) {
	return b.create(&Object{
		Kind:       scene.KindHalo,
		ID:         spec.ID,
		Position:   spec.Position,
		Radius:     spec.Radius,
		Appearance: spec.Appearance,
	})
}

func (b *Backend) SetAppearance(h scene.Handle, a scene.Appearance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	o.Appearance = a
	return nil
}

func (b *Backend) SetOrientation(h scene.Handle, facing visualization.Vec3) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	o.Facing = facing
	return nil
}

func (b *Backend) SetLabel(h scene.Handle, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	o.Label = label
	return nil
}

func (b *Backend) Dispose(h scene.Handle) error {
	b.mu.Lock()
	o, ok := b.objects[h]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	delete(b.objects, h)
	b.disposed++
	b.mu.Unlock()

	if b.OnDispose != nil {
		b.OnDispose(*o)
	}
	return nil
}

func (b *Backend) Render(f animation.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++
	b.last = f
	return nil
}

// Live returns the number of objects that exist right now.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// LiveKind returns the number of live objects of one kind.
func (b *Backend) LiveKind(kind scene.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.objects {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Object returns a copy of the object behind h.
func (b *Backend) Object(h scene.Handle) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[h]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Created returns the number of objects ever created.
func (b *Backend) Created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

// Disposed returns the number of objects ever disposed.
func (b *Backend) Disposed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Frames returns the number of rendered frames.
func (b *Backend) Frames() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// LastFrame returns the most recently rendered frame.
func (b *Backend) LastFrame() animation.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

var _ scene.Backend = (*Backend)(nil)
