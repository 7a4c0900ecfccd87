package activation

import (
	"sync"
	"time"
)

// Snapshot is an immutable, versioned view of the authoritative set.
type Snapshot struct {
	Version   uint64    `json:"version"`
	Nodes     []Node    `json:"activeNodes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Set returns the snapshot's entries as a Set.
func (s Snapshot) Set() Set {
	return NewSet(s.Nodes)
}

// Store is the single owner of the authoritative activation set. Every write
// goes through Replace, Append or Reset and bumps the version, so readers can
// tell two snapshots apart without comparing contents.
type Store struct {
	mu        sync.RWMutex
	set       Set
	version   uint64
	updatedAt time.Time
	now       func() time.Time
}

// NewStore creates an empty store at version 0.
func NewStore() *Store {
	return &Store{now: time.Now, updatedAt: time.Now()}
}

// Snapshot returns the current set.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Replace sets the activation set to exactly nodes.
func (s *Store) Replace(nodes []Node) Snapshot {
	return s.write(func(Set) Set { return NewSet(nodes) })
}

// Append merges nodes into the current set. Names of ids already present are
// overwritten.
func (s *Store) Append(nodes []Node) Snapshot {
	return s.write(func(cur Set) Set { return cur.Merge(NewSet(nodes)) })
}

// Reset clears the activation set.
func (s *Store) Reset() Snapshot {
	return s.write(func(Set) Set { return Set{} })
}

// Len returns the number of active ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Len()
}

func (s *Store) write(fn func(Set) Set) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = fn(s.set)
	s.version++
	s.updatedAt = s.now()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:   s.version,
		Nodes:     s.set.Nodes(),
		UpdatedAt: s.updatedAt,
	}
}
