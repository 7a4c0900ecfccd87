// Package audit keeps a bounded in-memory trail of writes to the
// activation set.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of write.
type Action string

const (
	ActionReplace Action = "replace"
	ActionAppend  Action = "append"
	ActionReset   Action = "reset"
)

// Event is a single audit entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject,omitempty"` // empty when auth is off
	Role      string    `json:"role,omitempty"`
	NodeIDs   []string  `json:"nodeIds,omitempty"`
	Version   uint64    `json:"version"`
	Active    int       `json:"active"`
	RequestID string    `json:"requestId,omitempty"`
	RemoteIP  string    `json:"remoteIp,omitempty"`
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	who := e.Subject
	if who == "" {
		who = "anonymous"
	}
	return fmt.Sprintf("[%s] %s %s nodes=%d version=%d active=%d",
		e.Timestamp.Format(time.RFC3339), who, e.Action, len(e.NodeIDs), e.Version, e.Active)
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	Subject string
	Action  Action
	Since   time.Time
}

func (f Filter) match(e *Event) bool {
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// DefaultCapacity is used when New is given a non-positive size.
const DefaultCapacity = 256

// Log is a circular buffer of events. The oldest entry is overwritten once
// the buffer is full.
type Log struct {
	mu     sync.RWMutex
	events []*Event
	index  int
	count  int
	total  uint64
	now    func() time.Time
}

// New creates a log holding at most capacity events.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{events: make([]*Event, capacity), now: time.Now}
}

// Record stores e, filling ID and Timestamp when unset.
func (l *Log) Record(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.events[l.index] = &e
	l.index = (l.index + 1) % len(l.events)
	if l.count < len(l.events) {
		l.count++
	}
	l.total++
}

// Recent returns up to n matching events, newest first. n <= 0 means all
// retained events.
func (l *Log) Recent(n int, f Filter) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > l.count {
		n = l.count
	}
	out := make([]Event, 0, n)
	size := len(l.events)
	for i := 0; i < l.count && len(out) < n; i++ {
		e := l.events[(l.index-1-i+size)%size]
		if f.match(e) {
			out = append(out, *e)
		}
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Total returns the number of events ever recorded.
func (l *Log) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
