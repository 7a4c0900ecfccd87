// Package pubsub fans typed messages out to in-process subscribers.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrShutdown is returned by Subscribe after Shutdown.
var ErrShutdown = errors.New("pubsub: bus is shut down")

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 100

// Bus provides publish/subscribe of messages of type T. Publish never
// blocks: a subscriber whose buffer is full misses the message and the drop
// is counted. With WithDropOldest the oldest buffered message is evicted
// instead, so the newest message always reaches every subscriber.
type Bus[T any] struct {
	subscribers map[*Subscription[T]]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	isShutdown  bool
	buffer      int
	dropOldest  bool
	dropped     atomic.Uint64
	onDrop      func(n int)
}

// Subscription represents one subscriber
type Subscription[T any] struct {
	channel   chan T
	bus       *Bus[T]
	cancel    context.CancelFunc
	dropped   atomic.Uint64
	closeOnce sync.Once // Ensures channel is only closed once
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	buffer     int
	dropOldest bool
	onDrop     func(n int)
}

// WithBuffer sets the per-subscriber buffer.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithDropHook calls fn with the number of subscribers that missed a
// message.
func WithDropHook(fn func(n int)) Option {
	return func(o *options) { o.onDrop = fn }
}

// WithDropOldest makes a full subscriber lose its oldest buffered message
// rather than the one being published. Use it when each message supersedes
// the ones before it.
func WithDropOldest() Option {
	return func(o *options) { o.dropOldest = true }
}

// New creates a new Bus
func New[T any](opts ...Option) *Bus[T] {
	o := options{buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[T]{
		subscribers: make(map[*Subscription[T]]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      o.buffer,
		dropOldest:  o.dropOldest,
		onDrop:      o.onDrop,
	}
}

// Subscribe creates a new subscription. It ends when ctx is done,
// Unsubscribe is called or the bus shuts down; in every case the channel is
// closed.
func (b *Bus[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		channel: make(chan T, b.buffer),
		bus:     b,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			cancel()
		}
	}()

	return sub, nil
}

// Publish sends msg to every subscriber and returns how many received it.
func (b *Bus[T]) Publish(msg T) int {
	// Sends are non-blocking, so holding the read lock is cheap and keeps
	// Unsubscribe from closing a channel mid-send.
	b.mu.RLock()
	if b.isShutdown {
		b.mu.RUnlock()
		return 0
	}
	delivered, missed := 0, 0
	for sub := range b.subscribers {
		select {
		case sub.channel <- msg:
			delivered++
			continue
		default:
		}
		sub.dropped.Add(1)
		missed++
		if !b.dropOldest {
			continue
		}
		select {
		case <-sub.channel:
		default:
		}
		select {
		case sub.channel <- msg:
			delivered++
		default:
		}
	}
	b.mu.RUnlock()

	if missed > 0 {
		b.dropped.Add(uint64(missed))
		if b.onDrop != nil {
			b.onDrop(missed)
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscribers
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns the total number of missed deliveries.
func (b *Bus[T]) Dropped() uint64 { return b.dropped.Load() }

// Shutdown closes all subscriptions. Safe to call more than once.
func (b *Bus[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isShutdown {
		return
	}
	b.isShutdown = true
	close(b.shutdown)

	for sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, sub)
	}
}

// Channel returns the subscription's message channel
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Dropped returns how many messages this subscriber missed.
func (s *Subscription[T]) Dropped() uint64 { return s.dropped.Load() }

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subscribers, s)
	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription[T]) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
