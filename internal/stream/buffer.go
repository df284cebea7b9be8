// Package stream provides the bounded, drop-oldest buffer that carries price
// updates and connection lifecycle events from a controller to its consumers.
//
// The buffer never blocks the producer: when full, the oldest unconsumed item
// is evicted to admit the new one. Slow consumers lose history, never
// freshness.
package stream

import (
	"sync"
)

// DefaultCapacity is the buffer capacity used when none is configured.
const DefaultCapacity = 100

// Buffer is a thread-safe, fixed-capacity ring buffer with drop-oldest
// overflow semantics.
type Buffer[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed int64
	dropped     int64
}

// NewBuffer creates a buffer with the given capacity. Capacities below 1 fall
// back to DefaultCapacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	b := &Buffer[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push adds an item without blocking. If the buffer is full the oldest item is
// evicted to make room. Returns false if the buffer is closed (the item is
// discarded).
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == b.capacity {
		// Evict the oldest item.
		var zero T
		b.buf[b.head] = zero
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalPushed++

	b.cond.Signal()
	return true
}

// Receive removes and returns the oldest item, blocking until one is
// available or the buffer is closed. Returns the zero value and false once the
// buffer is closed and drained.
func (b *Buffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.takeLocked(), true
}

// TryReceive removes and returns the oldest item without blocking.
func (b *Buffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.takeLocked(), true
}

// takeLocked removes the head item. Must be called with lock held and count > 0.
func (b *Buffer[T]) takeLocked() T {
	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	return item
}

// Close closes the buffer. Idempotent. Pushes after close are discarded;
// receivers drain the remaining items then get a closed signal.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the current number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Dropped returns the number of items evicted to admit newer ones.
func (b *Buffer[T]) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
