// Package queue holds the bounded buffers that sit between the event loop
// and background writers.
package queue

import "sync"

// Ring is a thread-safe FIFO with a fixed capacity. Pushing into a full
// ring evicts the oldest item, so a stalled consumer costs history rather
// than memory.
type Ring[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	size    int
	dropped uint64
}

// NewRing creates a ring holding at most capacity items. A capacity below
// one is raised to one.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends items, evicting from the front when full.
func (r *Ring[T]) Push(items ...T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if r.size == len(r.items) {
			var zero T
			r.items[r.head] = zero
			r.head = (r.head + 1) % len(r.items)
			r.size--
			r.dropped++
		}
		r.items[(r.head+r.size)%len(r.items)] = it
		r.size++
	}
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.size == 0 {
		return zero, false
	}
	it := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	return it, true
}

// Drain returns every buffered item oldest first and empties the ring.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, r.size)
	var zero T
	for i := range out {
		idx := (r.head + i) % len(r.items)
		out[i] = r.items[idx]
		r.items[idx] = zero
	}
	r.head, r.size = 0, 0
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Dropped reports how many items were evicted since creation.
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
