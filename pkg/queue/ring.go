// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package queue provides the bounded FIFO used to hand inbound requests from
// I/O goroutines to application logic. Producers never block: when the queue
// is full the oldest item is discarded, so consumers always see the most
// recent items.
package queue

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the capacity of inbound request queues
const DefaultCapacity = 16

// ErrClosed is returned by Poll once the queue is closed and drained
var ErrClosed = errors.New("queue closed")

// Ring is a fixed-capacity drop-oldest FIFO. Safe for concurrent use.
type Ring[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	size    int
	dropped uint64
	closed  bool

	notify chan struct{} // holds at most one wakeup
	done   chan struct{} // closed by Close
}

// New creates a ring with the given capacity; values <= 0 select DefaultCapacity
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		items:  make([]T, capacity),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Offer appends v, discarding the oldest item if the ring is full.
// Returns true if an item was discarded. Offers after Close are ignored.
func (r *Ring[T]) Offer(v T) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}

	dropped := false
	if r.size == len(r.items) {
		var zero T
		r.items[r.head] = zero
		r.head = (r.head + 1) % len(r.items)
		r.size--
		r.dropped++
		dropped = true
	}
	r.items[(r.head+r.size)%len(r.items)] = v
	r.size++
	r.mu.Unlock()

	r.wake()
	return dropped
}

func (r *Ring[T]) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// pop removes the head item. Caller holds mu.
func (r *Ring[T]) pop() T {
	var zero T
	v := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	return v
}

// TryPoll removes and returns the oldest item without blocking
func (r *Ring[T]) TryPoll() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.pop(), true
}

// Poll blocks until an item is available, the context is done, or the queue is
// closed and empty.
func (r *Ring[T]) Poll(ctx context.Context) (T, error) {
	for {
		r.mu.Lock()
		if r.size > 0 {
			v := r.pop()
			more := r.size > 0
			r.mu.Unlock()
			if more {
				r.wake()
			}
			return v, nil
		}
		closed := r.closed
		r.mu.Unlock()

		var zero T
		if closed {
			return zero, ErrClosed
		}

		select {
		case <-r.notify:
		case <-r.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Drain removes and returns all queued items, oldest first
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.size)
	for r.size > 0 {
		out = append(out, r.pop())
	}
	return out
}

// Close stops accepting items and wakes blocked consumers.
// Items already queued can still be polled.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// Len returns the number of queued items
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Dropped returns how many items were discarded on overflow
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
