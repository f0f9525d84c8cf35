// Package broadcast is a single-producer, many-consumer channel. Every
// receiver gets its own bounded queue; a receiver that falls behind loses its
// oldest messages and is told how many it missed, so the producer is never
// slowed down by a slow consumer.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity is the per-receiver queue length used when New is given a non-positive capacity.
const DefaultCapacity = 32

// ErrClosed is returned by Recv once the channel is closed and the receiver's queue is drained.
var ErrClosed = errors.New("broadcast channel closed")

// LagError reports messages a receiver lost because its queue was full.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("receiver lagged behind by %d messages", e.Missed)
}

// Channel fans every published value out to all current receivers.
type Channel[T any] struct {
	mu        sync.Mutex
	capacity  int
	receivers map[*Receiver[T]]struct{}
	closed    bool
}

// New creates a channel whose receivers buffer at most capacity messages.
func New[T any](capacity int) *Channel[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel[T]{
		capacity:  capacity,
		receivers: make(map[*Receiver[T]]struct{}),
	}
}

// Subscribe registers a receiver that sees every value published from now on.
// Subscribing to a closed channel yields a receiver that reports ErrClosed.
func (c *Channel[T]) Subscribe() *Receiver[T] {
	r := &Receiver[T]{
		parent: c,
		queue:  make([]T, 0, c.capacity),
		limit:  c.capacity,
		notify: make(chan struct{}, 1),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		r.closed = true
		return r
	}
	c.receivers[r] = struct{}{}
	return r
}

// Publish queues v for every current receiver and returns how many there
// were. It never blocks; zero receivers is not an error.
func (c *Channel[T]) Publish(v T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	for r := range c.receivers {
		r.push(v)
	}
	return len(c.receivers)
}

// ReceiverCount returns the number of subscribed receivers.
func (c *Channel[T]) ReceiverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.receivers)
}

// Close marks the channel closed. Receivers drain what they already hold and then get ErrClosed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for r := range c.receivers {
		r.close()
	}
	c.receivers = make(map[*Receiver[T]]struct{})
}

func (c *Channel[T]) remove(r *Receiver[T]) {
	c.mu.Lock()
	delete(c.receivers, r)
	c.mu.Unlock()
}

// Receiver is one consumer's view of a Channel. A receiver is meant to be
// read by a single goroutine.
type Receiver[T any] struct {
	parent *Channel[T]

	mu     sync.Mutex
	queue  []T
	limit  int
	missed uint64
	closed bool
	notify chan struct{}
}

func (r *Receiver[T]) push(v T) {
	r.mu.Lock()
	if len(r.queue) == r.limit {
		var zero T
		r.queue[0] = zero
		r.queue = r.queue[1:]
		r.missed++
	}
	r.queue = append(r.queue, v)
	r.mu.Unlock()
	r.wake()
}

func (r *Receiver[T]) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wake()
}

func (r *Receiver[T]) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Recv blocks until a value is available. A pending lag is reported first as
// *LagError; the next call resumes with the oldest value still queued.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, ok, err := r.TryRecv()
		if ok || err != nil {
			return v, err
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-r.notify:
		}
	}
}

// TryRecv is the non-blocking form of Recv. ok is false when nothing is queued.
func (r *Receiver[T]) TryRecv() (v T, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missed > 0 {
		missed := r.missed
		r.missed = 0
		return v, false, &LagError{Missed: missed}
	}
	if len(r.queue) > 0 {
		v = r.queue[0]
		var zero T
		r.queue[0] = zero
		r.queue = r.queue[1:]
		return v, true, nil
	}
	if r.closed {
		return v, false, ErrClosed
	}
	return v, false, nil
}

// Close unsubscribes the receiver. Values already queued can still be read.
func (r *Receiver[T]) Close() {
	r.parent.remove(r)
	r.close()
}
