// Package queue provides a bounded, channel-backed FIFO used as the
// handoff medium between a stage's reader, workers, and writer.
package queue

import "context"

// DefaultCapacity is the bounded queue size used when a stage does not
// override it.
const DefaultCapacity = 10000

// Item is a tagged union carried on a Queue: either a payload or the
// end-of-stream sentinel. Payloads are never compared against a reserved
// string value — the tag is a separate bool, so an arbitrary record value
// (including one that happens to equal "done") can never be mistaken for
// end-of-stream.
type Item[T any] struct {
	Payload    T
	IsSentinel bool
}

// Of wraps a payload as a non-sentinel item.
func Of[T any](v T) Item[T] { return Item[T]{Payload: v} }

// Sentinel returns the end-of-stream marker for T.
func Sentinel[T any]() Item[T] { return Item[T]{IsSentinel: true} }

// Queue is a multi-producer/multi-consumer bounded FIFO. Put blocks when
// full, Get blocks when empty. The zero value is not usable; use New.
type Queue[T any] struct {
	ch chan Item[T]
}

// New creates a Queue with the given capacity. A capacity <= 0 uses
// DefaultCapacity.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{ch: make(chan Item[T], capacity)}
}

// Put enqueues an item, blocking while the queue is full. It returns
// ctx.Err() if ctx is canceled before room is available.
func (q *Queue[T]) Put(ctx context.Context, item Item[T]) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PutValue is a convenience wrapper around Put(ctx, Of(v)).
func (q *Queue[T]) PutValue(ctx context.Context, v T) error {
	return q.Put(ctx, Of(v))
}

// PutSentinel is a convenience wrapper around Put(ctx, Sentinel[T]()).
func (q *Queue[T]) PutSentinel(ctx context.Context) error {
	return q.Put(ctx, Sentinel[T]())
}

// Get dequeues the next item, blocking while the queue is empty. The second
// return is false only when ctx is canceled.
func (q *Queue[T]) Get(ctx context.Context) (Item[T], bool) {
	select {
	case item := <-q.ch:
		return item, true
	case <-ctx.Done():
		return Item[T]{}, false
	}
}

// Len returns the number of items currently buffered. Approximate under
// concurrent access; intended for the status monitor only.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue's configured capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
