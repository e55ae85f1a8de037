// Package reactive composes single-value asynchronous computations and
// hops them onto editing context queues.
//
// A Producer is cold: nothing runs until Start. It terminates exactly once
// with a value, an error, or empty completion. Operators run their function
// wherever the upstream delivered; ObserveOn and the context helpers in
// context.go move delivery onto a context's queue, so a chain built from
// Of(c) runs each step on c's queue, strictly in chain order.
package reactive

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/datastack/internal/scheduler"
)

// ErrEmpty is returned by Await when a producer completes without a value.
var ErrEmpty = errors.New("producer completed without a value")

// Event is a producer's terminal outcome. Exactly one of Value (with Err
// nil and Empty false), Err, or Empty is meaningful.
type Event[T any] struct {
	Value T
	Err   error
	Empty bool
}

func valueEvent[T any](v T) Event[T]       { return Event[T]{Value: v} }
func errorEvent[T any](err error) Event[T] { return Event[T]{Err: err} }
func emptyEvent[T any]() Event[T]          { return Event[T]{Empty: true} }

// runFunc starts the computation. life is disposed when the consumer loses
// interest; emit must be called at most once.
type runFunc[T any] func(ctx context.Context, life scheduler.Disposable, emit func(Event[T]))

// Producer is a cold single-value asynchronous computation.
type Producer[T any] struct {
	run runFunc[T]
}

// New wraps fn as a producer. fn calls emit exactly once, from any goroutine.
func New[T any](fn func(ctx context.Context, emit func(Event[T]))) Producer[T] {
	return Producer[T]{run: func(ctx context.Context, _ scheduler.Disposable, emit func(Event[T])) {
		fn(ctx, emit)
	}}
}

// Just produces v on the starting goroutine.
func Just[T any](v T) Producer[T] {
	return Producer[T]{run: func(_ context.Context, _ scheduler.Disposable, emit func(Event[T])) {
		emit(valueEvent(v))
	}}
}

// Fail produces err.
func Fail[T any](err error) Producer[T] {
	return Producer[T]{run: func(_ context.Context, _ scheduler.Disposable, emit func(Event[T])) {
		emit(errorEvent[T](err))
	}}
}

// Empty completes without a value.
func Empty[T any]() Producer[T] {
	return Producer[T]{run: func(_ context.Context, _ scheduler.Disposable, emit func(Event[T])) {
		emit(emptyEvent[T]())
	}}
}

// ObserveOn delivers the outcome through s. Delivery is skipped if the
// consumer disposed first; a cancelled ctx turns the outcome into ctx's
// error.
func (p Producer[T]) ObserveOn(s *scheduler.Scheduler) Producer[T] {
	return Producer[T]{run: func(ctx context.Context, life scheduler.Disposable, emit func(Event[T])) {
		p.run(ctx, life, func(e Event[T]) {
			d := s.Schedule(func() {
				if life.IsDisposed() {
					return
				}
				if err := ctx.Err(); err != nil && e.Err == nil {
					emit(errorEvent[T](err))
					return
				}
				emit(e)
			})
			if d.IsDisposed() {
				// The context's queue is closed.
				emit(errorEvent[T](errQueueClosed(s)))
			}
		})
	}}
}

// Start runs the producer and calls fn with its outcome. fn is called at
// most once, and never after the returned handle is disposed.
func (p Producer[T]) Start(ctx context.Context, fn func(Event[T])) scheduler.Disposable {
	life := &scheduler.SimpleDisposable{}
	var once sync.Once
	p.run(ctx, life, func(e Event[T]) {
		once.Do(func() {
			if !life.IsDisposed() {
				fn(e)
			}
		})
	})
	return life
}

// Await starts the producer and blocks for its outcome. Empty completion
// returns ErrEmpty. If ctx ends first the producer is disposed and ctx's
// error returned.
//
// Await must not be called from a queue the producer delivers on.
func (p Producer[T]) Await(ctx context.Context) (T, error) {
	ch := make(chan Event[T], 1)
	d := p.Start(ctx, func(e Event[T]) { ch <- e })

	var zero T
	select {
	case e := <-ch:
		switch {
		case e.Err != nil:
			return zero, e.Err
		case e.Empty:
			return zero, ErrEmpty
		default:
			return e.Value, nil
		}
	case <-ctx.Done():
		d.Dispose()
		return zero, ctx.Err()
	}
}

// Map transforms the value.
func Map[T, U any](p Producer[T], fn func(T) U) Producer[U] {
	return AttemptMap(p, func(v T) (U, error) { return fn(v), nil })
}

// AttemptMap transforms the value; a non-nil error fails the producer.
func AttemptMap[T, U any](p Producer[T], fn func(T) (U, error)) Producer[U] {
	return Producer[U]{run: func(ctx context.Context, life scheduler.Disposable, emit func(Event[U])) {
		p.run(ctx, life, func(e Event[T]) {
			switch {
			case e.Err != nil:
				emit(errorEvent[U](e.Err))
			case e.Empty:
				emit(emptyEvent[U]())
			default:
				u, err := fn(e.Value)
				if err != nil {
					emit(errorEvent[U](err))
					return
				}
				emit(valueEvent(u))
			}
		})
	}}
}

// FlatMap continues with the producer fn returns for the value.
func FlatMap[T, U any](p Producer[T], fn func(T) Producer[U]) Producer[U] {
	return Producer[U]{run: func(ctx context.Context, life scheduler.Disposable, emit func(Event[U])) {
		p.run(ctx, life, func(e Event[T]) {
			switch {
			case e.Err != nil:
				emit(errorEvent[U](e.Err))
			case e.Empty:
				emit(emptyEvent[U]())
			case life.IsDisposed():
			default:
				fn(e.Value).run(ctx, life, emit)
			}
		})
	}}
}

// FlatMapError replaces a failure with the producer fn returns for it.
func FlatMapError[T any](p Producer[T], fn func(error) Producer[T]) Producer[T] {
	return Producer[T]{run: func(ctx context.Context, life scheduler.Disposable, emit func(Event[T])) {
		p.run(ctx, life, func(e Event[T]) {
			if e.Err == nil {
				emit(e)
				return
			}
			if life.IsDisposed() {
				return
			}
			fn(e.Err).run(ctx, life, emit)
		})
	}}
}
