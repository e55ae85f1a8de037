// Package scheduler turns a context's "run on my queue" primitive into a
// schedulable unit with pre-execution cancellation.
//
// Cancellation is cooperative and non-preemptive: disposing a handle before
// its action starts suppresses the action; disposing it later has no effect.
package scheduler

import (
	"sync/atomic"

	"github.com/roach88/datastack/internal/editing"
)

// Disposable cancels a scheduled action.
type Disposable interface {
	Dispose()
	IsDisposed() bool
}

// SimpleDisposable is a one-way disposed flag.
type SimpleDisposable struct {
	disposed atomic.Bool
}

// Dispose sets the flag. Calling it again has no effect.
func (d *SimpleDisposable) Dispose() {
	d.disposed.Store(true)
}

func (d *SimpleDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// Scheduler runs actions on one context's queue.
type Scheduler struct {
	ctx *editing.Context
}

// New binds a scheduler to c.
func New(c *editing.Context) *Scheduler {
	return &Scheduler{ctx: c}
}

// Context returns the bound context.
func (s *Scheduler) Context() *editing.Context {
	return s.ctx
}

// Schedule enqueues action on the context's queue and returns immediately.
// The handle is checked once, right before action would run. If the queue is
// closed the action never runs and the handle comes back disposed.
func (s *Scheduler) Schedule(action func()) Disposable {
	d := &SimpleDisposable{}
	if !s.ctx.Perform(func() {
		if d.IsDisposed() {
			return
		}
		action()
	}) {
		d.Dispose()
	}
	return d
}
