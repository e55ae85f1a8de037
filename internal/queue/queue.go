// Package queue provides the serial execution queues editing contexts are
// confined to.
//
// A Queue runs tasks one at a time in submission order. It owns no goroutine
// while idle: the first task submitted to an empty queue spawns a worker,
// and the worker exits once the queue drains. Queues therefore never need to
// be closed to avoid leaks; Close only stops new submissions.
package queue

import (
	"sync"
)

// Task is a unit of work run on a queue.
type Task func()

// Queue is a thread-safe serial FIFO executor.
//
// The backlog is unbounded so a task may enqueue follow-up work on its own
// queue without blocking.
type Queue struct {
	name string

	mu      sync.Mutex
	tasks   []Task
	running bool // a worker goroutine is draining tasks
	closed  bool
}

// New creates an empty queue. The name appears in logs only.
func New(name string) *Queue {
	return &Queue{
		name:  name,
		tasks: make([]Task, 0, 16),
	}
}

// Name returns the label given to New.
func (q *Queue) Name() string {
	return q.name
}

// Async appends a task to the back of the queue and returns immediately.
// Thread-safe: may be called from any goroutine, including a task on q.
// Returns false if the queue is closed.
func (q *Queue) Async(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, task)
	if !q.running {
		q.running = true
		go q.drain()
	}
	return true
}

// Sync runs task on the queue and blocks until it has finished.
// Returns false without running task if the queue is closed.
//
// Sync must not be called from a task running on q: the caller would wait
// for itself.
func (q *Queue) Sync(task Task) bool {
	done := make(chan struct{})
	if !q.Async(func() {
		defer close(done)
		task()
	}) {
		return false
	}
	<-done
	return true
}

// drain runs tasks until the backlog is empty, then exits.
func (q *Queue) drain() {
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		task()
	}
}

// next pops the front task, or clears running and reports false when the
// backlog is empty. Both happen under one lock so Async never sees a worker
// that is about to exit.
func (q *Queue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		q.running = false
		return nil, false
	}

	task := q.tasks[0]
	// Nil out the slot so the closure can be collected.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return task, true
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close rejects further submissions. Tasks already queued still run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
