// Package editing implements confined editing contexts: units of object
// graph state bound to one serial queue, arranged in a tree whose root is
// bound to a store.
//
// # Confinement
//
// A Context's object graph may only be touched from tasks running on its
// queue. Use Perform or PerformAndWait to get there; every other method on
// Context and Object assumes the caller already is. Contexts on different
// queues run in parallel.
//
// # Binding
//
// Every Context is bound to exactly one of a parent Context (NewChild) or a
// store (NewRoot), fixed for its lifetime. Saving a child pushes its pending
// changes into the parent's graph as the parent's own pending changes;
// saving a root commits them to the store.
//
// # Conflict policy
//
// MergeChanges applies another context's committed changes with
// incoming-property-wins: for each attribute the other context committed,
// its value replaces the local one, including unsaved local edits.
// Attributes it did not touch keep their local edits.
package editing

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/queue"
	"github.com/roach88/datastack/internal/schema"
	"github.com/roach88/datastack/internal/store"
)

// ConcurrencyMode records which kind of queue a context is confined to.
type ConcurrencyMode int

const (
	// MainConfined contexts share the stack's main queue.
	MainConfined ConcurrencyMode = iota
	// BackgroundConfined contexts own a private queue.
	BackgroundConfined
)

func (m ConcurrencyMode) String() string {
	switch m {
	case MainConfined:
		return "main"
	case BackgroundConfined:
		return "background"
	default:
		return fmt.Sprintf("ConcurrencyMode(%d)", int(m))
	}
}

// MergePolicy selects how MergeChanges resolves conflicting attributes.
type MergePolicy int

const (
	// IncomingPropertyWins lets merged values replace local ones per
	// attribute. It is the only policy.
	IncomingPropertyWins MergePolicy = iota
)

func (p MergePolicy) String() string {
	if p == IncomingPropertyWins {
		return "incoming-property-wins"
	}
	return fmt.Sprintf("MergePolicy(%d)", int(p))
}

// Context is a confined unit of editing state.
//
// Contexts have no undo manager; changes are tracked only as pending sets
// until Save, Rollback, or Reset.
type Context struct {
	name   string
	mode   ConcurrencyMode
	q      *queue.Queue
	model  *schema.Model
	ids    ir.IDGenerator
	logger *slog.Logger

	// Exactly one of parent and store is set.
	parent *Context
	store  store.Store

	// Confined state: only touched on q.
	objects  map[ir.ObjectID]*Object
	inserted map[ir.ObjectID]*Object
	updated  map[ir.ObjectID]*Object
	deleted  map[ir.ObjectID]*Object

	obsMu     sync.Mutex
	nextObsID int
	willSave  []willSaveObserver
	didSave   []didSaveObserver
}

// Option configures a Context.
type Option func(*Context)

// WithName labels the context in logs.
func WithName(name string) Option {
	return func(c *Context) {
		c.name = name
	}
}

// WithMode sets the concurrency mode. Defaults to BackgroundConfined.
func WithMode(mode ConcurrencyMode) Option {
	return func(c *Context) {
		c.mode = mode
	}
}

// WithIDGenerator sets the identity source for inserts.
// Children inherit their parent's generator unless overridden.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(c *Context) {
		c.ids = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		c.logger = l
	}
}

// NewRoot creates a context bound directly to a store.
// Panics if st, model, or q is nil.
func NewRoot(st store.Store, model *schema.Model, q *queue.Queue, opts ...Option) *Context {
	if st == nil || model == nil || q == nil {
		panic("editing: NewRoot requires a store, a model, and a queue")
	}
	c := newContext(q, model, ir.UUIDv7Generator{}, slog.Default())
	c.store = st
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewChild creates a context whose saves land in parent.
// Panics if parent or q is nil.
func NewChild(parent *Context, q *queue.Queue, opts ...Option) *Context {
	if parent == nil || q == nil {
		panic("editing: NewChild requires a parent and a queue")
	}
	c := newContext(q, parent.model, parent.ids, parent.logger)
	c.parent = parent
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newContext(q *queue.Queue, model *schema.Model, ids ir.IDGenerator, logger *slog.Logger) *Context {
	return &Context{
		name:     q.Name(),
		mode:     BackgroundConfined,
		q:        q,
		model:    model,
		ids:      ids,
		logger:   logger,
		objects:  make(map[ir.ObjectID]*Object),
		inserted: make(map[ir.ObjectID]*Object),
		updated:  make(map[ir.ObjectID]*Object),
		deleted:  make(map[ir.ObjectID]*Object),
	}
}

func (c *Context) Name() string                { return c.name }
func (c *Context) Mode() ConcurrencyMode       { return c.mode }
func (c *Context) MergePolicy() MergePolicy    { return IncomingPropertyWins }
func (c *Context) Queue() *queue.Queue         { return c.q }
func (c *Context) Model() *schema.Model        { return c.model }
func (c *Context) Parent() *Context            { return c.parent }
func (c *Context) Store() store.Store          { return c.store }
func (c *Context) IDGenerator() ir.IDGenerator { return c.ids }

// RootStore follows parents up to the store the tree is bound to.
func (c *Context) RootStore() store.Store {
	for c.parent != nil {
		c = c.parent
	}
	return c.store
}

// Perform runs fn on the context's queue and returns immediately.
// Returns false if the queue is closed.
func (c *Context) Perform(fn func()) bool {
	return c.q.Async(fn)
}

// PerformAndWait runs fn on the context's queue and blocks until it has
// finished. Must not be called from the context's own queue.
func (c *Context) PerformAndWait(fn func()) bool {
	return c.q.Sync(fn)
}

// onParentQueue runs fn on the parent's queue, directly when the parent
// shares the caller's queue.
func (c *Context) onParentQueue(fn func()) error {
	if c.parent.q == c.q {
		fn()
		return nil
	}
	if !c.parent.q.Sync(fn) {
		return fmt.Errorf("parent %q: %w", c.parent.name, ErrQueueClosed)
	}
	return nil
}

// PendingCounts is the number of unsaved changes by kind.
type PendingCounts struct {
	Inserted int
	Updated  int
	Deleted  int
}

// Total sums every kind.
func (p PendingCounts) Total() int {
	return p.Inserted + p.Updated + p.Deleted
}

// PendingCounts reports unsaved changes.
func (c *Context) PendingCounts() PendingCounts {
	return PendingCounts{
		Inserted: len(c.inserted),
		Updated:  len(c.updated),
		Deleted:  len(c.deleted),
	}
}

// HasChanges reports whether anything is waiting to be saved.
func (c *Context) HasChanges() bool {
	return len(c.inserted) > 0 || len(c.updated) > 0 || len(c.deleted) > 0
}

// RegisteredCount is the number of objects in the context's graph.
func (c *Context) RegisteredCount() int {
	return len(c.objects)
}
