// Package stack is the entry point of datastack: it owns the storage
// coordinator, the writer context bound to it, and the main context layered
// on the writer, and hands out background and disposable contexts.
//
// Everything is built lazily on first use and cached until Drop. Writes made
// in the main context reach the store through Persist, which saves the main
// context into the writer and then the writer into the store.
package stack

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/roach88/datastack/internal/coordinator"
	"github.com/roach88/datastack/internal/editing"
	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/merge"
	"github.com/roach88/datastack/internal/purge"
	"github.com/roach88/datastack/internal/queue"
	"github.com/roach88/datastack/internal/store"
)

// Context names.
const (
	MainContextName       = "datastack main"
	WriterContextName     = "datastack writer"
	DisposableContextName = "datastack disposable"
	BackgroundContextName = "datastack background"
)

// Configuration errors returned by New.
var (
	ErrModelNameEmpty   = errors.New("model name is empty")
	ErrBundleNil        = errors.New("model bundle is nil")
	ErrUnknownStoreKind = errors.New("unknown store kind")
)

// Config is fixed for a stack's lifetime.
type Config struct {
	StoreKind store.Kind
	ModelName string

	// Bundle holds <ModelName>.cue or <ModelName>.yaml and optionally a
	// <ModelName>.sqlite seed.
	Bundle fs.FS

	// StoreName names the durable file; ModelName is used when empty.
	StoreName string

	// Dir overrides the platform directory for durable stores.
	Dir string

	// Restricted keeps durable stores in the cache directory.
	Restricted bool

	// Driver is the database/sql driver: store.DriverCGO (default) or
	// store.DriverPure.
	Driver string

	// DisableAutoMigrate refuses to open stores whose schema or model
	// changed instead of upgrading them.
	DisableAutoMigrate bool

	// BatchDelete makes PurgeEntities delete at the store in one statement
	// instead of marking objects deleted in a context.
	BatchDelete bool
}

func (c Config) validate() error {
	if c.ModelName == "" {
		return ErrModelNameEmpty
	}
	if c.Bundle == nil {
		return ErrBundleNil
	}
	if c.StoreKind != store.InMemory && c.StoreKind != store.Durable {
		return fmt.Errorf("%w: %d", ErrUnknownStoreKind, int(c.StoreKind))
	}
	return nil
}

func (c Config) coordinator() coordinator.Config {
	return coordinator.Config{
		Kind:        c.StoreKind,
		ModelName:   c.ModelName,
		Bundle:      c.Bundle,
		StoreName:   c.StoreName,
		Dir:         c.Dir,
		Restricted:  c.Restricted,
		Driver:      c.Driver,
		AutoMigrate: !c.DisableAutoMigrate,
	}
}

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets the logger for the stack and every context it creates.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Stack) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFatalHandler replaces the handler for unrecoverable coordinator
// failures. The default logs the error and exits the process with status 1.
// A handler that returns makes the failing accessor panic with the error.
func WithFatalHandler(fn func(error)) Option {
	return func(s *Stack) {
		s.fatal = fn
	}
}

// WithIDGenerator sets the identity source for inserts in every context.
// Defaults to UUIDv7.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(s *Stack) {
		s.ids = g
	}
}

// state is everything Drop discards.
type state struct {
	coord  *coordinator.Coordinator
	writer *editing.Context
	main   *editing.Context
}

// Stack owns one coordinator, one writer context, and one main context.
//
// Thread-safety: all methods are safe for concurrent use. Methods that
// block on a context's queue document it and must not be called from
// that queue.
type Stack struct {
	cfg    Config
	logger *slog.Logger
	fatal  func(error)
	ids    ir.IDGenerator

	mainQueue *queue.Queue
	registry  *merge.Registry
	purger    *purge.Purger

	mu         sync.Mutex
	st         state
	disposable *coordinator.Coordinator
}

// New validates cfg and returns a stack. Nothing is opened until first use.
func New(cfg Config, opts ...Option) (*Stack, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Stack{
		cfg:       cfg,
		logger:    slog.Default(),
		mainQueue: queue.New(MainContextName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fatal == nil {
		s.fatal = exitOnFatal(s.logger)
	}
	s.registry = merge.NewRegistry(s.logger)
	s.purger = purge.New(cfg.BatchDelete, s.logger)
	return s, nil
}

func exitOnFatal(logger *slog.Logger) func(error) {
	return func(err error) {
		logger.Error("datastack cannot continue", "error", err)
		os.Exit(1)
	}
}

// Config returns the configuration the stack was created with.
func (s *Stack) Config() Config {
	return s.cfg
}

// MainQueue is the queue of every MainConfined context and the queue
// Persist completions are delivered on.
func (s *Stack) MainQueue() *queue.Queue {
	return s.mainQueue
}

// Registry holds the stack's merge subscriptions.
func (s *Stack) Registry() *merge.Registry {
	return s.registry
}

// Location is the durable store's file path, or "" for an in-memory stack.
// It does not open anything.
func (s *Stack) Location() (string, error) {
	return s.cfg.coordinator().Location()
}

// Coordinator returns the cached coordinator, opening it if needed.
// Unlike the context accessors it returns open failures instead of
// routing them to the fatal handler.
func (s *Stack) Coordinator() (*coordinator.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return nil, err
	}
	return s.st.coord, nil
}

// Materialized reports whether the coordinator is currently open.
func (s *Stack) Materialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.coord != nil
}

// MainContext returns the cached main-queue context whose parent is the
// writer context.
func (s *Stack) MainContext() *editing.Context {
	return s.mustContexts().main
}

// WriterContext returns the cached background context bound to the
// coordinator's store.
func (s *Stack) WriterContext() *editing.Context {
	return s.mustContexts().writer
}

func (s *Stack) mustContexts() state {
	st, err := s.contexts()
	if err != nil {
		s.fatal(err)
		panic(err)
	}
	return st
}

// contexts builds whatever is missing of coordinator, writer, and main.
func (s *Stack) contexts() (state, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return state{}, err
	}
	if s.st.writer == nil {
		s.st.writer = editing.NewRoot(s.st.coord.Store(), s.st.coord.Model(), queue.New(WriterContextName),
			s.contextOptions(WriterContextName, editing.BackgroundConfined)...)
	}
	if s.st.main == nil {
		s.st.main = editing.NewChild(s.st.writer, s.mainQueue,
			s.contextOptions(MainContextName, editing.MainConfined)...)
	}
	return s.st, nil
}

func (s *Stack) openLocked() error {
	if s.st.coord != nil {
		return nil
	}
	c, err := coordinator.Open(s.cfg.coordinator(), coordinator.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.st.coord = c
	s.logger.Debug("coordinator opened",
		"model", s.cfg.ModelName,
		"kind", s.cfg.StoreKind.String(),
		"location", c.Location(),
	)
	return nil
}

func (s *Stack) contextOptions(name string, mode editing.ConcurrencyMode) []editing.Option {
	opts := []editing.Option{
		editing.WithName(name),
		editing.WithMode(mode),
		editing.WithLogger(s.logger),
	}
	if s.ids != nil {
		opts = append(opts, editing.WithIDGenerator(s.ids))
	}
	return opts
}

// ContextOption configures NewBackgroundContext.
type ContextOption func(*contextOptions)

type contextOptions struct {
	name   string
	parent *editing.Context
	merge  bool
}

// WithName labels the context and its queue.
func WithName(name string) ContextOption {
	return func(o *contextOptions) {
		o.name = name
	}
}

// WithParent makes saves land in parent instead of the store.
func WithParent(parent *editing.Context) ContextOption {
	return func(o *contextOptions) {
		o.parent = parent
	}
}

// WithMergeChanges merges every save of the context into the main context.
func WithMergeChanges(on bool) ContextOption {
	return func(o *contextOptions) {
		o.merge = on
	}
}

// NewBackgroundContext returns a context on its own queue, bound to the
// given parent or, by default, directly to the coordinator's store.
func (s *Stack) NewBackgroundContext(opts ...ContextOption) *editing.Context {
	o := contextOptions{name: BackgroundContextName}
	for _, opt := range opts {
		opt(&o)
	}

	q := queue.New(o.name)
	ctxOpts := s.contextOptions(o.name, editing.BackgroundConfined)

	// One snapshot, so a concurrent Drop cannot split store and main.
	var st state
	if o.parent == nil || o.merge {
		st = s.mustContexts()
	}
	var c *editing.Context
	if o.parent != nil {
		c = editing.NewChild(o.parent, q, ctxOpts...)
	} else {
		c = editing.NewRoot(st.coord.Store(), st.coord.Model(), q, ctxOpts...)
	}

	if o.merge {
		s.registry.Link(c, st.main)
	}
	return c
}

// PerformInBackground runs op once on a new background context's queue and
// returns immediately.
func (s *Stack) PerformInBackground(op func(*editing.Context)) {
	c := s.NewBackgroundContext()
	c.Perform(func() {
		op(c)
	})
}

// NewDisposableContext returns a main-queue context over a private
// in-memory store. Its changes are discarded whenever it saves, so nothing
// it holds is ever written anywhere.
func (s *Stack) NewDisposableContext() *editing.Context {
	dc, err := s.disposableCoordinator()
	if err != nil {
		s.fatal(err)
		panic(err)
	}

	c := editing.NewRoot(dc.Store(), dc.Model(), s.mainQueue,
		s.contextOptions(DisposableContextName, editing.MainConfined)...)
	c.ObserveWillSave(func(c *editing.Context) {
		c.Reset()
	})
	return c
}

func (s *Stack) disposableCoordinator() (*coordinator.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposable == nil {
		dc, err := coordinator.OpenDisposable(s.cfg.Bundle, s.cfg.ModelName, coordinator.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.disposable = dc
	}
	return s.disposable, nil
}

// Release unlinks c's merge subscriptions and closes its queue. Tasks
// already queued still run. The main queue is never closed.
func (s *Stack) Release(c *editing.Context) {
	n := s.registry.Unlink(c)
	if c.Queue() != s.mainQueue {
		c.Queue().Close()
	}
	s.logger.Debug("context released", "context", c.Name(), "subscriptions", n)
}

// Close cancels every merge subscription and closes the open stores.
// The stack must not be used afterwards.
func (s *Stack) Close() error {
	s.registry.Close()

	s.mu.Lock()
	coord, disposable := s.st.coord, s.disposable
	s.st = state{}
	s.disposable = nil
	s.mu.Unlock()

	var errs []error
	if coord != nil {
		errs = append(errs, coord.Close())
	}
	if disposable != nil {
		errs = append(errs, disposable.Close())
	}
	return errors.Join(errs...)
}
