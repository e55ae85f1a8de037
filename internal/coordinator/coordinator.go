// Package coordinator owns the model and the backing store every context
// tree of a stack is bound to.
//
// Open resolves the model from a bundle, attaches an in-memory or durable
// store, seeds a missing durable file from the bundle, and recovers from an
// unreadable file by deleting it and attaching once more. Failures that
// leave the stack without a store are returned as *FatalError.
package coordinator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/datastack/internal/paths"
	"github.com/roach88/datastack/internal/schema"
	"github.com/roach88/datastack/internal/store"
)

// Config selects the model and where its store lives.
type Config struct {
	Kind      store.Kind
	ModelName string
	Bundle    fs.FS

	// StoreName names the durable file; ModelName is used when empty.
	StoreName string

	// Dir overrides the platform directory for durable stores.
	Dir string

	// Restricted keeps durable stores in the cache directory.
	Restricted bool

	// Driver is the database/sql driver; store.DriverCGO when empty.
	Driver string

	AutoMigrate bool
}

// FileName is the durable store's file name: <StoreName|ModelName>.sqlite.
func (c Config) FileName() string {
	name := c.StoreName
	if name == "" {
		name = c.ModelName
	}
	return name + schema.ExtSeed
}

// Location is where a durable store lives, or "" for an in-memory one.
// It does not touch the filesystem.
func (c Config) Location() (string, error) {
	if c.Kind != store.Durable {
		return "", nil
	}
	dir, err := paths.ResolveStoreDir(c.Dir, c.Restricted)
	if err != nil {
		return "", fmt.Errorf("resolve store directory: %w", err)
	}
	return filepath.Join(dir, c.FileName()), nil
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for recovery and advisory failures.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Coordinator binds a model to an attached store.
type Coordinator struct {
	model    *schema.Model
	store    store.Store
	location string
}

// Open resolves the model and attaches the configured store.
func Open(cfg Config, opts ...Option) (*Coordinator, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	model, err := schema.Resolve(cfg.Bundle, cfg.ModelName)
	if err != nil {
		return nil, &FatalError{Stage: StageSchema, Model: cfg.ModelName, Err: err}
	}

	switch cfg.Kind {
	case store.InMemory:
		return &Coordinator{model: model, store: store.NewMemoryStore(model)}, nil
	case store.Durable:
		return openDurable(cfg, model, o.logger)
	default:
		return nil, &FatalError{
			Stage: StageMemoryAttach,
			Model: cfg.ModelName,
			Err:   fmt.Errorf("unknown store kind %d", int(cfg.Kind)),
		}
	}
}

// OpenDisposable attaches a private in-memory store for modelName. Nothing
// written to it outlives the coordinator.
func OpenDisposable(bundle fs.FS, modelName string, opts ...Option) (*Coordinator, error) {
	return Open(Config{Kind: store.InMemory, ModelName: modelName, Bundle: bundle}, opts...)
}

func openDurable(cfg Config, model *schema.Model, logger *slog.Logger) (*Coordinator, error) {
	fatal := func(path string, err error) error {
		return &FatalError{Stage: StageDurableAttach, Model: cfg.ModelName, Path: path, Err: err}
	}

	path, err := cfg.Location()
	if err != nil {
		return nil, fatal("", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fatal(path, fmt.Errorf("create store directory: %w", err))
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if seed, ok := schema.SeedPath(cfg.Bundle, cfg.ModelName); ok {
			if err := copySeed(cfg.Bundle, seed, path); err != nil {
				logger.Warn("could not copy seed store", "seed", seed, "path", path, "error", err)
			} else {
				logger.Info("seeded store", "seed", seed, "path", path)
			}
		}
	}

	storeOpts := []store.Option{store.WithAutoMigrate(cfg.AutoMigrate)}
	if cfg.Driver != "" {
		storeOpts = append(storeOpts, store.WithDriver(cfg.Driver))
	}

	st, err := store.OpenSQLite(path, model, storeOpts...)
	if err != nil {
		logger.Warn("store unreadable, deleting and recreating", "path", path, "error", err)
		if rmErr := RemoveFiles(path); rmErr != nil {
			return nil, fatal(path, fmt.Errorf("remove unreadable store: %w", rmErr))
		}
		st, err = store.OpenSQLite(path, model, storeOpts...)
		if err != nil {
			return nil, fatal(path, err)
		}
		logger.Warn("store recreated empty", "path", path)
	}

	if err := excludeFromBackup(path); err != nil {
		logger.Warn("could not exclude store from backups", "path", path, "error", err)
	}

	return &Coordinator{model: model, store: st, location: path}, nil
}

// Model returns the resolved model.
func (c *Coordinator) Model() *schema.Model {
	return c.model
}

// Store returns the attached store.
func (c *Coordinator) Store() store.Store {
	return c.store
}

// Location is the durable file path, or "" for an in-memory store.
func (c *Coordinator) Location() string {
	return c.location
}

// Close detaches the store.
func (c *Coordinator) Close() error {
	return c.store.Close()
}
