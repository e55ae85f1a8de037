package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/datastack/internal/ir"
)

var (
	// ErrUnknownEntity is returned for entity names the model does not declare.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotFound is returned when an object id is not in the store.
	ErrNotFound = errors.New("object not found")
	// ErrConflict is returned when an insert reuses an existing id.
	ErrConflict = errors.New("object already exists")
	// ErrModelMismatch is returned when a durable store was created with a
	// different model and auto-migration is off.
	ErrModelMismatch = errors.New("store was created with a different model")
	// ErrMigrationRequired is returned when the store schema is older than
	// this build and auto-migration is off.
	ErrMigrationRequired = errors.New("store schema requires migration")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")
)

// Kind selects the backing store implementation.
type Kind int

const (
	InMemory Kind = iota
	Durable
)

func (k Kind) String() string {
	switch k {
	case InMemory:
		return "in-memory"
	case Durable:
		return "durable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps "memory"/"in-memory" and "durable"/"sqlite" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "memory", "in-memory":
		return InMemory, nil
	case "durable", "sqlite":
		return Durable, nil
	default:
		return 0, fmt.Errorf("unknown store kind %q", s)
	}
}

// FetchRequest selects every object of one entity.
type FetchRequest struct {
	Entity string
	// IDsOnly skips attribute values: results are faults (nil Attrs).
	IDsOnly bool
}

// Store is a transactional object store.
//
// Implementations are safe for concurrent use.
type Store interface {
	Kind() Kind
	// Path is the backing file, or "" for in-memory stores.
	Path() string
	Fetch(ctx context.Context, req FetchRequest) ([]ir.Snapshot, error)
	Get(ctx context.Context, id ir.ObjectID) (ir.Snapshot, error)
	// Apply commits a change set atomically.
	Apply(ctx context.Context, cs ir.ChangeSet) error
	// BatchDelete removes every object of an entity without loading it and
	// returns the number removed.
	BatchDelete(ctx context.Context, entity string) (int, error)
	Close() error
}

// mergeAttrs returns base with every attribute of incoming written over it.
func mergeAttrs(base, incoming ir.Attrs) ir.Attrs {
	out := base.Clone()
	if out == nil {
		out = make(ir.Attrs, len(incoming))
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

func objectError(op string, id ir.ObjectID, err error) error {
	return fmt.Errorf("%s %s: %w", op, id, err)
}

func entityError(op, entity string, err error) error {
	return fmt.Errorf("%s %s: %w", op, entity, err)
}
