package testutil

import "github.com/roach88/datastack/internal/ir"

// FixedIDGenerator returns the same object id every time.
//
// Two inserts through it collide, which is how tests provoke
// store.ErrConflict on purpose. For distinct deterministic ids use
// ir.NewSequenceGenerator.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id ir.ObjectID
}

// NewFixedIDGenerator creates a generator for id.
// If id is empty, NewID returns "test-object".
func NewFixedIDGenerator(id ir.ObjectID) *FixedIDGenerator {
	if id == "" {
		id = "test-object"
	}
	return &FixedIDGenerator{id: id}
}

// NewID returns the fixed id.
//
// Implements ir.IDGenerator.
func (g *FixedIDGenerator) NewID() ir.ObjectID {
	return g.id
}
