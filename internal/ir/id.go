package ir

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ObjectID is the permanent identity of a managed object.
// Assigned at insert time and never reused.
type ObjectID string

// IDGenerator assigns identities to newly inserted objects.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type IDGenerator interface {
	NewID() ObjectID
}

// UUIDv7Generator generates time-sortable UUIDv7 identities.
//
// UUIDv7 embeds a millisecond timestamp in the most significant bits, so
// fetch results ordered by id come back roughly in insertion order.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a hyphenated UUIDv7 string.
// Panics if the system random source fails.
func (UUIDv7Generator) NewID() ObjectID {
	return ObjectID(uuid.Must(uuid.NewV7()).String())
}

// SequenceGenerator returns "<prefix>-0001", "<prefix>-0002", ... for
// deterministic tests and golden output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequenceGenerator creates a generator starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, next: 1}
}

// NewID returns the next identity in the sequence.
func (g *SequenceGenerator) NewID() ObjectID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ObjectID(fmt.Sprintf("%s-%04d", g.prefix, g.next))
	g.next++
	return id
}
