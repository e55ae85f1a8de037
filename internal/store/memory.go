package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
)

// MemoryStore keeps objects in a map. Nothing survives Close.
type MemoryStore struct {
	model *schema.Model

	mu      sync.RWMutex
	objects map[ir.ObjectID]ir.Snapshot
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store for model.
func NewMemoryStore(model *schema.Model) *MemoryStore {
	return &MemoryStore{
		model:   model,
		objects: make(map[ir.ObjectID]ir.Snapshot),
	}
}

func (s *MemoryStore) Kind() Kind   { return InMemory }
func (s *MemoryStore) Path() string { return "" }

func (s *MemoryStore) Fetch(_ context.Context, req FetchRequest) ([]ir.Snapshot, error) {
	if _, ok := s.model.Entity(req.Entity); !ok {
		return nil, entityError("fetch", req.Entity, ErrUnknownEntity)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []ir.Snapshot
	for _, snap := range s.objects {
		if snap.Entity != req.Entity {
			continue
		}
		if req.IDsOnly {
			snap.Attrs = nil
		} else {
			snap = snap.Clone()
		}
		out = append(out, snap)
	}
	slices.SortFunc(out, func(a, b ir.Snapshot) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id ir.ObjectID) (ir.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ir.Snapshot{}, ErrClosed
	}
	snap, ok := s.objects[id]
	if !ok {
		return ir.Snapshot{}, objectError("get", id, ErrNotFound)
	}
	return snap.Clone(), nil
}

// Apply stages the change set on a copy of the object map and swaps it in
// only when every step succeeded.
func (s *MemoryStore) Apply(_ context.Context, cs ir.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	staged := maps.Clone(s.objects)
	for _, ins := range cs.Inserted {
		if _, ok := s.model.Entity(ins.Entity); !ok {
			return objectError("insert", ins.ID, ErrUnknownEntity)
		}
		if _, exists := staged[ins.ID]; exists {
			return objectError("insert", ins.ID, ErrConflict)
		}
		snap := ins.Clone()
		snap.Version = 1
		staged[ins.ID] = snap
	}
	for _, upd := range cs.Updated {
		cur, ok := staged[upd.ID]
		if !ok {
			return objectError("update", upd.ID, ErrNotFound)
		}
		cur.Attrs = mergeAttrs(cur.Attrs, upd.Attrs)
		cur.Version++
		staged[upd.ID] = cur
	}
	for _, del := range cs.Deleted {
		delete(staged, del.ID)
	}

	s.objects = staged
	return nil
}

func (s *MemoryStore) BatchDelete(_ context.Context, entity string) (int, error) {
	if _, ok := s.model.Entity(entity); !ok {
		return 0, entityError("batch delete", entity, ErrUnknownEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	for id, snap := range s.objects {
		if snap.Entity == entity {
			delete(s.objects, id)
			n++
		}
	}
	return n, nil
}

// Close drops every object. Close is idempotent.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.objects = nil
	return nil
}
