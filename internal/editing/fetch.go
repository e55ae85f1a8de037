package editing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/store"
)

// Fetch returns every object of req.Entity visible to this context: the
// parent's (or store's) view, minus pending deletes, plus pending inserts,
// with pending edits applied. Results are registered and ordered by id.
//
// With req.IDsOnly, objects not already registered come back as faults.
func (c *Context) Fetch(ctx context.Context, req store.FetchRequest) ([]*Object, error) {
	snaps, err := c.fetchSnapshots(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]*Object, 0, len(snaps))
	for _, s := range snaps {
		if o, ok := c.inserted[s.ID]; ok {
			out = append(out, o)
			continue
		}
		out = append(out, c.registerFetched(s))
	}
	return out, nil
}

// registerFetched registers a snapshot from fetchSnapshots. Those already
// carry this context's pending edits, so only the committed part of a
// pending object is refreshed.
func (c *Context) registerFetched(s ir.Snapshot) *Object {
	o, ok := c.objects[s.ID]
	if !ok {
		return c.register(s)
	}
	if s.Attrs != nil && !o.HasChanges() {
		o.base = s.Attrs.Clone()
	}
	return o
}

// fetchSnapshots is Fetch without registration. Runs on c's queue.
func (c *Context) fetchSnapshots(ctx context.Context, req store.FetchRequest) ([]ir.Snapshot, error) {
	if _, ok := c.model.Entity(req.Entity); !ok {
		return nil, fmt.Errorf("fetch %s: %w", req.Entity, store.ErrUnknownEntity)
	}

	var below []ir.Snapshot
	var err error
	if c.parent != nil {
		if qerr := c.onParentQueue(func() {
			below, err = c.parent.fetchSnapshots(ctx, req)
		}); qerr != nil {
			return nil, qerr
		}
	} else {
		below, err = c.store.Fetch(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	out := make([]ir.Snapshot, 0, len(below)+len(c.inserted))
	for _, s := range below {
		if _, gone := c.deleted[s.ID]; gone {
			continue
		}
		if o, ok := c.updated[s.ID]; ok && !req.IDsOnly {
			s.Attrs = mergeInto(s.Attrs, o.changes)
		}
		out = append(out, s)
	}
	for _, o := range c.inserted {
		if o.entity != req.Entity {
			continue
		}
		s := ir.Snapshot{ID: o.id, Entity: o.entity}
		if !req.IDsOnly {
			s.Attrs = o.current()
		}
		out = append(out, s)
	}

	slices.SortFunc(out, func(a, b ir.Snapshot) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, nil
}

// lookup resolves one object's committed-from-below state with this
// context's pending edits applied. Runs on c's queue.
func (c *Context) lookup(ctx context.Context, id ir.ObjectID) (ir.Snapshot, error) {
	if _, gone := c.deleted[id]; gone {
		return ir.Snapshot{}, fmt.Errorf("object %s: %w", id, ErrDeleted)
	}
	if o, ok := c.inserted[id]; ok {
		return ir.Snapshot{ID: id, Entity: o.entity, Attrs: o.current()}, nil
	}

	var snap ir.Snapshot
	var err error
	if c.parent != nil {
		if qerr := c.onParentQueue(func() {
			snap, err = c.parent.lookup(ctx, id)
		}); qerr != nil {
			return ir.Snapshot{}, qerr
		}
	} else {
		snap, err = c.store.Get(ctx, id)
	}
	if err != nil {
		return ir.Snapshot{}, err
	}
	if o, ok := c.updated[id]; ok {
		snap.Attrs = mergeInto(snap.Attrs, o.changes)
	}
	return snap, nil
}

func mergeInto(base, over ir.Attrs) ir.Attrs {
	out := base.Clone()
	if out == nil {
		out = make(ir.Attrs, len(over))
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
