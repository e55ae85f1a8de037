package editing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/store"
)

// Save commits pending changes to the parent context or the store.
//
// Will-save observers run first and may discard the changes; a context with
// nothing pending after them saves trivially. Every inserted and updated
// object is validated against the model before anything is written. On
// success the pending sets are cleared and did-save observers receive the
// committed changes. On failure the pending sets are left untouched.
func (c *Context) Save(ctx context.Context) error {
	c.notifyWillSave()
	if !c.HasChanges() {
		return nil
	}

	cs, err := c.changeSet()
	if err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}

	if c.parent != nil {
		var absorbErr error
		if err := c.onParentQueue(func() {
			absorbErr = c.parent.absorb(ctx, cs)
		}); err != nil {
			return fmt.Errorf("save %s: %w", c.name, err)
		}
		if absorbErr != nil {
			return fmt.Errorf("save %s into %s: %w", c.name, c.parent.name, absorbErr)
		}
	} else if err := c.store.Apply(ctx, cs); err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}

	c.commitPending()
	c.logger.Debug("context saved",
		"context", c.name,
		"inserted", len(cs.Inserted),
		"updated", len(cs.Updated),
		"deleted", len(cs.Deleted),
	)
	c.notifyDidSave(SaveNotification{
		Source:   c,
		Inserted: cs.Inserted,
		Updated:  cs.Updated,
		Deleted:  cs.Deleted,
	})
	return nil
}

// changeSet validates and collects pending changes. Inserted snapshots carry
// every attribute; updated snapshots carry only the edited ones.
func (c *Context) changeSet() (ir.ChangeSet, error) {
	var cs ir.ChangeSet
	for _, o := range sortedObjects(c.inserted) {
		snap := ir.Snapshot{ID: o.id, Entity: o.entity, Attrs: o.current()}
		if err := c.model.Validate(snap); err != nil {
			return ir.ChangeSet{}, err
		}
		cs.Inserted = append(cs.Inserted, snap)
	}
	for _, o := range sortedObjects(c.updated) {
		if err := o.fault(); err != nil {
			return ir.ChangeSet{}, err
		}
		full := ir.Snapshot{ID: o.id, Entity: o.entity, Attrs: o.current()}
		if err := c.model.Validate(full); err != nil {
			return ir.ChangeSet{}, err
		}
		cs.Updated = append(cs.Updated, ir.Snapshot{ID: o.id, Entity: o.entity, Attrs: o.changes.Clone()})
	}
	for _, o := range sortedObjects(c.deleted) {
		cs.Deleted = append(cs.Deleted, o.Ref())
	}
	return cs, nil
}

func sortedObjects(m map[ir.ObjectID]*Object) []*Object {
	out := make([]*Object, 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *Object) int {
		return strings.Compare(string(a.id), string(b.id))
	})
	return out
}

// commitPending folds saved edits into the committed values.
func (c *Context) commitPending() {
	for _, o := range c.inserted {
		o.base, o.changes = o.current(), nil
	}
	for _, o := range c.updated {
		o.base, o.changes = o.current(), nil
	}
	clear(c.inserted)
	clear(c.updated)
	clear(c.deleted)
}

// absorb takes a child's saved changes as this context's own pending
// changes. Everything is checked before anything is applied. Runs on c's
// queue.
func (c *Context) absorb(ctx context.Context, cs ir.ChangeSet) error {
	for _, s := range cs.Inserted {
		if _, ok := c.objects[s.ID]; ok {
			return fmt.Errorf("insert %s: %w", s.ID, store.ErrConflict)
		}
		if _, ok := c.deleted[s.ID]; ok {
			return fmt.Errorf("insert %s: %w", s.ID, store.ErrConflict)
		}
	}
	targets := make([]*Object, len(cs.Updated))
	for i, s := range cs.Updated {
		o, err := c.Object(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("update %s: %w", s.ID, err)
		}
		if err := o.fault(); err != nil {
			return err
		}
		targets[i] = o
	}

	for _, s := range cs.Inserted {
		o := &Object{ctx: c, id: s.ID, entity: s.Entity, base: make(ir.Attrs), changes: s.Attrs.Clone()}
		c.objects[o.id] = o
		c.inserted[o.id] = o
	}
	for i, s := range cs.Updated {
		o := targets[i]
		if o.changes == nil {
			o.changes = make(ir.Attrs, len(s.Attrs))
		}
		for k, v := range s.Attrs {
			o.changes[k] = v
		}
		if !o.isInserted() {
			c.updated[o.id] = o
		}
	}
	for _, ref := range cs.Deleted {
		o, ok := c.objects[ref.ID]
		if !ok {
			o = &Object{ctx: c, id: ref.ID, entity: ref.Entity}
		}
		if err := c.Delete(o); err != nil {
			return err
		}
	}
	return nil
}

// Rollback discards every pending change: inserts are forgotten, deletes
// restored, edits dropped.
func (c *Context) Rollback() {
	for id, o := range c.inserted {
		o.deleted = true
		delete(c.objects, id)
	}
	for _, o := range c.updated {
		o.changes = nil
	}
	for id, o := range c.deleted {
		o.deleted = false
		o.changes = nil
		c.objects[id] = o
	}
	clear(c.inserted)
	clear(c.updated)
	clear(c.deleted)
}

// Reset forgets the whole object graph, pending changes included.
// Objects obtained before Reset are no longer registered.
func (c *Context) Reset() {
	clear(c.objects)
	clear(c.inserted)
	clear(c.updated)
	clear(c.deleted)
}

// MergeChanges applies another context's committed changes to this one.
// Incoming attribute values replace local ones, pending edits included;
// attributes the notification does not name keep their local edits.
// Notifications from c's own descendants are ignored: their Save already
// left the changes pending in c.
// Runs on c's queue; use merge.Registry to dispatch it there.
func (c *Context) MergeChanges(n SaveNotification) {
	if n.Source != nil && n.Source.descendsFrom(c) {
		// Already absorbed as c's own pending changes by the source's Save.
		c.logger.Debug("merge skipped for descendant", "context", c.name, "source", n.Source.name)
		return
	}
	for _, s := range n.Inserted {
		if o, ok := c.objects[s.ID]; ok && !o.isInserted() {
			o.base = s.Attrs.Clone()
			continue
		}
		c.register(s)
	}
	for _, s := range n.Updated {
		o, ok := c.objects[s.ID]
		if !ok {
			continue
		}
		if o.base != nil {
			o.base = mergeInto(o.base, s.Attrs)
		}
		for k := range s.Attrs {
			delete(o.changes, k)
		}
		if len(o.changes) == 0 {
			delete(c.updated, o.id)
		}
	}
	for _, ref := range n.Deleted {
		o, ok := c.objects[ref.ID]
		if !ok {
			o, ok = c.deleted[ref.ID]
		}
		if ok {
			o.deleted = true
		}
		delete(c.objects, ref.ID)
		delete(c.inserted, ref.ID)
		delete(c.updated, ref.ID)
		delete(c.deleted, ref.ID)
	}

	source := ""
	if n.Source != nil {
		source = n.Source.name
	}
	c.logger.Debug("merged changes",
		"context", c.name,
		"source", source,
		"inserted", len(n.Inserted),
		"updated", len(n.Updated),
		"deleted", len(n.Deleted),
	)
}

// descendsFrom reports whether anc is a strict ancestor of c. Parent links
// are fixed at construction, so this is safe from any queue.
func (c *Context) descendsFrom(anc *Context) bool {
	for p := c.parent; p != nil; p = p.parent {
		if p == anc {
			return true
		}
	}
	return false
}
