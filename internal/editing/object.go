package editing

import (
	"context"
	"fmt"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
)

// Object is one managed object registered in a Context.
//
// An Object's current value for an attribute is its unsaved local edit if
// one exists, otherwise the value last loaded from the parent or store.
// An Object that has not been loaded yet is a fault; reading or writing it
// loads it first.
type Object struct {
	ctx    *Context
	id     ir.ObjectID
	entity string

	base    ir.Attrs // last loaded or saved values; nil while a fault
	changes ir.Attrs // unsaved local edits
	deleted bool
}

func (o *Object) ID() ir.ObjectID   { return o.id }
func (o *Object) Entity() string    { return o.entity }
func (o *Object) Context() *Context { return o.ctx }
func (o *Object) IsFault() bool     { return o.base == nil }
func (o *Object) IsDeleted() bool   { return o.deleted }
func (o *Object) HasChanges() bool  { return len(o.changes) > 0 }

// Ref returns the object's identity.
func (o *Object) Ref() ir.ObjectRef {
	return ir.ObjectRef{ID: o.id, Entity: o.entity}
}

func (o *Object) isInserted() bool {
	_, ok := o.ctx.inserted[o.id]
	return ok
}

// Get returns the current value of an attribute. Unset attributes read as
// ir.Null.
func (o *Object) Get(name string) (ir.Value, error) {
	if o.deleted {
		return nil, fmt.Errorf("get %s.%s: %w", o.id, name, ErrDeleted)
	}
	if v, ok := o.changes[name]; ok {
		return v, nil
	}
	if err := o.fault(); err != nil {
		return nil, err
	}
	if v, ok := o.base[name]; ok {
		return v, nil
	}
	return ir.Null{}, nil
}

// Values returns a copy of every current attribute value.
func (o *Object) Values() (ir.Attrs, error) {
	if o.deleted {
		return nil, fmt.Errorf("values %s: %w", o.id, ErrDeleted)
	}
	if err := o.fault(); err != nil {
		return nil, err
	}
	return o.current(), nil
}

// Set records an unsaved edit. The value is checked against the model
// immediately; required attributes are enforced at save.
func (o *Object) Set(name string, v ir.Value) error {
	if o.deleted {
		return fmt.Errorf("set %s.%s: %w", o.id, name, ErrDeleted)
	}
	if v == nil {
		v = ir.Null{}
	}
	if err := o.ctx.model.CheckAttribute(o.entity, name, v); err != nil {
		return err
	}
	if err := o.fault(); err != nil {
		return err
	}

	if o.changes == nil {
		o.changes = make(ir.Attrs)
	}
	o.changes[name] = v
	if !o.isInserted() {
		o.ctx.updated[o.id] = o
	}
	return nil
}

// Snapshot returns the object's current state.
func (o *Object) Snapshot() (ir.Snapshot, error) {
	attrs, err := o.Values()
	if err != nil {
		return ir.Snapshot{}, err
	}
	return ir.Snapshot{ID: o.id, Entity: o.entity, Attrs: attrs}, nil
}

func (o *Object) current() ir.Attrs {
	out := o.base.Clone()
	if out == nil {
		out = make(ir.Attrs, len(o.changes))
	}
	for k, v := range o.changes {
		out[k] = v
	}
	return out
}

// fault loads the object's committed values from below.
func (o *Object) fault() error {
	if o.base != nil {
		return nil
	}
	snap, err := o.ctx.lookup(context.Background(), o.id)
	if err != nil {
		return fmt.Errorf("fault %s: %w", o.id, err)
	}
	o.base = snap.Attrs
	if o.base == nil {
		o.base = make(ir.Attrs)
	}
	return nil
}

// Insert creates a new object of entity with the model's defaults overlaid
// by attrs. The object is pending until Save.
func (c *Context) Insert(entity string, attrs ir.Attrs) (*Object, error) {
	e, ok := c.model.Entity(entity)
	if !ok {
		return nil, &schema.ValidationError{
			Code:    schema.ValidationUnknownEntity,
			Entity:  entity,
			Message: fmt.Sprintf("model %q has no such entity", c.model.Name),
		}
	}

	values := e.Defaults()
	for _, k := range attrs.SortedKeys() {
		v := attrs[k]
		if v == nil {
			v = ir.Null{}
		}
		if err := c.model.CheckAttribute(entity, k, v); err != nil {
			return nil, err
		}
		values[k] = v
	}

	o := &Object{
		ctx:     c,
		id:      c.ids.NewID(),
		entity:  entity,
		base:    make(ir.Attrs),
		changes: values,
	}
	c.objects[o.id] = o
	c.inserted[o.id] = o
	return o, nil
}

// Object returns the registered object for id, loading it from the parent
// or store if this context has not seen it yet.
func (c *Context) Object(ctx context.Context, id ir.ObjectID) (*Object, error) {
	if o, ok := c.objects[id]; ok {
		return o, nil
	}
	if _, ok := c.deleted[id]; ok {
		return nil, fmt.Errorf("object %s: %w", id, ErrDeleted)
	}
	snap, err := c.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.register(snap), nil
}

// Delete marks an object for deletion. Deleting an unsaved insert simply
// forgets it.
func (c *Context) Delete(o *Object) error {
	if o.ctx != c {
		return fmt.Errorf("delete %s: %w", o.id, ErrForeignObject)
	}
	if o.deleted {
		return nil
	}

	o.deleted = true
	delete(c.objects, o.id)
	delete(c.updated, o.id)
	if _, ok := c.inserted[o.id]; ok {
		delete(c.inserted, o.id)
		return nil
	}
	c.deleted[o.id] = o
	return nil
}

// register adds an object loaded from below to the graph, or refreshes the
// committed values of one already registered. Faults stay faults.
func (c *Context) register(snap ir.Snapshot) *Object {
	if o, ok := c.objects[snap.ID]; ok {
		if snap.Attrs != nil && !o.isInserted() {
			o.base = snap.Attrs.Clone()
		}
		return o
	}
	o := &Object{
		ctx:    c,
		id:     snap.ID,
		entity: snap.Entity,
		base:   snap.Attrs.Clone(),
	}
	c.objects[o.id] = o
	return o
}
