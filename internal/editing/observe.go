package editing

import (
	"github.com/roach88/datastack/internal/ir"
)

// SaveNotification describes one successful Save.
//
// Inserted snapshots carry every attribute; Updated snapshots carry only the
// attributes that changed. The slices are shared between observers and must
// not be modified.
type SaveNotification struct {
	Source   *Context
	Inserted []ir.Snapshot
	Updated  []ir.Snapshot
	Deleted  []ir.ObjectRef
}

// Len returns the number of objects the save touched.
func (n SaveNotification) Len() int {
	return len(n.Inserted) + len(n.Updated) + len(n.Deleted)
}

type willSaveObserver struct {
	id int
	fn func(*Context)
}

type didSaveObserver struct {
	id int
	fn func(SaveNotification)
}

// ObserveWillSave registers fn to run at the start of every Save, on the
// context's queue, before pending changes are inspected. The returned func
// removes the observer.
func (c *Context) ObserveWillSave(fn func(*Context)) (cancel func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	id := c.nextObsID
	c.nextObsID++
	c.willSave = append(c.willSave, willSaveObserver{id: id, fn: fn})

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		for i, o := range c.willSave {
			if o.id == id {
				c.willSave = append(c.willSave[:i:i], c.willSave[i+1:]...)
				return
			}
		}
	}
}

// ObserveDidSave registers fn to run after every successful Save that
// committed changes, on the context's queue. Observers run in registration
// order. The returned func removes the observer.
func (c *Context) ObserveDidSave(fn func(SaveNotification)) (cancel func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	id := c.nextObsID
	c.nextObsID++
	c.didSave = append(c.didSave, didSaveObserver{id: id, fn: fn})

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		for i, o := range c.didSave {
			if o.id == id {
				c.didSave = append(c.didSave[:i:i], c.didSave[i+1:]...)
				return
			}
		}
	}
}

// ObserverCount reports registered will-save and did-save observers.
func (c *Context) ObserverCount() (willSave, didSave int) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	return len(c.willSave), len(c.didSave)
}

func (c *Context) notifyWillSave() {
	c.obsMu.Lock()
	observers := append([]willSaveObserver(nil), c.willSave...)
	c.obsMu.Unlock()

	for _, o := range observers {
		o.fn(c)
	}
}

func (c *Context) notifyDidSave(n SaveNotification) {
	c.obsMu.Lock()
	observers := append([]didSaveObserver(nil), c.didSave...)
	c.obsMu.Unlock()

	for _, o := range observers {
		o.fn(n)
	}
}
