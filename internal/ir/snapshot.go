package ir

// ObjectRef identifies an object and its entity kind without any values.
type ObjectRef struct {
	ID     ObjectID `json:"id"`
	Entity string   `json:"entity"`
}

// Snapshot is the committed state of one object as seen by a context or
// store. A Snapshot with nil Attrs is an identifier-only result (a fault):
// the values were deliberately not loaded.
type Snapshot struct {
	ID      ObjectID `json:"id"`
	Entity  string   `json:"entity"`
	Attrs   Attrs    `json:"attrs,omitempty"`
	Version int64    `json:"version"`
}

// Ref returns the identity part of the snapshot.
func (s Snapshot) Ref() ObjectRef {
	return ObjectRef{ID: s.ID, Entity: s.Entity}
}

// IsFault reports whether the snapshot was loaded without attribute values.
func (s Snapshot) IsFault() bool {
	return s.Attrs == nil
}

// Clone returns a copy whose Attrs map is not shared with s.
func (s Snapshot) Clone() Snapshot {
	s.Attrs = s.Attrs.Clone()
	return s
}

// ChangeSet is the unit of work a context commits to its parent or store.
//
// Inserted snapshots carry every attribute. Updated snapshots carry only the
// attributes that changed; the receiver merges them attribute by attribute.
type ChangeSet struct {
	Inserted []Snapshot
	Updated  []Snapshot
	Deleted  []ObjectRef
}

// Empty reports whether the change set carries no work.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// Len returns the number of objects touched.
func (c ChangeSet) Len() int {
	return len(c.Inserted) + len(c.Updated) + len(c.Deleted)
}

// Clone deep-copies the change set so it can cross a queue boundary.
func (c ChangeSet) Clone() ChangeSet {
	out := ChangeSet{
		Inserted: make([]Snapshot, len(c.Inserted)),
		Updated:  make([]Snapshot, len(c.Updated)),
		Deleted:  make([]ObjectRef, len(c.Deleted)),
	}
	for i, s := range c.Inserted {
		out.Inserted[i] = s.Clone()
	}
	for i, s := range c.Updated {
		out.Updated[i] = s.Clone()
	}
	copy(out.Deleted, c.Deleted)
	return out
}
