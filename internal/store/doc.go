// Package store provides the backing stores editing contexts commit into.
//
// Two kinds exist:
//   - InMemory: MemoryStore, a map guarded by a mutex. Used for tests,
//     scratch stacks, and disposable contexts.
//   - Durable: SQLiteStore, one row per object in a single SQLite file.
//
// Both implement Store with identical semantics:
//
//   - Apply is all-or-nothing. Inserting an existing id fails with
//     ErrConflict, updating a missing id fails with ErrNotFound, deleting a
//     missing id is a no-op.
//   - Updates merge attribute by attribute and bump the object version.
//   - Fetch results are ordered by id ASC so two reads of the same state
//     return identical slices.
//   - Entities unknown to the model fail with ErrUnknownEntity.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: the store is the single writer
//
// Attributes are stored as canonical JSON (ir.MarshalAttrs), so two saves of
// equal snapshots produce identical rows. The schema is versioned by embedded
// golang-migrate migrations; see migrate.go.
package store
