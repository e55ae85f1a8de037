// Package ir provides the value and snapshot types shared by every layer of
// the stack: attribute values, object identities, committed snapshots, and the
// change sets that flow from a context to its parent or store.
//
// This package imports nothing internal. Stores, contexts, and the merge
// registry all speak in these types so that no layer hands out references to
// another layer's mutable object graph.
//
// Key design constraints:
//   - NO float values (use Int); attribute encoding must be deterministic
//   - Snapshots are values; Clone before handing them across queues
//   - Attribute maps are serialized with MarshalAttrs (canonical JSON)
package ir
