// Package state holds the view state of one synchronized collection: the
// record snapshot, load state, the pending draft and the health slot.
//
// Every change is an Event applied by the pure Reduce function, so state
// transitions can be tested without a UI harness:
//
//	next := state.Reduce(prev, state.SnapshotSet{Records: records})
//
// Store wraps Reduce behind a mutex for concurrent callers and notifies
// subscribers after each transition. Presentation reads Snapshot or
// subscribes; only the synchronization controller dispatches events.
//
// Ordering guarantees:
//   - SnapshotSet replaces the collection wholesale and clears Loading and
//     Error.
//   - RecordPrepended inserts at index 0 and leaves the load state alone.
//   - ErrorSet clears Loading but keeps the current records.
//   - Health events never touch the collection or the load state.
package state
