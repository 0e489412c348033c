// Package state provides the thread-safe state container shared by the
// MediaGrab stores and the optimistic-update combinator built on top of it.
//
// # Overview
//
// A Cell holds one value (a queue, a history list, a preferences record)
// behind a read/write mutex. Reads clone, writes go through Update so a
// Derive hook can recompute fields that must always be a pure function of
// the rest of the value, such as queue counts.
//
// # Optimistic updates
//
// Perform is the one place the optimistic protocol lives:
//
//  1. capture the pre-image and apply the local mutation (visible at once)
//  2. run the backend command without holding any lock
//  3. on failure, hand the pre-image and the current value to a Rollback
//
// Two recovery policies exist and callers pick one explicitly:
//
//   - RestoreSnapshot: put back the exact pre-image (remove, clear, reorder)
//   - NoRollback: leave state alone and let the caller reload from the
//     backend (cancel, where a pushed event may race the command error)
//
// Rollback itself never fails and never returns an error; the command error
// is returned exactly once to the caller.
//
// # Concurrency
//
// Locks are never held across a command. Two operations on the same item may
// interleave; the last write to arrive wins. The backend stays the source of
// truth and a reload is the escape hatch for drift.
package state
