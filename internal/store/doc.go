// Package store provides SQLite-backed snapshot storage for task managers.
//
// Each Save writes one complete snapshot of the store in a single
// transaction:
//   - snapshots: one row per save, keyed by a UUIDv7 id
//   - items: every task, epic and subtask of the snapshot
//   - history: the view history as ordered item ids
//
// Unlike the CSV backend, the view history is kept, so the recency order
// survives a restart.
//
// # Ordering
//
// Snapshots are ordered by seq, a logical counter assigned at save time,
// never by timestamps. Load returns the snapshot with the highest seq.
// Only the newest Retain snapshots are kept; older ones are pruned in the
// same transaction that writes the new one.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Pruning a snapshot cascades to its rows
package store
