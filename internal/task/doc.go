// Package task defines the work items tracked by taskmgr.
//
// There are three kinds of item, modelled as one closed variant:
//   - TASK: a standalone unit of work with its own status
//   - EPIC: a container of subtasks whose status is always derived
//   - SUBTASK: a child of exactly one epic, referenced by EpicID
//
// All kinds share the same base record ([Item]) and are told apart by the
// [Kind] discriminant. Behaviour that differs per kind (status roll-up, the
// epic child set) is explicit logic switched on Kind.
//
// # Identity
//
// IDs are assigned by the store from a single counter shared by all kinds.
// An ID of 0 means "not yet assigned". IDs are never reused.
//
// # Status roll-up
//
// [DeriveStatus] computes an epic's status from its children from scratch:
//   - no children: NEW
//   - every child DONE: DONE
//   - every child NEW: NEW
//   - anything else: IN_PROGRESS
package task
