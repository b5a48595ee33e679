// Package manager implements the task store.
//
// [Manager] owns every item, assigns identifiers and enforces the link
// between epics and their subtasks:
//   - one id counter is shared by tasks, epics and subtasks; ids are never reused
//   - creating, updating or deleting a subtask re-derives its epic's status
//   - deleting an epic deletes its subtasks; clearing epics clears all subtasks
//   - every successful Get records a visit in the view history, and every
//     delete or clear purges the destroyed items from it
//
// Manager is purely in-memory and synchronous. It is not safe for concurrent
// use; callers sharing one store must hold a single mutex around every call.
//
// [Persistent] decorates a Manager with a [Backend]. After each successful
// mutating call it hands the backend a full [task.Snapshot]; on open it
// rebuilds the store from the backend's last snapshot through the same
// insertion path used by Create, so referential integrity and status roll-up
// are re-run rather than trusted.
package manager
