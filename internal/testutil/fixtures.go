package testutil

import "github.com/roach88/taskmgr/internal/task"

// Item builds an item with an id already assigned, as a loaded snapshot
// would contain it. epicID is only used for subtasks.
func Item(kind task.Kind, id int, name string, status task.Status, epicID int) *task.Item {
	it := &task.Item{ID: id, Kind: kind, Name: name, Description: name + " description", Status: status}
	if kind == task.KindSubtask {
		it.EpicID = epicID
	}
	return it
}

// SampleSnapshot returns a small consistent snapshot: two tasks, one epic
// with a DONE and a NEW subtask, and a view history.
//
//	1 TASK     "Task 1"      NEW
//	2 TASK     "Task 2"      IN_PROGRESS
//	3 EPIC     "Epic 1"      IN_PROGRESS
//	4 SUBTASK  "Subtask 1"   DONE  epic 3
//	5 SUBTASK  "Subtask 2"   NEW   epic 3
//	history: 2, 4, 3
func SampleSnapshot() task.Snapshot {
	var snap task.Snapshot
	snap.Add(Item(task.KindTask, 1, "Task 1", task.StatusNew, 0))
	snap.Add(Item(task.KindTask, 2, "Task 2", task.StatusInProgress, 0))
	snap.Add(Item(task.KindEpic, 3, "Epic 1", task.StatusInProgress, 0))
	snap.Add(Item(task.KindSubtask, 4, "Subtask 1", task.StatusDone, 3))
	snap.Add(Item(task.KindSubtask, 5, "Subtask 2", task.StatusNew, 3))
	snap.History = []int{2, 4, 3}
	return snap
}
