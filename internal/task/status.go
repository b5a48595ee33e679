package task

// DeriveStatus computes an epic's status from its children.
//
// It is a pure function of the child statuses and is evaluated from scratch
// on every call; there are no incremental counters to drift.
func DeriveStatus(children []*Item) Status {
	if len(children) == 0 {
		return StatusNew
	}

	allNew, allDone := true, true
	for _, child := range children {
		if child.Status != StatusNew {
			allNew = false
		}
		if child.Status != StatusDone {
			allDone = false
		}
	}

	switch {
	case allDone:
		return StatusDone
	case allNew:
		return StatusNew
	default:
		return StatusInProgress
	}
}
