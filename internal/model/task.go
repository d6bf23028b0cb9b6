package model

import "alchemicore/internal/objectgraph"

// TaskStatus is one state of the task lifecycle machine (§4.5).
type TaskStatus string

const (
	TaskWaiting   TaskStatus = "waiting"
	TaskRunning   TaskStatus = "running"
	TaskComplete  TaskStatus = "complete"
	TaskError     TaskStatus = "error"
	TaskCancelled TaskStatus = "cancelled"
	TaskInvalid   TaskStatus = "invalid"
	TaskDeleted   TaskStatus = "deleted"
)

// terminalStatuses reject every further transition.
var terminalStatuses = map[TaskStatus]bool{
	TaskComplete:  true,
	TaskCancelled: true,
	TaskInvalid:   true,
	TaskDeleted:   true,
}

// IsTerminal reports whether a task in this status can never transition again.
func (s TaskStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// adminTargets are reachable from any non-terminal status via an
// administrative transition.
var adminTargets = map[TaskStatus]bool{
	TaskCancelled: true,
	TaskInvalid:   true,
	TaskDeleted:   true,
}

// CanTransition reports whether moving a task from `from` to `to` is legal
// per the state table in §4.5:
//
//	waiting -> running               (claim)
//	running -> complete              (worker success)
//	running -> error                 (worker failure)
//	running -> waiting               (abandon)
//	any non-terminal -> cancelled/invalid/deleted  (admin)
func CanTransition(from, to TaskStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if adminTargets[to] {
		return true
	}
	switch from {
	case TaskWaiting:
		return to == TaskRunning
	case TaskRunning:
		return to == TaskComplete || to == TaskError || to == TaskWaiting
	default:
		return false
	}
}

// Task is one unit of work targeting exactly one Transformation (linked via
// the explicit PERFORMS relationship, set up by graphstore rather than
// through ShallowDict). ExtendsKey and Token are the only attributes that
// participate in the task's content-hash: ExtendsKey ties a continuation
// task to its predecessor, and Token is a random uniquifier assigned at
// creation so that two tasks targeting the same transformation (the common
// case of independent repeats) are always distinct nodes rather than merged
// by the codec's upsert.
//
// Status, Priority, and Claim are mutable operational state. They are
// written once at creation as plain node properties and thereafter mutated
// in place by internal/graphstore; they are deliberately excluded from
// ShallowDict so that a status change never alters the task's ScopedKey.
type Task struct {
	ExtendsKey string
	Token      string

	Status   TaskStatus
	Priority int
	Claim    string
}

func (t *Task) ClassName() string { return "Task" }

func (t *Task) ShallowDict() map[string]any {
	return map[string]any{
		"extends": t.ExtendsKey,
		"token":   t.Token,
	}
}

func reconstructTask(attrs map[string]any) (objectgraph.Tokenizable, error) {
	t := &Task{}
	t.ExtendsKey, _ = attrs["extends"].(string)
	t.Token, _ = attrs["token"].(string)
	// Status/Priority/Claim are not part of ShallowDict and stay zero-valued
	// here; graphstore reads and writes them as plain node properties and
	// does not copy them onto a decoded Task.
	return t, nil
}

func init() {
	objectgraph.Register("Task", reconstructTask)
}
