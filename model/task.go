package model

// TaskType is a periodic task definition. Values are treated as immutable by
// the simulator; callers own them.
type TaskType struct {
	// ID is the stable identifier of the task, e.g. "P1".
	ID string
	// Period is the number of ticks between consecutive releases.
	Period int
	// ReleaseOffset is the tick of the first release.
	ReleaseOffset int
	// ExecutionBudget is the number of processor ticks each instance needs.
	ExecutionBudget int
	// RelativeDeadline is the number of ticks after release by which an
	// instance must finish.
	RelativeDeadline int
}

// TaskSet is a named, ordered collection of task types.
type TaskSet struct {
	Name  string
	Tasks []TaskType
}

// Clone returns a deep copy of the task set so that concurrent runs never
// share the backing array.
func (ts TaskSet) Clone() TaskSet {
	return TaskSet{Name: ts.Name, Tasks: CloneTasks(ts.Tasks)}
}

// CloneTasks copies a task list.
func CloneTasks(tasks []TaskType) []TaskType {
	if tasks == nil {
		return nil
	}
	out := make([]TaskType, len(tasks))
	copy(out, tasks)
	return out
}

// InstanceKey identifies a job deterministically by its owning task type and
// release time.
type InstanceKey struct {
	TaskID  string
	Release int
}

// TaskInstance is a concrete job released by a TaskType.
type TaskInstance struct {
	Key              InstanceKey
	AbsoluteDeadline int
	// Remaining is the number of ticks still needed; it only decreases and
	// never goes below zero.
	Remaining int
	// StaticPriority is assigned once at generation for fixed-priority
	// policies (period for RM, relative deadline for DM). Zero otherwise.
	StaticPriority int
	// Budget is the execution budget the instance started with.
	Budget int
}

// Done reports whether the instance has consumed its whole budget.
func (ti *TaskInstance) Done() bool { return ti.Remaining <= 0 }

// Laxity is the slack left at tick now: deadline - now - remaining.
func (ti *TaskInstance) Laxity(now int) int {
	return ti.AbsoluteDeadline - now - ti.Remaining
}
