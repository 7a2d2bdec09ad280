package core

import (
	"fmt"

	"github.com/signalsfoundry/rtsched/model"
)

// PriorityKey is a totally ordered priority; smaller keys run first.
type PriorityKey struct {
	Value     int
	Secondary int
	TaskID    string
	Release   int
}

// Less orders by Value, Secondary, TaskID, then Release.
func (k PriorityKey) Less(o PriorityKey) bool {
	if k.Value != o.Value {
		return k.Value < o.Value
	}
	if k.Secondary != o.Secondary {
		return k.Secondary < o.Secondary
	}
	if k.TaskID != o.TaskID {
		return k.TaskID < o.TaskID
	}
	return k.Release < o.Release
}

// Policy selects among ready jobs by producing a key per job.
type Policy interface {
	Name() model.PolicyName
	// Key returns the priority of job at tick now.
	Key(job *model.TaskInstance, now int) PriorityKey
	// StaticPriority returns the fixed priority stamped on a task's jobs,
	// or 0 for dynamic policies.
	StaticPriority(t model.TaskType) int
	// AbortOnOverlap reports whether a release while the previous job of
	// the same task is unfinished aborts the run.
	AbortOnOverlap() bool
}

type rateMonotonic struct{}

func (rateMonotonic) Name() model.PolicyName              { return model.PolicyRM }
func (rateMonotonic) StaticPriority(t model.TaskType) int { return t.Period }
func (rateMonotonic) AbortOnOverlap() bool                { return true }
func (rateMonotonic) Key(job *model.TaskInstance, _ int) PriorityKey {
	return PriorityKey{Value: job.StaticPriority, TaskID: job.Key.TaskID, Release: job.Key.Release}
}

type deadlineMonotonic struct{}

func (deadlineMonotonic) Name() model.PolicyName              { return model.PolicyDM }
func (deadlineMonotonic) StaticPriority(t model.TaskType) int { return t.RelativeDeadline }
func (deadlineMonotonic) AbortOnOverlap() bool                { return true }
func (deadlineMonotonic) Key(job *model.TaskInstance, _ int) PriorityKey {
	return PriorityKey{Value: job.StaticPriority, TaskID: job.Key.TaskID, Release: job.Key.Release}
}

// earliestDeadline ranks by absolute deadline. Laxity is not consulted.
type earliestDeadline struct{}

func (earliestDeadline) Name() model.PolicyName            { return model.PolicyLLFEDF }
func (earliestDeadline) StaticPriority(model.TaskType) int { return 0 }
func (earliestDeadline) AbortOnOverlap() bool              { return false }
func (earliestDeadline) Key(job *model.TaskInstance, _ int) PriorityKey {
	return PriorityKey{Value: job.AbsoluteDeadline, TaskID: job.Key.TaskID, Release: job.Key.Release}
}

// leastLaxity re-ranks every tick by deadline - now - remaining.
type leastLaxity struct{}

func (leastLaxity) Name() model.PolicyName            { return model.PolicyLLF }
func (leastLaxity) StaticPriority(model.TaskType) int { return 0 }
func (leastLaxity) AbortOnOverlap() bool              { return false }
func (leastLaxity) Key(job *model.TaskInstance, now int) PriorityKey {
	return PriorityKey{
		Value:     job.Laxity(now),
		Secondary: job.AbsoluteDeadline,
		TaskID:    job.Key.TaskID,
		Release:   job.Key.Release,
	}
}

// PolicyFor returns the Policy implementation for name.
func PolicyFor(name model.PolicyName) (Policy, error) {
	switch name {
	case model.PolicyRM:
		return rateMonotonic{}, nil
	case model.PolicyDM:
		return deadlineMonotonic{}, nil
	case model.PolicyLLFEDF:
		return earliestDeadline{}, nil
	case model.PolicyLLF:
		return leastLaxity{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// ParsePolicy resolves user input to a supported policy name. Failures wrap
// ErrUnknownPolicy.
func ParsePolicy(s string) (model.PolicyName, error) {
	name, err := model.ParsePolicy(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
	return name, nil
}
