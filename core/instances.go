package core

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/rtsched/model"
)

// GenerateInstances expands task types into every job released in [0, horizon).
// A type releases at t when t >= offset and (t - offset) is a multiple of its
// period. The result is ordered by release time, then input order.
//
// static, when non-nil, supplies the StaticPriority stamped on each job.
func GenerateInstances(tasks []model.TaskType, horizon int, static func(model.TaskType) int) ([]model.TaskInstance, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("%w: negative horizon %d", ErrDomain, horizon)
	}

	type indexed struct {
		inst  model.TaskInstance
		order int
	}
	var jobs []indexed
	for order, t := range tasks {
		if t.Period <= 0 {
			return nil, fmt.Errorf("%w: task %q period must be positive", ErrInvalidTaskDefinition, t.ID)
		}
		prio := 0
		if static != nil {
			prio = static(t)
		}
		for release := t.ReleaseOffset; release < horizon; release += t.Period {
			jobs = append(jobs, indexed{
				order: order,
				inst: model.TaskInstance{
					Key:              model.InstanceKey{TaskID: t.ID, Release: release},
					AbsoluteDeadline: release + t.RelativeDeadline,
					Remaining:        t.ExecutionBudget,
					Budget:           t.ExecutionBudget,
					StaticPriority:   prio,
				},
			})
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].inst.Key.Release != jobs[j].inst.Key.Release {
			return jobs[i].inst.Key.Release < jobs[j].inst.Key.Release
		}
		return jobs[i].order < jobs[j].order
	})

	out := make([]model.TaskInstance, len(jobs))
	for i, j := range jobs {
		out[i] = j.inst
	}
	return out, nil
}

// InstancesPerTask counts the jobs each task releases within the horizon.
func InstancesPerTask(tasks []model.TaskType, horizon int) map[string]int {
	counts := make(map[string]int, len(tasks))
	for _, t := range tasks {
		if t.Period <= 0 || t.ReleaseOffset >= horizon {
			counts[t.ID] = 0
			continue
		}
		counts[t.ID] = (horizon-t.ReleaseOffset-1)/t.Period + 1
	}
	return counts
}
