package core

import (
	"math/big"
	"sort"

	"github.com/signalsfoundry/rtsched/model"
)

// ReportInput carries everything BuildResult packages.
type ReportInput struct {
	Policy          model.PolicyName
	Tasks           []model.TaskType
	Horizon         int
	Utilization     *big.Rat
	Intervals       map[string][]model.Interval
	Drops           []model.Drop
	LateCompletions []model.LateCompletion
	IdleTicks       int
	// Missed lists additional task ids to report as missed.
	Missed []string
}

// BuildResult assembles a ScheduleResult. It has no side effects; every
// task id from the input appears in Intervals, possibly with no runs.
// Tasks with a drop or a late completion are listed in MissedOrDropped.
func BuildResult(in ReportInput) *model.ScheduleResult {
	res := &model.ScheduleResult{
		Policy:          in.Policy,
		Horizon:         in.Horizon,
		Utilization:     new(big.Rat),
		Intervals:       make(map[string][]model.Interval, len(in.Tasks)),
		TaskOrder:       make([]string, 0, len(in.Tasks)),
		Drops:           in.Drops,
		LateCompletions: in.LateCompletions,
		IdleTicks:       in.IdleTicks,
	}
	if in.Utilization != nil {
		res.Utilization.Set(in.Utilization)
	}

	for _, t := range in.Tasks {
		res.TaskOrder = append(res.TaskOrder, t.ID)
		runs := in.Intervals[t.ID]
		if runs == nil {
			runs = []model.Interval{}
		}
		res.Intervals[t.ID] = runs
		for _, iv := range runs {
			res.BusyTicks += iv.Len()
		}
	}

	missed := make(map[string]struct{})
	for _, d := range in.Drops {
		missed[d.TaskID] = struct{}{}
	}
	for _, l := range in.LateCompletions {
		missed[l.TaskID] = struct{}{}
	}
	for _, id := range in.Missed {
		missed[id] = struct{}{}
	}
	res.MissedOrDropped = make([]string, 0, len(missed))
	for id := range missed {
		res.MissedOrDropped = append(res.MissedOrDropped, id)
	}
	sort.Strings(res.MissedOrDropped)
	return res
}
