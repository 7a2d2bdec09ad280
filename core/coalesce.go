package core

import (
	"sort"

	"github.com/signalsfoundry/rtsched/model"
)

// Coalesce turns a chronological occupancy trace into per-task intervals.
// A tick extends the task's last interval when that interval ends at the
// tick; otherwise it opens [t, t+1). The second return value lists task ids
// in first-seen order.
func Coalesce(trace []model.Occupancy) (map[string][]model.Interval, []string) {
	intervals := make(map[string][]model.Interval)
	var order []string
	for _, occ := range trace {
		runs, seen := intervals[occ.TaskID]
		if !seen {
			order = append(order, occ.TaskID)
		}
		if n := len(runs); n > 0 && runs[n-1].End == occ.Tick {
			runs[n-1].End = occ.Tick + 1
		} else {
			runs = append(runs, model.Interval{Start: occ.Tick, End: occ.Tick + 1})
		}
		intervals[occ.TaskID] = runs
	}
	return intervals, order
}

// MergeIntervals sorts intervals and merges any that touch or overlap. It is
// a no-op on Coalesce output.
func MergeIntervals(in []model.Interval) []model.Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]model.Interval, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []model.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Expand converts intervals back into an occupancy trace ordered by tick.
func Expand(intervals map[string][]model.Interval) []model.Occupancy {
	var trace []model.Occupancy
	for id, runs := range intervals {
		for _, iv := range runs {
			for t := iv.Start; t < iv.End; t++ {
				trace = append(trace, model.Occupancy{Tick: t, TaskID: id})
			}
		}
	}
	sort.SliceStable(trace, func(i, j int) bool {
		if trace[i].Tick != trace[j].Tick {
			return trace[i].Tick < trace[j].Tick
		}
		return trace[i].TaskID < trace[j].TaskID
	})
	return trace
}
