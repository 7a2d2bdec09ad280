package core

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/signalsfoundry/rtsched/model"
)

func TestBuildResult(t *testing.T) {
	util := big.NewRat(3, 4)
	tasks := []model.TaskType{{ID: "Z"}, {ID: "A"}, {ID: "M"}}
	res := BuildResult(ReportInput{
		Policy:      model.PolicyLLF,
		Tasks:       tasks,
		Horizon:     8,
		Utilization: util,
		Intervals: map[string][]model.Interval{
			"Z": {{Start: 0, End: 2}},
			"A": {{Start: 2, End: 3}, {Start: 4, End: 6}},
		},
		Drops:     []model.Drop{{TaskID: "Z", Release: 4, Remaining: 1, At: 8}},
		IdleTicks: 3,
		Missed:    []string{"A"},
	})

	if res.Policy != model.PolicyLLF || res.Horizon != 8 {
		t.Fatalf("header = %s/%d, want LLF/8", res.Policy, res.Horizon)
	}
	if !reflect.DeepEqual(res.TaskOrder, []string{"Z", "A", "M"}) {
		t.Fatalf("TaskOrder = %v, want input order", res.TaskOrder)
	}
	if runs, ok := res.Intervals["M"]; !ok || runs == nil || len(runs) != 0 {
		t.Fatalf("Intervals[M] = %v (present %v), want empty non-nil slice", runs, ok)
	}
	if res.BusyTicks != 5 || res.IdleTicks != 3 {
		t.Fatalf("busy/idle = %d/%d, want 5/3", res.BusyTicks, res.IdleTicks)
	}
	if !reflect.DeepEqual(res.MissedOrDropped, []string{"A", "Z"}) {
		t.Fatalf("MissedOrDropped = %v, want [A Z]", res.MissedOrDropped)
	}

	util.SetInt64(9)
	if res.Utilization.Cmp(big.NewRat(3, 4)) != 0 {
		t.Fatalf("Utilization aliased caller value: %s", res.Utilization.RatString())
	}
}

func TestBuildResultListsLateCompletions(t *testing.T) {
	res := BuildResult(ReportInput{
		Policy:          model.PolicyLLFEDF,
		Tasks:           []model.TaskType{{ID: "A"}, {ID: "B"}},
		Horizon:         4,
		LateCompletions: []model.LateCompletion{{TaskID: "B", Release: 0, Deadline: 3}},
	})
	if !reflect.DeepEqual(res.MissedOrDropped, []string{"B"}) {
		t.Fatalf("MissedOrDropped = %v, want [B]", res.MissedOrDropped)
	}
	if len(res.Drops) != 0 {
		t.Fatalf("Drops = %+v, want none", res.Drops)
	}
}
