package model

import (
	"encoding/json"
	"math/big"
)

// Interval is a half-open tick range [Start, End).
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of ticks covered.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Occupancy records that TaskID held the processor during Tick.
type Occupancy struct {
	Tick   int
	TaskID string
}

// Drop describes a job still unfinished when the horizon ended.
type Drop struct {
	TaskID    string `json:"task_id"`
	Release   int    `json:"release"`
	Remaining int    `json:"remaining"`
	At        int    `json:"at"`
}

// LateCompletion describes a job that was still running at its absolute
// deadline under a dynamic-priority policy.
type LateCompletion struct {
	TaskID   string `json:"task_id"`
	Release  int    `json:"release"`
	Deadline int    `json:"deadline"`
}

// ScheduleResult is the outcome of one simulation run.
type ScheduleResult struct {
	Policy PolicyName
	// Horizon is the hyperperiod (LCM of all periods).
	Horizon int
	// Utilization is Σ execution/period, kept exact.
	Utilization *big.Rat
	// Intervals maps task id to its chronological, non-adjacent runs.
	Intervals map[string][]Interval
	// TaskOrder lists task ids in input order.
	TaskOrder []string
	// MissedOrDropped holds the sorted ids of tasks that missed or dropped
	// a job. Empty on success.
	MissedOrDropped []string
	Drops           []Drop
	LateCompletions []LateCompletion
	BusyTicks       int
	IdleTicks       int
}

// Occupied returns the number of ticks the task held the processor.
func (r *ScheduleResult) Occupied(taskID string) int {
	if r == nil {
		return 0
	}
	total := 0
	for _, iv := range r.Intervals[taskID] {
		total += iv.Len()
	}
	return total
}

// Missed reports whether taskID appears in MissedOrDropped.
func (r *ScheduleResult) Missed(taskID string) bool {
	if r == nil {
		return false
	}
	for _, id := range r.MissedOrDropped {
		if id == taskID {
			return true
		}
	}
	return false
}

// UtilizationFloat returns the utilization as a float64.
func (r *ScheduleResult) UtilizationFloat() float64 {
	if r == nil || r.Utilization == nil {
		return 0
	}
	f, _ := r.Utilization.Float64()
	return f
}

type scheduleResultJSON struct {
	Policy             PolicyName            `json:"policy"`
	Horizon            int                   `json:"horizon"`
	Utilization        string                `json:"utilization"`
	UtilizationPercent float64               `json:"utilization_percent"`
	Intervals          map[string][]Interval `json:"intervals"`
	TaskOrder          []string              `json:"task_order"`
	MissedOrDropped    []string              `json:"missed_or_dropped"`
	Drops              []Drop                `json:"drops,omitempty"`
	LateCompletions    []LateCompletion      `json:"late_completions,omitempty"`
	BusyTicks          int                   `json:"busy_ticks"`
	IdleTicks          int                   `json:"idle_ticks"`
}

// MarshalJSON emits utilization as an exact ratio string plus a percentage.
func (r ScheduleResult) MarshalJSON() ([]byte, error) {
	util := "0"
	if r.Utilization != nil {
		util = r.Utilization.RatString()
	}
	missed := r.MissedOrDropped
	if missed == nil {
		missed = []string{}
	}
	return json.Marshal(scheduleResultJSON{
		Policy:             r.Policy,
		Horizon:            r.Horizon,
		Utilization:        util,
		UtilizationPercent: r.UtilizationFloat() * 100,
		Intervals:          r.Intervals,
		TaskOrder:          r.TaskOrder,
		MissedOrDropped:    missed,
		Drops:              r.Drops,
		LateCompletions:    r.LateCompletions,
		BusyTicks:          r.BusyTicks,
		IdleTicks:          r.IdleTicks,
	})
}
