// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/rtsched/model"
)

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type taskSetJSON struct {
	Name  string     `json:"name"`
	Tasks []taskJSON `json:"tasks"`
}

type taskJSON struct {
	ID     string `json:"id"`
	Period int    `json:"period"`
	// Execution is the per-instance budget; "burst_time" is accepted as an alias.
	Execution *int `json:"execution"`
	BurstTime *int `json:"burst_time,omitempty"`
	// Deadline is relative; defaults to the period when omitted.
	Deadline *int `json:"deadline"`
	// Offset is the first release; "arrival_time" is accepted as an alias.
	Offset      *int `json:"offset"`
	ArrivalTime *int `json:"arrival_time,omitempty"`
}

// LoadTaskSet reads a JSON task set from r.
//
// It fails on JSON / structural errors only; value checks (positive periods
// and so on) are left to ValidateTasks so that loaded and programmatic task
// lists go through the same path.
func LoadTaskSet(r io.Reader) (*model.TaskSet, error) {
	var payload taskSetJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadTaskSet: decode failed: %w", err)
	}

	ts := &model.TaskSet{
		Name:  strings.TrimSpace(payload.Name),
		Tasks: make([]model.TaskType, 0, len(payload.Tasks)),
	}
	for i, jt := range payload.Tasks {
		if strings.TrimSpace(jt.ID) == "" {
			return nil, fmt.Errorf("LoadTaskSet: task[%d] with empty id", i)
		}
		exec := firstSet(jt.Execution, jt.BurstTime)
		if exec == nil {
			return nil, fmt.Errorf("LoadTaskSet: task %q missing execution", jt.ID)
		}
		deadline := jt.Period
		if jt.Deadline != nil {
			deadline = *jt.Deadline
		}
		offset := 0
		if o := firstSet(jt.Offset, jt.ArrivalTime); o != nil {
			offset = *o
		}
		ts.Tasks = append(ts.Tasks, model.TaskType{
			ID:               strings.TrimSpace(jt.ID),
			Period:           jt.Period,
			ReleaseOffset:    offset,
			ExecutionBudget:  *exec,
			RelativeDeadline: deadline,
		})
	}
	return ts, nil
}

// EncodeTaskSet writes ts in the shape LoadTaskSet reads.
func EncodeTaskSet(w io.Writer, ts *model.TaskSet) error {
	if ts == nil {
		return fmt.Errorf("EncodeTaskSet: task set is nil")
	}
	payload := taskSetJSON{Name: ts.Name, Tasks: make([]taskJSON, 0, len(ts.Tasks))}
	for _, t := range ts.Tasks {
		exec, deadline, offset := t.ExecutionBudget, t.RelativeDeadline, t.ReleaseOffset
		payload.Tasks = append(payload.Tasks, taskJSON{
			ID:        t.ID,
			Period:    t.Period,
			Execution: &exec,
			Deadline:  &deadline,
			Offset:    &offset,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func firstSet(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
