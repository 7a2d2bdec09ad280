package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/model"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidRequest is used for malformed request documents.
var ErrInvalidRequest = errors.New("invalid request")

// SimulateRequest asks for one run. Exactly one of TaskSetName and TaskSet
// must be set; TaskSet uses the JSON task-set file format.
type SimulateRequest struct {
	Policy      string          `json:"policy"`
	TaskSetName string          `json:"task_set_name,omitempty"`
	TaskSet     json.RawMessage `json:"task_set,omitempty"`
}

// SimulateResponse carries the schedule of a successful run.
type SimulateResponse struct {
	Result ScheduleView `json:"result"`
}

// ScheduleView is the wire shape of model.ScheduleResult.
type ScheduleView struct {
	Policy             string                      `json:"policy"`
	Horizon            int                         `json:"horizon"`
	Utilization        string                      `json:"utilization"`
	UtilizationPercent float64                     `json:"utilization_percent"`
	Intervals          map[string][]model.Interval `json:"intervals"`
	TaskOrder          []string                    `json:"task_order"`
	MissedOrDropped    []string                    `json:"missed_or_dropped"`
	Drops              []model.Drop                `json:"drops,omitempty"`
	LateCompletions    []model.LateCompletion      `json:"late_completions,omitempty"`
	BusyTicks          int                         `json:"busy_ticks"`
	IdleTicks          int                         `json:"idle_ticks"`
}

// FeasibilityRequest asks for the utilization tests only.
type FeasibilityRequest struct {
	TaskSetName string          `json:"task_set_name,omitempty"`
	TaskSet     json.RawMessage `json:"task_set,omitempty"`
}

// FeasibilityResponse reports the utilization tests and hyperperiod.
type FeasibilityResponse struct {
	Utilization      string  `json:"utilization"`
	UtilizationFloat float64 `json:"utilization_float"`
	Feasible         bool    `json:"feasible"`
	LiuLaylandBound  float64 `json:"liu_layland_bound"`
	WithinLiuLayland bool    `json:"within_liu_layland"`
	Hyperperiod      int     `json:"hyperperiod"`
}

// CompareRequest runs several policies on one task set. An empty policy
// list compares every supported policy.
type CompareRequest struct {
	Policies    []string        `json:"policies,omitempty"`
	TaskSetName string          `json:"task_set_name,omitempty"`
	TaskSet     json.RawMessage `json:"task_set,omitempty"`
}

// CompareResponse lists one outcome per requested policy, in order.
type CompareResponse struct {
	Outcomes []OutcomeView `json:"outcomes"`
}

// OutcomeView is either a schedule or an error with its status code.
type OutcomeView struct {
	Policy string        `json:"policy"`
	Result *ScheduleView `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	Code   string        `json:"code,omitempty"`
}

// PutTaskSetRequest stores a task set; Replace allows overwriting.
type PutTaskSetRequest struct {
	TaskSet json.RawMessage `json:"task_set"`
	Replace bool            `json:"replace,omitempty"`
}

// TaskSetNameRequest addresses a stored task set.
type TaskSetNameRequest struct {
	Name string `json:"name"`
}

// ListTaskSetsRequest has no fields.
type ListTaskSetsRequest struct{}

// TaskSetResponse returns one task set in file format.
type TaskSetResponse struct {
	TaskSet json.RawMessage `json:"task_set"`
}

// ListTaskSetsResponse returns all stored task sets in file format.
type ListTaskSetsResponse struct {
	TaskSets []json.RawMessage `json:"task_sets"`
}

// Empty is returned by calls with no payload.
type Empty struct{}

// toStruct encodes a JSON-tagged value as a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}

// fromStruct decodes a protobuf Struct into a JSON-tagged value, rejecting
// unknown fields.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// scheduleView converts a result through its JSON form so the wire shape
// always matches model.ScheduleResult.MarshalJSON.
func scheduleView(res *model.ScheduleResult) (*ScheduleView, error) {
	if res == nil {
		return nil, nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var view ScheduleView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func decodeTaskSet(raw json.RawMessage) (*model.TaskSet, error) {
	ts, err := core.LoadTaskSet(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return ts, nil
}

func encodeTaskSet(ts model.TaskSet) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := core.EncodeTaskSet(&buf, &ts); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}
