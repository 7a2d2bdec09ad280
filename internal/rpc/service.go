package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/sim/batch"
	"github.com/signalsfoundry/rtsched/kb"
	"github.com/signalsfoundry/rtsched/model"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// SchedulerService implements SchedulerServer on top of the simulation
// engine, the comparison runner and the task-set store.
type SchedulerService struct {
	sim    batch.Simulator
	runner *batch.Runner
	store  *kb.KnowledgeBase
	log    logging.Logger
}

var _ SchedulerServer = (*SchedulerService)(nil)

// NewSchedulerService wires the service. A nil sim uses a default engine; a
// nil runner fans out over sim; a nil store starts empty.
func NewSchedulerService(sim batch.Simulator, runner *batch.Runner, store *kb.KnowledgeBase, log logging.Logger) *SchedulerService {
	if log == nil {
		log = logging.Noop()
	}
	if sim == nil {
		sim = core.NewEngine(core.WithLogger(log))
	}
	if runner == nil {
		runner = batch.NewRunner(sim, log)
	}
	if store == nil {
		store = kb.NewKnowledgeBase(nil)
	}
	return &SchedulerService{sim: sim, runner: runner, store: store, log: log}
}

// Simulate runs one policy over one hyperperiod.
func (s *SchedulerService) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)

	var req SimulateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	policy, err := core.ParsePolicy(req.Policy)
	if err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := s.resolveTaskSet(req.TaskSetName, req.TaskSet)
	if err != nil {
		return nil, ToStatusError(err)
	}

	ctx, span := startChildSpan(ctx, "rtsched/Simulate", ts.Name,
		attribute.String("rtsched.policy", string(policy)),
		attribute.Int("rtsched.tasks", len(ts.Tasks)),
	)
	defer span.End()

	res, err := s.sim.Simulate(ctx, ts.Tasks, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		log.Info(ctx, "simulation rejected",
			logging.TaskSet(ts.Name),
			logging.Policy(string(policy)),
			logging.Err(err),
		)
		return nil, ToStatusError(err)
	}

	view, err := scheduleView(res)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(SimulateResponse{Result: *view})
	return out, ToStatusError(err)
}

// CheckFeasibility reports utilization, the Liu-Layland test and the
// hyperperiod without running a schedule.
func (s *SchedulerService) CheckFeasibility(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req FeasibilityRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := s.resolveTaskSet(req.TaskSetName, req.TaskSet)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := core.ValidateTasks(ts.Tasks); err != nil {
		return nil, ToStatusError(err)
	}

	_, span := startChildSpan(ctx, "rtsched/CheckFeasibility", ts.Name)
	defer span.End()

	report := core.CheckFeasibility(ts.Tasks)
	horizon, err := core.Hyperperiod(ts.Tasks)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(FeasibilityResponse{
		Utilization:      report.Utilization.RatString(),
		UtilizationFloat: report.UtilizationFloat,
		Feasible:         report.Feasible,
		LiuLaylandBound:  report.LiuLaylandBound,
		WithinLiuLayland: report.WithinLiuLayland,
		Hyperperiod:      horizon,
	})
	return out, ToStatusError(err)
}

// Compare runs several policies concurrently. Per-policy failures are
// reported inside the response rather than failing the call.
func (s *SchedulerService) Compare(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CompareRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	policies := make([]model.PolicyName, 0, len(req.Policies))
	for _, p := range req.Policies {
		name, err := core.ParsePolicy(p)
		if err != nil {
			return nil, ToStatusError(err)
		}
		policies = append(policies, name)
	}
	ts, err := s.resolveTaskSet(req.TaskSetName, req.TaskSet)
	if err != nil {
		return nil, ToStatusError(err)
	}

	outcomes := s.runner.Compare(ctx, ts.Tasks, policies)
	resp := CompareResponse{Outcomes: make([]OutcomeView, 0, len(outcomes))}
	for _, o := range outcomes {
		view := OutcomeView{Policy: string(o.Policy)}
		if o.Err != nil {
			view.Error = o.Err.Error()
			view.Code = status.Code(ToStatusError(o.Err)).String()
		} else {
			sv, err := scheduleView(o.Result)
			if err != nil {
				return nil, ToStatusError(err)
			}
			view.Result = sv
		}
		resp.Outcomes = append(resp.Outcomes, view)
	}
	out, err := toStruct(resp)
	return out, ToStatusError(err)
}

// PutTaskSet stores a task set after validating it.
func (s *SchedulerService) PutTaskSet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)

	var req PutTaskSetRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if len(req.TaskSet) == 0 {
		return nil, ToStatusError(fmt.Errorf("%w: task_set is required", ErrInvalidRequest))
	}
	ts, err := decodeTaskSet(req.TaskSet)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := core.ValidateTasks(ts.Tasks); err != nil {
		return nil, ToStatusError(err)
	}

	if req.Replace {
		err = s.store.PutTaskSet(*ts)
	} else {
		err = s.store.AddTaskSet(*ts)
	}
	if err != nil {
		return nil, ToStatusError(err)
	}
	log.Info(ctx, "task set stored",
		logging.TaskSet(ts.Name),
		logging.Int("tasks", len(ts.Tasks)),
	)
	return s.taskSetResponse(*ts)
}

// GetTaskSet returns a stored task set.
func (s *SchedulerService) GetTaskSet(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TaskSetNameRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	ts, err := s.store.GetTaskSet(req.Name)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.taskSetResponse(ts)
}

// ListTaskSets returns every stored task set ordered by name.
func (s *SchedulerService) ListTaskSets(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListTaskSetsRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	sets := s.store.ListTaskSets()
	resp := ListTaskSetsResponse{TaskSets: make([]json.RawMessage, 0, len(sets))}
	for _, ts := range sets {
		raw, err := encodeTaskSet(ts)
		if err != nil {
			return nil, ToStatusError(err)
		}
		resp.TaskSets = append(resp.TaskSets, raw)
	}
	out, err := toStruct(resp)
	return out, ToStatusError(err)
}

// DeleteTaskSet removes a stored task set.
func (s *SchedulerService) DeleteTaskSet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TaskSetNameRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.store.DeleteTaskSet(req.Name); err != nil {
		return nil, ToStatusError(err)
	}
	logging.FromContext(ctx, s.log).Info(ctx, "task set deleted", logging.TaskSet(req.Name))
	out, err := toStruct(Empty{})
	return out, ToStatusError(err)
}

func (s *SchedulerService) taskSetResponse(ts model.TaskSet) (*structpb.Struct, error) {
	raw, err := encodeTaskSet(ts)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(TaskSetResponse{TaskSet: raw})
	return out, ToStatusError(err)
}

// resolveTaskSet picks either the named stored set or the inline document.
func (s *SchedulerService) resolveTaskSet(name string, inline json.RawMessage) (*model.TaskSet, error) {
	switch {
	case name != "" && len(inline) > 0:
		return nil, fmt.Errorf("%w: set only one of task_set_name and task_set", ErrInvalidRequest)
	case name != "":
		ts, err := s.store.GetTaskSet(name)
		if err != nil {
			return nil, err
		}
		return &ts, nil
	case len(inline) > 0:
		return decodeTaskSet(inline)
	default:
		return nil, fmt.Errorf("%w: task_set_name or task_set is required", ErrInvalidRequest)
	}
}
