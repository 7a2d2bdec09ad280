// Package batch runs one task set under several scheduling policies in
// parallel so their schedules can be compared side by side.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/observability"
	"github.com/signalsfoundry/rtsched/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Simulator is the subset of core.Engine the runner needs.
type Simulator interface {
	Simulate(ctx context.Context, tasks []model.TaskType, policy model.PolicyName) (*model.ScheduleResult, error)
}

// DurationRecorder receives the wall-clock time of each comparison batch.
type DurationRecorder interface {
	ObserveCompare(d time.Duration)
}

// Outcome is the result of one policy within a batch. Exactly one of Result
// and Err is set.
type Outcome struct {
	Policy model.PolicyName
	Result *model.ScheduleResult
	Err    error
}

// Runner fans a task set out across policies.
type Runner struct {
	sim     Simulator
	log     logging.Logger
	metrics DurationRecorder
}

// Option customises a Runner.
type Option func(*Runner)

// WithDurationRecorder attaches a metrics recorder for batch durations.
func WithDurationRecorder(r DurationRecorder) Option {
	return func(rn *Runner) { rn.metrics = r }
}

// NewRunner constructs a Runner. A nil sim uses a default core.Engine.
func NewRunner(sim Simulator, log logging.Logger, opts ...Option) *Runner {
	if sim == nil {
		sim = core.NewEngine()
	}
	if log == nil {
		log = logging.Noop()
	}
	r := &Runner{sim: sim, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compare simulates tasks under every policy concurrently. Each run receives
// its own copy of the task list. Outcomes are returned in policy order; an
// empty policy list compares all supported policies.
func (r *Runner) Compare(ctx context.Context, tasks []model.TaskType, policies []model.PolicyName) []Outcome {
	if len(policies) == 0 {
		policies = model.AllPolicies()
	}
	batchID := uuid.NewString()
	log := r.log.With(logging.String("batch_id", batchID))

	ctx, span := observability.StartSpan(ctx, "rtsched/Compare",
		attribute.String("rtsched.batch_id", batchID),
		attribute.Int("rtsched.policies", len(policies)),
		attribute.Int("rtsched.tasks", len(tasks)),
	)
	defer span.End()

	start := time.Now()
	outcomes := make([]Outcome, len(policies))
	var wg sync.WaitGroup
	for i, p := range policies {
		wg.Add(1)
		go func(i int, p model.PolicyName, tasks []model.TaskType) {
			defer wg.Done()
			runCtx, runSpan := observability.StartSpan(ctx, "rtsched/Simulate",
				observability.SimulationAttributes(string(p), len(tasks))...)
			defer runSpan.End()

			res, err := r.sim.Simulate(runCtx, tasks, p)
			if err != nil {
				runSpan.RecordError(err)
				runSpan.SetStatus(codes.Error, err.Error())
			}
			outcomes[i] = Outcome{Policy: p, Result: res, Err: err}
		}(i, p, model.CloneTasks(tasks))
	}
	wg.Wait()

	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.ObserveCompare(elapsed)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	log.Info(ctx, "policy comparison complete",
		logging.Int("policies", len(policies)),
		logging.Int("failed", failed),
		logging.String("elapsed", elapsed.String()),
	)
	return outcomes
}
