package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/model"
)

// DefaultMaxHorizon bounds the number of ticks a single run may simulate.
const DefaultMaxHorizon = 1_000_000

// Run outcomes reported to a RunRecorder.
const (
	OutcomeScheduled  = "scheduled"
	OutcomeDropped    = "dropped"
	OutcomeLate       = "late"
	OutcomeMissed     = "missed"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeCancelled  = "cancelled"
)

// cancelCheckEvery is how many ticks pass between context checks.
const cancelCheckEvery = 1024

// TickEvent describes what happened on the processor during one tick.
type TickEvent struct {
	Tick int
	// Idle is true when no ready job existed.
	Idle bool
	// Job is the instance that ran; zero when Idle.
	Job model.InstanceKey
	// Completed is true when Job consumed its last tick of budget.
	Completed bool
	// Released lists jobs released at this tick.
	Released []model.InstanceKey
}

// RunRecorder receives one observation per Simulate call.
type RunRecorder interface {
	ObserveRun(policy model.PolicyName, outcome string, horizon int, utilization float64, drops int)
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRunRecorder attaches a metrics recorder.
func WithRunRecorder(r RunRecorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithMaxHorizon overrides DefaultMaxHorizon. Values <= 0 disable the limit.
func WithMaxHorizon(ticks int) EngineOption {
	return func(e *Engine) {
		e.maxHorizon = ticks
	}
}

// Engine runs discrete-time single-processor schedules. Configuration is
// fixed after construction and listener registration; Simulate keeps all
// working state per call and may be invoked concurrently.
type Engine struct {
	log           logging.Logger
	recorder      RunRecorder
	maxHorizon    int
	tickListeners []func(TickEvent)
}

// NewEngine constructs an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:        logging.Noop(),
		maxHorizon: DefaultMaxHorizon,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTickListener adds a callback invoked once per simulated tick.
func (e *Engine) RegisterTickListener(fn func(TickEvent)) {
	e.tickListeners = append(e.tickListeners, fn)
}

// Simulate runs tasks under the named policy with a default Engine.
func Simulate(tasks []model.TaskType, policy model.PolicyName) (*model.ScheduleResult, error) {
	return NewEngine().Simulate(context.Background(), tasks, policy)
}

// Simulate validates tasks, checks utilization, and runs one hyperperiod.
//
// Fixed-priority policies abort with *DeadlineMissedError when a job is
// released while its predecessor is unfinished; no result is returned then.
// Dynamic policies never abort: jobs unfinished at the horizon are reported
// as drops in the result.
func (e *Engine) Simulate(ctx context.Context, tasks []model.TaskType, name model.PolicyName) (*model.ScheduleResult, error) {
	log := e.log.With(logging.Policy(string(name)))

	policy, err := PolicyFor(name)
	if err != nil {
		e.observe(name, OutcomeInvalid, 0, 0, 0)
		return nil, err
	}

	tasks = model.CloneTasks(tasks)
	if err := ValidateTasks(tasks); err != nil {
		e.observe(name, OutcomeInvalid, 0, 0, 0)
		return nil, err
	}

	feas := CheckFeasibility(tasks)
	if !feas.Feasible {
		e.observe(name, OutcomeInfeasible, 0, feas.UtilizationFloat, 0)
		log.Info(ctx, "task set is not schedulable", logging.String("utilization", feas.Utilization.RatString()))
		return nil, fmt.Errorf("%w: utilization %s exceeds 1", ErrInfeasibleUtilization, feas.Utilization.RatString())
	}

	horizon, err := Hyperperiod(tasks)
	if err != nil {
		e.observe(name, OutcomeInvalid, 0, feas.UtilizationFloat, 0)
		return nil, err
	}
	if e.maxHorizon > 0 && horizon > e.maxHorizon {
		e.observe(name, OutcomeInvalid, horizon, feas.UtilizationFloat, 0)
		return nil, fmt.Errorf("%w: %d > %d ticks", ErrHorizonTooLarge, horizon, e.maxHorizon)
	}

	if !name.Dynamic() && !feas.WithinLiuLayland {
		log.Info(ctx, "utilization above Liu-Layland bound; schedulability not guaranteed",
			logging.Float64("utilization", feas.UtilizationFloat),
			logging.Float64("bound", feas.LiuLaylandBound),
		)
	}

	jobs, err := GenerateInstances(tasks, horizon, policy.StaticPriority)
	if err != nil {
		e.observe(name, OutcomeInvalid, horizon, feas.UtilizationFloat, 0)
		return nil, err
	}

	log.Debug(ctx, "starting simulation",
		logging.Int("horizon", horizon),
		logging.Int("tasks", len(tasks)),
		logging.Int("instances", len(jobs)),
	)

	r := newRun(policy, jobs, horizon)
	if err := r.execute(ctx, log, e.tickListeners); err != nil {
		if !errors.Is(err, ErrDeadlineMissed) {
			e.observe(name, OutcomeCancelled, horizon, feas.UtilizationFloat, 0)
			return nil, err
		}
		e.observe(name, OutcomeMissed, horizon, feas.UtilizationFloat, 0)
		var miss *DeadlineMissedError
		if errors.As(err, &miss) {
			log.Warn(ctx, "deadline missed; run aborted", logging.TaskID(miss.TaskID), logging.Tick(miss.Tick))
		} else {
			log.Warn(ctx, "deadline missed; run aborted", logging.Err(err))
		}
		return nil, err
	}

	intervals, _ := Coalesce(r.trace)
	result := BuildResult(ReportInput{
		Policy:          name,
		Tasks:           tasks,
		Horizon:         horizon,
		Utilization:     feas.Utilization,
		Intervals:       intervals,
		Drops:           r.drops,
		LateCompletions: r.late,
		IdleTicks:       r.idle,
	})

	outcome := OutcomeScheduled
	if len(result.LateCompletions) > 0 {
		outcome = OutcomeLate
		for _, l := range result.LateCompletions {
			log.Warn(ctx, "job passed its deadline",
				logging.TaskID(l.TaskID),
				logging.Int("release", l.Release),
				logging.Int("deadline", l.Deadline),
			)
		}
	}
	if len(result.Drops) > 0 {
		outcome = OutcomeDropped
		for _, d := range result.Drops {
			log.Warn(ctx, "job dropped due to overload",
				logging.TaskID(d.TaskID),
				logging.Int("release", d.Release),
				logging.Int("remaining", d.Remaining),
				logging.Int("at", d.At),
			)
		}
	}
	e.observe(name, outcome, horizon, feas.UtilizationFloat, len(result.Drops))
	log.Info(ctx, "simulation complete",
		logging.Int("horizon", horizon),
		logging.Int("busy_ticks", result.BusyTicks),
		logging.Int("drops", len(result.Drops)),
		logging.Int("late", len(result.LateCompletions)),
	)
	return result, nil
}

func (e *Engine) observe(name model.PolicyName, outcome string, horizon int, util float64, drops int) {
	if e.recorder == nil {
		return
	}
	e.recorder.ObserveRun(name, outcome, horizon, util, drops)
}

// run is the per-call working state: nothing here outlives Simulate.
type run struct {
	policy  Policy
	horizon int

	pending []model.TaskInstance
	next    int
	ready   []*model.TaskInstance
	// live counts unfinished released jobs per task.
	live map[string]int

	trace []model.Occupancy
	late  []model.LateCompletion
	drops []model.Drop
	idle  int
}

func newRun(policy Policy, jobs []model.TaskInstance, horizon int) *run {
	return &run{
		policy:  policy,
		horizon: horizon,
		pending: jobs,
		live:    make(map[string]int),
		trace:   make([]model.Occupancy, 0, horizon),
	}
}

func (r *run) execute(ctx context.Context, log logging.Logger, listeners []func(TickEvent)) error {
	for t := 0; t < r.horizon; t++ {
		if t%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		released, err := r.release(t)
		if err != nil {
			return err
		}

		if !r.policy.AbortOnOverlap() {
			r.flagLate(t)
		}

		ev := TickEvent{Tick: t, Released: released}
		idx := r.selectJob(t)
		if idx < 0 {
			r.idle++
			ev.Idle = true
			log.Debug(ctx, "no task uses the processor", logging.Tick(t))
		} else {
			job := r.ready[idx]
			job.Remaining--
			r.trace = append(r.trace, model.Occupancy{Tick: t, TaskID: job.Key.TaskID})
			ev.Job = job.Key
			if job.Done() {
				ev.Completed = true
				r.ready = slices.Delete(r.ready, idx, idx+1)
				r.live[job.Key.TaskID]--
			}
			log.Debug(ctx, "task uses the processor",
				logging.Tick(t),
				logging.TaskID(job.Key.TaskID),
				logging.Int("release", job.Key.Release),
				logging.Int("executed", job.Budget-job.Remaining),
				logging.Int("budget", job.Budget),
				logging.Bool("finished", ev.Completed),
			)
		}

		for _, fn := range listeners {
			fn(ev)
		}
	}

	for _, job := range r.ready {
		r.drops = append(r.drops, model.Drop{
			TaskID:    job.Key.TaskID,
			Release:   job.Key.Release,
			Remaining: job.Remaining,
			At:        r.horizon,
		})
	}
	return nil
}

// release admits every job whose release time is t.
func (r *run) release(t int) ([]model.InstanceKey, error) {
	var released []model.InstanceKey
	for r.next < len(r.pending) && r.pending[r.next].Key.Release <= t {
		job := &r.pending[r.next]
		r.next++
		if r.policy.AbortOnOverlap() && r.live[job.Key.TaskID] > 0 {
			return nil, &DeadlineMissedError{TaskID: job.Key.TaskID, Tick: t, Policy: r.policy.Name()}
		}
		r.ready = append(r.ready, job)
		r.live[job.Key.TaskID]++
		released = append(released, job.Key)
	}
	return released, nil
}

// flagLate records each job still unfinished at its absolute deadline once.
func (r *run) flagLate(t int) {
	for _, job := range r.ready {
		if job.AbsoluteDeadline == t {
			r.late = append(r.late, model.LateCompletion{
				TaskID:   job.Key.TaskID,
				Release:  job.Key.Release,
				Deadline: job.AbsoluteDeadline,
			})
		}
	}
}

// selectJob returns the index of the highest-priority ready job, or -1.
func (r *run) selectJob(t int) int {
	best := -1
	var bestKey PriorityKey
	for i, job := range r.ready {
		k := r.policy.Key(job, t)
		if best < 0 || k.Less(bestKey) {
			best, bestKey = i, k
		}
	}
	return best
}
