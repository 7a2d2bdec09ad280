package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/render"
	"github.com/signalsfoundry/rtsched/internal/sim/batch"
	"github.com/signalsfoundry/rtsched/model"
	"github.com/signalsfoundry/rtsched/timectrl"
)

// demoTaskSet is used when no -tasks file is given.
var demoTaskSet = model.TaskSet{
	Name: "demo",
	Tasks: []model.TaskType{
		{ID: "P1", Period: 4, ExecutionBudget: 1, RelativeDeadline: 4},
		{ID: "P2", Period: 5, ExecutionBudget: 2, RelativeDeadline: 5},
		{ID: "P3", Period: 20, ExecutionBudget: 4, RelativeDeadline: 20},
	},
}

type options struct {
	tasksPath  string
	policy     string
	playback   bool
	realtime   bool
	tick       time.Duration
	asJSON     bool
	noColor    bool
	maxHorizon int
	logLevel   string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.tasksPath, "tasks", "", "task-set JSON file (\"-\" reads stdin; empty runs a demo set)")
	fs.StringVar(&opts.policy, "policy", "all", "rm, dm, edf, llf or all")
	fs.BoolVar(&opts.playback, "playback", false, "replay each schedule tick by tick")
	fs.BoolVar(&opts.realtime, "realtime", false, "pace playback at one tick per -tick")
	fs.DurationVar(&opts.tick, "tick", 200*time.Millisecond, "wall-clock duration of one tick during realtime playback")
	fs.BoolVar(&opts.asJSON, "json", false, "print results as JSON instead of tables")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable coloured output")
	fs.IntVar(&opts.maxHorizon, "max-horizon", core.DefaultMaxHorizon, "largest hyperperiod to simulate")
	fs.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.noColor || opts.asJSON {
		color.Disable()
	}

	log := logging.New(logging.Config{
		Level:  opts.logLevel,
		Format: envOr("LOG_FORMAT", "text"),
		Output: stderr,
	})

	ts, err := readTaskSet(opts.tasksPath)
	if err != nil {
		fmt.Fprintln(stderr, color.Red.Sprintf("cannot read task set: %v", err))
		return 1
	}
	if err := core.ValidateTasks(ts.Tasks); err != nil {
		fmt.Fprintln(stderr, color.Red.Sprintf("%v", err))
		return 1
	}

	policies, err := parsePolicies(opts.policy)
	if err != nil {
		fmt.Fprintln(stderr, color.Red.Sprintf("%v", err))
		return 2
	}

	if !opts.asJSON {
		render.TaskTable(stdout, ts.Tasks)
		report := core.CheckFeasibility(ts.Tasks)
		if !report.Feasible {
			fmt.Fprintln(stdout, color.Red.Sprintf("The system is not schedulable because %.2f > 1", report.UtilizationFloat))
			return 1
		}
		fmt.Fprintf(stdout, "Liu-Layland bound for %d tasks: %.4f (within: %t)\n",
			len(ts.Tasks), report.LiuLaylandBound, report.WithinLiuLayland)
	}

	var outcomes []batch.Outcome
	if opts.playback {
		outcomes = playbackAll(ctx, stdout, log, opts, ts.Tasks, policies)
	} else {
		engine := core.NewEngine(core.WithLogger(log), core.WithMaxHorizon(opts.maxHorizon))
		outcomes = batch.NewRunner(engine, log).Compare(ctx, ts.Tasks, policies)
	}

	if opts.asJSON {
		if err := writeJSON(stdout, outcomes); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return exitCode(outcomes)
	}
	for _, o := range outcomes {
		printOutcome(stdout, ts.Tasks, o)
	}
	return exitCode(outcomes)
}

// exitCode is 1 when any run was rejected for invalid or infeasible input.
// Deadline misses and drops are scheduling outcomes, not failures.
func exitCode(outcomes []batch.Outcome) int {
	for _, o := range outcomes {
		if o.Err != nil && !errors.Is(o.Err, core.ErrDeadlineMissed) {
			return 1
		}
	}
	return 0
}

func readTaskSet(path string) (*model.TaskSet, error) {
	switch path {
	case "":
		ts := demoTaskSet.Clone()
		return &ts, nil
	case "-":
		return core.LoadTaskSet(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadTaskSet(f)
}

func parsePolicies(s string) ([]model.PolicyName, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return model.AllPolicies(), nil
	}
	var out []model.PolicyName
	for _, part := range strings.Split(s, ",") {
		p, err := core.ParsePolicy(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// playbackAll simulates each policy in turn and replays its tick events
// through a TimeController.
func playbackAll(ctx context.Context, w io.Writer, log logging.Logger, opts options, tasks []model.TaskType, policies []model.PolicyName) []batch.Outcome {
	mode := timectrl.Accelerated
	if opts.realtime {
		mode = timectrl.RealTime
	}

	outcomes := make([]batch.Outcome, 0, len(policies))
	for _, p := range policies {
		var events []core.TickEvent
		engine := core.NewEngine(core.WithLogger(log), core.WithMaxHorizon(opts.maxHorizon))
		engine.RegisterTickListener(func(ev core.TickEvent) { events = append(events, ev) })

		res, err := engine.Simulate(ctx, tasks, p)
		outcomes = append(outcomes, batch.Outcome{Policy: p, Result: res, Err: err})

		fmt.Fprintln(w, color.Bold.Sprintf("== %s playback (%s) ==", p, mode))
		tc := timectrl.NewTimeController(opts.tick, mode)
		tc.AddListener(func(tick int) {
			if tick < len(events) {
				fmt.Fprintln(w, narrate(events[tick]))
			}
		})
		<-tc.Start(ctx, len(events))
		if err != nil {
			fmt.Fprintln(w, color.Red.Sprintf("stopped at tick %d: %v", len(events), err))
		}
	}
	return outcomes
}

// narrate describes one tick.
func narrate(ev core.TickEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%-4d ", ev.Tick)
	if ev.Idle {
		b.WriteString("idle")
	} else {
		fmt.Fprintf(&b, "%s#%d runs", ev.Job.TaskID, ev.Job.Release)
		if ev.Completed {
			b.WriteString(" and finishes")
		}
	}
	if len(ev.Released) > 0 {
		names := make([]string, 0, len(ev.Released))
		for _, k := range ev.Released {
			names = append(names, fmt.Sprintf("%s#%d", k.TaskID, k.Release))
		}
		fmt.Fprintf(&b, "  (released %s)", strings.Join(names, " "))
	}
	return b.String()
}

func printOutcome(w io.Writer, tasks []model.TaskType, o batch.Outcome) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Bold.Sprintf("== %s ==", o.Policy))

	if o.Err != nil {
		var miss *core.DeadlineMissedError
		switch {
		case errors.As(o.Err, &miss):
			fmt.Fprintln(w, color.Red.Sprintf("%s misses its deadline at time %d; %s cannot schedule this set", miss.TaskID, miss.Tick, o.Policy))
		default:
			fmt.Fprintln(w, color.Red.Sprintf("%v", o.Err))
		}
		return
	}

	render.IntervalTable(w, o.Result)
	render.Timeline(w, tasks, o.Result)
	render.Summary(w, o.Result)
	if len(o.Result.Drops) == 0 && len(o.Result.LateCompletions) == 0 {
		fmt.Fprintln(w, color.Green.Sprintf("every job met its deadline"))
	} else {
		fmt.Fprintln(w, color.Yellow.Sprintf("missed or dropped: %s", strings.Join(o.Result.MissedOrDropped, ", ")))
	}
}

type jsonOutcome struct {
	Policy string                `json:"policy"`
	Result *model.ScheduleResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func writeJSON(w io.Writer, outcomes []batch.Outcome) error {
	out := make([]jsonOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		jo := jsonOutcome{Policy: string(o.Policy), Result: o.Result}
		if o.Err != nil {
			jo.Error = o.Err.Error()
		}
		out = append(out, jo)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
