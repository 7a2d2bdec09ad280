//go:build perf || perf_large

package perf

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/sim/batch"
	"github.com/signalsfoundry/rtsched/model"
)

type perfConfig struct {
	// Tasks is the number of task types in the generated set.
	Tasks int
	// Octaves bounds the harmonic period ladder 10, 20, 40, ... so the
	// hyperperiod is 10 * 2^(Octaves-1).
	Octaves int
}

// harmonicTaskSet spreads unit-budget tasks over a harmonic period ladder.
// Utilization stays at or below 1 as long as Tasks <= 5*Octaves.
func harmonicTaskSet(cfg perfConfig) []model.TaskType {
	tasks := make([]model.TaskType, 0, cfg.Tasks)
	for i := 0; i < cfg.Tasks; i++ {
		period := 10 << (i % cfg.Octaves)
		tasks = append(tasks, model.TaskType{
			ID:               fmt.Sprintf("T%d", i),
			Period:           period,
			ExecutionBudget:  1,
			RelativeDeadline: period,
		})
	}
	return tasks
}

func benchmarkSimulate(b *testing.B, cfg perfConfig, policy model.PolicyName) {
	ctx := context.Background()
	tasks := harmonicTaskSet(cfg)
	engine := core.NewEngine(core.WithLogger(logging.Noop()))
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		res, err := engine.Simulate(ctx, tasks, policy)
		if err != nil && !errors.Is(err, core.ErrDeadlineMissed) {
			b.Fatalf("Simulate(%s): %v", policy, err)
		}
		if err == nil && res.Horizon == 0 {
			b.Fatalf("Simulate(%s) returned an empty horizon", policy)
		}
	}
}

func benchmarkCompare(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	tasks := harmonicTaskSet(cfg)
	runner := batch.NewRunner(core.NewEngine(), logging.Noop())
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		outcomes := runner.Compare(ctx, tasks, nil)
		if len(outcomes) != len(model.AllPolicies()) {
			b.Fatalf("Compare returned %d outcomes, want %d", len(outcomes), len(model.AllPolicies()))
		}
	}
}
