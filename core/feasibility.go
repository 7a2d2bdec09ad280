package core

import (
	"math"
	"math/big"

	"github.com/signalsfoundry/rtsched/model"
)

// FeasibilityReport summarises the utilization tests for a task set.
type FeasibilityReport struct {
	Utilization      *big.Rat
	UtilizationFloat float64
	// Feasible is the necessary test Σ(e/p) <= 1, compared exactly.
	Feasible bool
	// LiuLaylandBound is n(2^(1/n) - 1). Being within it is sufficient for
	// RM; exceeding it is not a failure.
	LiuLaylandBound  float64
	WithinLiuLayland bool
}

// Utilization returns Σ(execution/period) as an exact rational. Tasks with a
// non-positive period are skipped; ValidateTasks rejects them earlier.
func Utilization(tasks []model.TaskType) *big.Rat {
	sum := new(big.Rat)
	for _, t := range tasks {
		if t.Period <= 0 {
			continue
		}
		sum.Add(sum, big.NewRat(int64(t.ExecutionBudget), int64(t.Period)))
	}
	return sum
}

// IsFeasible reports whether Σ(execution/period) <= 1.
func IsFeasible(tasks []model.TaskType) bool {
	return Utilization(tasks).Cmp(big.NewRat(1, 1)) <= 0
}

// LiuLaylandBound returns n(2^(1/n) - 1), or 0 for n <= 0.
func LiuLaylandBound(n int) float64 {
	if n <= 0 {
		return 0
	}
	fn := float64(n)
	return fn * (math.Pow(2, 1/fn) - 1)
}

// CheckFeasibility runs both utilization tests.
func CheckFeasibility(tasks []model.TaskType) FeasibilityReport {
	u := Utilization(tasks)
	uf, _ := u.Float64()
	bound := LiuLaylandBound(len(tasks))
	return FeasibilityReport{
		Utilization:      u,
		UtilizationFloat: uf,
		Feasible:         u.Cmp(big.NewRat(1, 1)) <= 0,
		LiuLaylandBound:  bound,
		WithinLiuLayland: uf <= bound,
	}
}
