package core

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/signalsfoundry/rtsched/model"
)

// GCD returns the greatest common divisor of |a| and |b|. Both inputs being
// zero is a domain error.
func GCD(a, b int) (int, error) {
	a, b = abs(a), abs(b)
	if a == 0 && b == 0 {
		return 0, fmt.Errorf("%w: gcd(0, 0) is undefined", ErrDomain)
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a, nil
}

// LCM returns the least common multiple of |a| and |b|.
//
// By convention LCM returns 0 when either input is 0; callers folding
// periods should use LCMOfAll, which rejects zero entries instead.
func LCM(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	g, err := GCD(a, b)
	if err != nil {
		return 0, err
	}
	q := uint64(abs(a) / g)
	hi, lo := bits.Mul64(q, uint64(abs(b)))
	if hi != 0 || lo > math.MaxInt {
		return 0, fmt.Errorf("%w: lcm(%d, %d)", ErrHorizonOverflow, a, b)
	}
	return int(lo), nil
}

// LCMOfAll left-folds LCM over periods. Empty input and non-positive entries
// are domain errors.
func LCMOfAll(periods []int) (int, error) {
	if len(periods) == 0 {
		return 0, fmt.Errorf("%w: lcm of an empty sequence", ErrDomain)
	}
	acc := 0
	for i, p := range periods {
		if p <= 0 {
			return 0, fmt.Errorf("%w: period[%d] = %d is not positive", ErrDomain, i, p)
		}
		if i == 0 {
			acc = p
			continue
		}
		next, err := LCM(acc, p)
		if err != nil {
			return 0, err
		}
		acc = next
	}
	return acc, nil
}

// Hyperperiod returns the LCM of all task periods.
func Hyperperiod(tasks []model.TaskType) (int, error) {
	periods := make([]int, 0, len(tasks))
	for _, t := range tasks {
		periods = append(periods, t.Period)
	}
	return LCMOfAll(periods)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
