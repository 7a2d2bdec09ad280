package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/rtsched/model"
)

var (
	// ErrInvalidTaskDefinition indicates malformed input: non-positive
	// period/budget/deadline, negative offset, missing or duplicate ids or an
	// empty task list.
	ErrInvalidTaskDefinition = errors.New("invalid task definition")
	// ErrInfeasibleUtilization indicates Σ(execution/period) > 1.
	ErrInfeasibleUtilization = errors.New("infeasible utilization")
	// ErrDeadlineMissed indicates a fixed-priority run aborted on a miss.
	ErrDeadlineMissed = errors.New("deadline missed")
	// ErrDomain indicates GCD/LCM on degenerate input.
	ErrDomain = errors.New("number theory domain error")
	// ErrHorizonOverflow indicates the hyperperiod does not fit in an int.
	ErrHorizonOverflow = fmt.Errorf("%w: hyperperiod overflows int", ErrDomain)
	// ErrHorizonTooLarge indicates the hyperperiod exceeds the engine limit.
	ErrHorizonTooLarge = errors.New("hyperperiod exceeds simulation limit")
	// ErrUnknownPolicy indicates an unsupported policy name.
	ErrUnknownPolicy = errors.New("unknown scheduling policy")
)

// DeadlineMissedError reports the task and tick at which a fixed-priority
// run aborted: a new instance was released while the previous one of the
// same task still had budget left.
type DeadlineMissedError struct {
	TaskID string
	Tick   int
	Policy model.PolicyName
}

func (e *DeadlineMissedError) Error() string {
	return fmt.Sprintf("deadline missed for %s at tick %d under %s", e.TaskID, e.Tick, e.Policy)
}

// Unwrap lets errors.Is match ErrDeadlineMissed.
func (e *DeadlineMissedError) Unwrap() error { return ErrDeadlineMissed }
