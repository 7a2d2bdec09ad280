package core

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/rtsched/model"
)

// ValidateTasks performs structural validation on a task list before any
// simulation work begins.
func ValidateTasks(tasks []model.TaskType) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: task list is empty", ErrInvalidTaskDefinition)
	}
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: task[%d] id is required", ErrInvalidTaskDefinition, i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidTaskDefinition, t.ID)
		}
		seen[t.ID] = struct{}{}

		switch {
		case t.Period <= 0:
			return fmt.Errorf("%w: task %q period must be positive, got %d", ErrInvalidTaskDefinition, t.ID, t.Period)
		case t.ExecutionBudget <= 0:
			return fmt.Errorf("%w: task %q execution budget must be positive, got %d", ErrInvalidTaskDefinition, t.ID, t.ExecutionBudget)
		case t.RelativeDeadline <= 0:
			return fmt.Errorf("%w: task %q relative deadline must be positive, got %d", ErrInvalidTaskDefinition, t.ID, t.RelativeDeadline)
		case t.ReleaseOffset < 0:
			return fmt.Errorf("%w: task %q release offset must not be negative, got %d", ErrInvalidTaskDefinition, t.ID, t.ReleaseOffset)
		}
	}
	return nil
}
