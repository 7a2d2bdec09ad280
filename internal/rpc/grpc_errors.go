package rpc

import (
	"context"
	"errors"

	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/kb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStatusError maps simulator errors onto gRPC status codes. Deadline
// misses carry the task id and tick as a Struct detail.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidTaskDefinition),
		errors.Is(err, core.ErrUnknownPolicy),
		errors.Is(err, kb.ErrTaskSetInvalid):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrTaskSetNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, kb.ErrTaskSetExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, core.ErrInfeasibleUtilization):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, core.ErrDeadlineMissed):
		st := status.New(codes.Aborted, err.Error())
		var miss *core.DeadlineMissedError
		if errors.As(err, &miss) {
			detail, derr := structpb.NewStruct(map[string]any{
				"task_id": miss.TaskID,
				"tick":    miss.Tick,
				"policy":  string(miss.Policy),
			})
			if derr == nil {
				if withDetail, werr := st.WithDetails(detail); werr == nil {
					st = withDetail
				}
			}
		}
		return st.Err()

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	case errors.Is(err, core.ErrHorizonTooLarge),
		errors.Is(err, core.ErrDomain):
		return status.Error(codes.OutOfRange, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// MissFromStatus extracts the task id and tick attached by ToStatusError to
// an Aborted status. ok is false when err carries no such detail.
func MissFromStatus(err error) (taskID string, tick int, ok bool) {
	st, isStatus := status.FromError(err)
	if !isStatus || st.Code() != codes.Aborted {
		return "", 0, false
	}
	for _, d := range st.Details() {
		s, isStruct := d.(*structpb.Struct)
		if !isStruct {
			continue
		}
		fields := s.GetFields()
		return fields["task_id"].GetStringValue(), int(fields["tick"].GetNumberValue()), true
	}
	return "", 0, false
}
