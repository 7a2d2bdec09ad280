package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "rtsched.v1.SchedulerService"

// SchedulerServer is the server API for the scheduler service. Every method
// exchanges google.protobuf.Struct documents whose shapes are the request
// and response types in this package.
type SchedulerServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckFeasibility(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Compare(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PutTaskSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTaskSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTaskSets(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTaskSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type methodFunc func(SchedulerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call methodFunc) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SchedulerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SchedulerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SchedulerServiceDesc describes the service for grpc.Server.RegisterService.
var SchedulerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler("Simulate", SchedulerServer.Simulate)},
		{MethodName: "CheckFeasibility", Handler: unaryHandler("CheckFeasibility", SchedulerServer.CheckFeasibility)},
		{MethodName: "Compare", Handler: unaryHandler("Compare", SchedulerServer.Compare)},
		{MethodName: "PutTaskSet", Handler: unaryHandler("PutTaskSet", SchedulerServer.PutTaskSet)},
		{MethodName: "GetTaskSet", Handler: unaryHandler("GetTaskSet", SchedulerServer.GetTaskSet)},
		{MethodName: "ListTaskSets", Handler: unaryHandler("ListTaskSets", SchedulerServer.ListTaskSets)},
		{MethodName: "DeleteTaskSet", Handler: unaryHandler("DeleteTaskSet", SchedulerServer.DeleteTaskSet)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "google/protobuf/struct.proto",
}

// RegisterSchedulerServer registers srv on s.
func RegisterSchedulerServer(s grpc.ServiceRegistrar, srv SchedulerServer) {
	s.RegisterService(&SchedulerServiceDesc, srv)
}

// SchedulerClient is a typed client for the scheduler service.
type SchedulerClient struct {
	cc grpc.ClientConnInterface
}

// NewSchedulerClient wraps a client connection.
func NewSchedulerClient(cc grpc.ClientConnInterface) *SchedulerClient {
	return &SchedulerClient{cc: cc}
}

func (c *SchedulerClient) call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return fromStruct(out, resp)
}

// Simulate runs one policy on a task set.
func (c *SchedulerClient) Simulate(ctx context.Context, req SimulateRequest, opts ...grpc.CallOption) (*SimulateResponse, error) {
	var resp SimulateResponse
	if err := c.call(ctx, "Simulate", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckFeasibility runs the utilization tests.
func (c *SchedulerClient) CheckFeasibility(ctx context.Context, req FeasibilityRequest, opts ...grpc.CallOption) (*FeasibilityResponse, error) {
	var resp FeasibilityResponse
	if err := c.call(ctx, "CheckFeasibility", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compare runs several policies on one task set.
func (c *SchedulerClient) Compare(ctx context.Context, req CompareRequest, opts ...grpc.CallOption) (*CompareResponse, error) {
	var resp CompareResponse
	if err := c.call(ctx, "Compare", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PutTaskSet stores a task set on the server.
func (c *SchedulerClient) PutTaskSet(ctx context.Context, req PutTaskSetRequest, opts ...grpc.CallOption) (*TaskSetResponse, error) {
	var resp TaskSetResponse
	if err := c.call(ctx, "PutTaskSet", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTaskSet fetches a stored task set.
func (c *SchedulerClient) GetTaskSet(ctx context.Context, req TaskSetNameRequest, opts ...grpc.CallOption) (*TaskSetResponse, error) {
	var resp TaskSetResponse
	if err := c.call(ctx, "GetTaskSet", req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTaskSets lists stored task sets.
func (c *SchedulerClient) ListTaskSets(ctx context.Context, opts ...grpc.CallOption) (*ListTaskSetsResponse, error) {
	var resp ListTaskSetsResponse
	if err := c.call(ctx, "ListTaskSets", ListTaskSetsRequest{}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTaskSet removes a stored task set.
func (c *SchedulerClient) DeleteTaskSet(ctx context.Context, req TaskSetNameRequest, opts ...grpc.CallOption) error {
	return c.call(ctx, "DeleteTaskSet", req, &Empty{}, opts...)
}
