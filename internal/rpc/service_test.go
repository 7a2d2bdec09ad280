package rpc

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/sim/batch"
	"github.com/signalsfoundry/rtsched/kb"
	"github.com/signalsfoundry/rtsched/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const scenarioA = `{"name": "scenario-a", "tasks": [
	{"id": "P1", "period": 4, "execution": 1},
	{"id": "P2", "period": 5, "execution": 2},
	{"id": "P3", "period": 20, "execution": 4}
]}`

const rmMiss = `{"name": "rm-miss", "tasks": [
	{"id": "A", "period": 4, "execution": 2},
	{"id": "B", "period": 6, "execution": 3}
]}`

const overloaded = `{"name": "overloaded", "tasks": [
	{"id": "A", "period": 5, "execution": 4},
	{"id": "B", "period": 5, "execution": 2}
]}`

// startServer serves a SchedulerService over a loopback listener and
// returns a connected client.
func startServer(t *testing.T, log logging.Logger) (*SchedulerClient, *kb.KnowledgeBase) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	store := kb.NewKnowledgeBase(nil)
	engine := core.NewEngine(core.WithLogger(log))
	svc := NewSchedulerService(engine, batch.NewRunner(engine, log), store, log)

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	))
	RegisterSchedulerServer(server, svc)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewSchedulerClient(conn), store
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSimulateInlineTaskSet(t *testing.T) {
	client, _ := startServer(t, logging.Noop())
	ctx := testContext(t)

	resp, err := client.Simulate(ctx, SimulateRequest{Policy: "rm", TaskSet: json.RawMessage(scenarioA)})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	res := resp.Result
	if res.Policy != "RM" || res.Horizon != 20 || res.Utilization != "17/20" {
		t.Fatalf("result header = %s/%d/%s, want RM/20/17/20", res.Policy, res.Horizon, res.Utilization)
	}
	want := []model.Interval{{Start: 0, End: 1}, {Start: 4, End: 5}, {Start: 8, End: 9}, {Start: 12, End: 13}, {Start: 16, End: 17}}
	got := res.Intervals["P1"]
	if len(got) != len(want) {
		t.Fatalf("P1 intervals = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("P1 intervals = %v, want %v", got, want)
		}
	}
	if res.BusyTicks != 17 || res.IdleTicks != 3 {
		t.Fatalf("busy/idle = %d/%d, want 17/3", res.BusyTicks, res.IdleTicks)
	}
}

func TestSimulateErrorCodes(t *testing.T) {
	client, store := startServer(t, logging.Noop())
	ctx := testContext(t)

	ts, err := core.LoadTaskSet(stringsReader(rmMiss))
	if err != nil {
		t.Fatalf("LoadTaskSet: %v", err)
	}
	if err := store.AddTaskSet(*ts); err != nil {
		t.Fatalf("AddTaskSet: %v", err)
	}

	tests := []struct {
		name string
		req  SimulateRequest
		code codes.Code
	}{
		{name: "unknown policy", req: SimulateRequest{Policy: "fifo", TaskSet: json.RawMessage(scenarioA)}, code: codes.InvalidArgument},
		{name: "no task set", req: SimulateRequest{Policy: "rm"}, code: codes.InvalidArgument},
		{name: "both sources", req: SimulateRequest{Policy: "rm", TaskSetName: "rm-miss", TaskSet: json.RawMessage(scenarioA)}, code: codes.InvalidArgument},
		{name: "missing set", req: SimulateRequest{Policy: "rm", TaskSetName: "nope"}, code: codes.NotFound},
		{name: "infeasible", req: SimulateRequest{Policy: "edf", TaskSet: json.RawMessage(overloaded)}, code: codes.FailedPrecondition},
		{name: "rm miss", req: SimulateRequest{Policy: "rm", TaskSetName: "rm-miss"}, code: codes.Aborted},
	}
	for _, tc := range tests {
		_, err := client.Simulate(ctx, tc.req)
		if code := status.Code(err); code != tc.code {
			t.Fatalf("%s: code = %v, want %v (err %v)", tc.name, code, tc.code, err)
		}
		if tc.code == codes.Aborted {
			id, tick, ok := MissFromStatus(err)
			if !ok || id != "B" || tick != 6 {
				t.Fatalf("%s: miss detail = (%q, %d, %v), want (B, 6, true)", tc.name, id, tick, ok)
			}
		}
	}
}

func TestCheckFeasibility(t *testing.T) {
	client, _ := startServer(t, logging.Noop())
	ctx := testContext(t)

	resp, err := client.CheckFeasibility(ctx, FeasibilityRequest{TaskSet: json.RawMessage(overloaded)})
	if err != nil {
		t.Fatalf("CheckFeasibility: %v", err)
	}
	if resp.Feasible || resp.Utilization != "6/5" || resp.Hyperperiod != 5 {
		t.Fatalf("CheckFeasibility = %+v, want infeasible 6/5 with hyperperiod 5", resp)
	}
}

func TestCompareReportsPerPolicyOutcomes(t *testing.T) {
	client, _ := startServer(t, logging.Noop())
	ctx := testContext(t)

	resp, err := client.Compare(ctx, CompareRequest{TaskSet: json.RawMessage(rmMiss)})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(resp.Outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(resp.Outcomes))
	}
	byPolicy := map[string]OutcomeView{}
	for _, o := range resp.Outcomes {
		byPolicy[o.Policy] = o
	}
	if o := byPolicy["RM"]; o.Code != codes.Aborted.String() || o.Result != nil {
		t.Fatalf("RM outcome = %+v, want Aborted without result", o)
	}
	if o := byPolicy["LLF_EDF"]; o.Error != "" || o.Result == nil || o.Result.Horizon != 12 {
		t.Fatalf("LLF_EDF outcome = %+v, want a 12-tick schedule", o)
	}

	_, err = client.Compare(ctx, CompareRequest{Policies: []string{"rm", "bogus"}, TaskSet: json.RawMessage(rmMiss)})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Compare with bad policy code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestTaskSetLifecycle(t *testing.T) {
	client, _ := startServer(t, logging.Noop())
	ctx := metadata.AppendToOutgoingContext(testContext(t), RequestIDMetadataKey, "req-1")

	if _, err := client.PutTaskSet(ctx, PutTaskSetRequest{TaskSet: json.RawMessage(scenarioA)}); err != nil {
		t.Fatalf("PutTaskSet: %v", err)
	}
	_, err := client.PutTaskSet(ctx, PutTaskSetRequest{TaskSet: json.RawMessage(scenarioA)})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("duplicate PutTaskSet code = %v, want AlreadyExists", status.Code(err))
	}
	if _, err := client.PutTaskSet(ctx, PutTaskSetRequest{TaskSet: json.RawMessage(scenarioA), Replace: true}); err != nil {
		t.Fatalf("replacing PutTaskSet: %v", err)
	}

	bad := `{"name": "bad", "tasks": [{"id": "x", "period": 0, "execution": 1}]}`
	_, err = client.PutTaskSet(ctx, PutTaskSetRequest{TaskSet: json.RawMessage(bad)})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("invalid PutTaskSet code = %v, want InvalidArgument", status.Code(err))
	}

	got, err := client.GetTaskSet(ctx, TaskSetNameRequest{Name: "scenario-a"})
	if err != nil {
		t.Fatalf("GetTaskSet: %v", err)
	}
	ts, err := core.LoadTaskSet(stringsReader(string(got.TaskSet)))
	if err != nil {
		t.Fatalf("decode returned task set: %v", err)
	}
	if ts.Name != "scenario-a" || len(ts.Tasks) != 3 || ts.Tasks[2].RelativeDeadline != 20 {
		t.Fatalf("GetTaskSet = %+v", ts)
	}

	list, err := client.ListTaskSets(ctx)
	if err != nil {
		t.Fatalf("ListTaskSets: %v", err)
	}
	if len(list.TaskSets) != 1 {
		t.Fatalf("ListTaskSets returned %d sets, want 1", len(list.TaskSets))
	}

	if err := client.DeleteTaskSet(ctx, TaskSetNameRequest{Name: "scenario-a"}); err != nil {
		t.Fatalf("DeleteTaskSet: %v", err)
	}
	err = client.DeleteTaskSet(ctx, TaskSetNameRequest{Name: "scenario-a"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("second DeleteTaskSet code = %v, want NotFound", status.Code(err))
	}
}

func TestRequestDocumentsRejectUnknownFields(t *testing.T) {
	svc := NewSchedulerService(nil, nil, nil, nil)
	in, err := toStruct(map[string]any{"policy": "rm", "tasks": []any{}})
	if err != nil {
		t.Fatalf("toStruct: %v", err)
	}
	_, err = svc.Simulate(context.Background(), in)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Simulate with unknown field code = %v, want InvalidArgument", status.Code(err))
	}
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
