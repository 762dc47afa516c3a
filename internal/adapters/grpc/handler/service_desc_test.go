package handler

import (
	"context"
	"net"
	"testing"

	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialCarnetService(t *testing.T, srv CarnetServiceServer, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	RegisterCarnetServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestCarnetServiceDesc_RoundTrip(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture("skip")
	var intercepted string
	conn := dialCarnetService(t, f.handler, grpc.UnaryInterceptor(
		func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
			intercepted = info.FullMethod
			return next(ctx, req)
		},
	))

	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), "/carnet.v1.CarnetService/ListOffices", &structpb.Struct{}, out); err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}

	if intercepted != "/carnet.v1.CarnetService/ListOffices" {
		t.Fatalf("unexpected intercepted method %q", intercepted)
	}
	offices := out.GetFields()["offices"].GetListValue().GetValues()
	if len(offices) != 1 || offices[0].GetStructValue().GetFields()["code"].GetStringValue() != "OF1" {
		t.Fatalf("unexpected offices: %v", offices)
	}
}

func TestCarnetServiceDesc_StatusPropagates(t *testing.T) {
	t.Parallel()

	f := newHandlerFixture("skip")
	f.workers.getErr = worker.ErrWorkerNotFound
	conn := dialCarnetService(t, f.handler)

	req, err := structpb.NewStruct(map[string]any{"national_id": "1234567"})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	err = conn.Invoke(context.Background(), "/carnet.v1.CarnetService/GetWorker", req, new(structpb.Struct))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCarnetServiceDesc_Methods(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		"ImportWorkers": true, "CreateWorker": true, "GetWorker": true, "ListWorkers": true,
		"UpdateWorker": true, "DeleteWorker": true, "ListOffices": true, "AddOffice": true,
		"EditOffice": true, "RemoveOffice": true, "UpdateOffices": true, "IssueBadge": true,
		"ListBadges": true, "GenerateBadges": true,
	}
	if len(CarnetServiceDesc.Methods) != len(want) {
		t.Fatalf("expected %d methods, got %d", len(want), len(CarnetServiceDesc.Methods))
	}
	for _, m := range CarnetServiceDesc.Methods {
		if !want[m.MethodName] {
			t.Fatalf("unexpected method %s", m.MethodName)
		}
	}
}
