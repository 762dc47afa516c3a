package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// CarnetServiceName は gRPC のサービス名です。
const CarnetServiceName = "carnet.v1.CarnetService"

// CarnetServiceServer は CarnetService の各メソッドです。要求と応答は google.protobuf.Struct です。
type CarnetServiceServer interface {
	ImportWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListOffices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	EditOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveOffice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateOffices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	IssueBadge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBadges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GenerateBadges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(CarnetServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + CarnetServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CarnetServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CarnetServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// CarnetServiceDesc は手書きのサービス定義です。
var CarnetServiceDesc = grpc.ServiceDesc{
	ServiceName: CarnetServiceName,
	HandlerType: (*CarnetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ImportWorkers", CarnetServiceServer.ImportWorkers),
		unaryHandler("CreateWorker", CarnetServiceServer.CreateWorker),
		unaryHandler("GetWorker", CarnetServiceServer.GetWorker),
		unaryHandler("ListWorkers", CarnetServiceServer.ListWorkers),
		unaryHandler("UpdateWorker", CarnetServiceServer.UpdateWorker),
		unaryHandler("DeleteWorker", CarnetServiceServer.DeleteWorker),
		unaryHandler("ListOffices", CarnetServiceServer.ListOffices),
		unaryHandler("AddOffice", CarnetServiceServer.AddOffice),
		unaryHandler("EditOffice", CarnetServiceServer.EditOffice),
		unaryHandler("RemoveOffice", CarnetServiceServer.RemoveOffice),
		unaryHandler("UpdateOffices", CarnetServiceServer.UpdateOffices),
		unaryHandler("IssueBadge", CarnetServiceServer.IssueBadge),
		unaryHandler("ListBadges", CarnetServiceServer.ListBadges),
		unaryHandler("GenerateBadges", CarnetServiceServer.GenerateBadges),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "carnet/v1/carnet.proto",
}

// RegisterCarnetServiceServer は srv をサーバーに登録します。
func RegisterCarnetServiceServer(s grpc.ServiceRegistrar, srv CarnetServiceServer) {
	s.RegisterService(&CarnetServiceDesc, srv)
}
