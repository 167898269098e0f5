package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "fielddispatch.v1.DispatchService"

// DispatchServiceServer is the server API for fielddispatch.v1.DispatchService.
// Every message is a google.protobuf.Struct holding the JSON shape of the request or response.
type DispatchServiceServer interface {
	CreateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DispatchJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DispatchBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTechnicians(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(DispatchServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DispatchServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DispatchServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// DispatchServiceDesc is the grpc.ServiceDesc for fielddispatch.v1.DispatchService.
var DispatchServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DispatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler("CreateJob", DispatchServiceServer.CreateJob),
		methodHandler("GetJob", DispatchServiceServer.GetJob),
		methodHandler("ListJobs", DispatchServiceServer.ListJobs),
		methodHandler("UpdateJob", DispatchServiceServer.UpdateJob),
		methodHandler("DeleteJob", DispatchServiceServer.DeleteJob),
		methodHandler("DispatchJob", DispatchServiceServer.DispatchJob),
		methodHandler("DispatchBatch", DispatchServiceServer.DispatchBatch),
		methodHandler("ListTechnicians", DispatchServiceServer.ListTechnicians),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fielddispatch/v1/dispatch.proto",
}

// RegisterDispatchServiceServer registers srv on s.
func RegisterDispatchServiceServer(s grpc.ServiceRegistrar, srv DispatchServiceServer) {
	s.RegisterService(&DispatchServiceDesc, srv)
}
