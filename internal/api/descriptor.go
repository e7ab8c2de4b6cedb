package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "mailsync.v1.SyncService"

// SyncServer is the server API for the SyncService.
type SyncServer interface {
	ApplyBatch(context.Context, *ApplyBatchRequest) (*ApplyBatchResponse, error)
	QueueAction(context.Context, *QueueActionRequest) (*QueueActionResponse, error)
	CompleteAction(context.Context, *CompleteActionRequest) (*CompleteActionResponse, error)
	NextContactFetch(context.Context, *NextContactFetchRequest) (*NextContactFetchResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

// RegisterSyncServer registers srv on s.
func RegisterSyncServer(s grpc.ServiceRegistrar, srv SyncServer) {
	s.RegisterService(&SyncServiceDesc, srv)
}

// SyncServiceDesc describes the SyncService for grpc.Server.
var SyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ApplyBatch", Handler: unary("ApplyBatch", SyncServer.ApplyBatch)},
		{MethodName: "QueueAction", Handler: unary("QueueAction", SyncServer.QueueAction)},
		{MethodName: "CompleteAction", Handler: unary("CompleteAction", SyncServer.CompleteAction)},
		{MethodName: "NextContactFetch", Handler: unary("NextContactFetch", SyncServer.NextContactFetch)},
		{MethodName: "Status", Handler: unary("Status", SyncServer.Status)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mailsync/v1/sync",
}

// unary adapts a typed SyncServer method to a grpc method handler.
func unary[Req, Resp any](name string, call func(SyncServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(name),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
