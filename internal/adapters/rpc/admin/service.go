package admin

import (
	"context"

	"google.golang.org/grpc"
)

// Fully qualified method names.
const (
	SetMethod  = "/admin.v1.KarmaService/Set"
	ListMethod = "/admin.v1.PluginService/List"
)

// KarmaServer is the server API for admin.v1.KarmaService.
type KarmaServer interface {
	Set(ctx context.Context, req *SetRequest) (*SetResponse, error)
}

// PluginServer is the server API for admin.v1.PluginService.
type PluginServer interface {
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
}

var karmaServiceDesc = grpc.ServiceDesc{
	ServiceName: "admin.v1.KarmaService",
	HandlerType: (*KarmaServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Set", Handler: setHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "admin/v1/admin.proto",
}

var pluginServiceDesc = grpc.ServiceDesc{
	ServiceName: "admin.v1.PluginService",
	HandlerType: (*PluginServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: listHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "admin/v1/admin.proto",
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KarmaServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KarmaServer).Set(ctx, req.(*SetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PluginServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PluginServer).List(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}
