package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	serviceName = "dgo.Driver"
	methodName  = "Call"
	fullMethod  = "/" + serviceName + "/" + methodName

	// namespaceKey is the metadata key carrying the namespace of a request
	namespaceKey = "dgo-namespace"
)

// driverServer is the server side of the single unary method
type driverServer interface {
	call(ctx context.Context, req []byte) ([]byte, error)
}

// serviceDesc describes the driver service. Requests and responses are raw
// serialized messages, so there is no generated code behind it.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*driverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodName,
			Handler:    callHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dgo.proto",
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var in []byte
	if err := dec(&in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(driverServer).call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(driverServer).call(ctx, req.([]byte))
	}
	return interceptor(ctx, in, info, handler)
}

// namespaceFromContext reads the namespace the client put into the request metadata
func namespaceFromContext(ctx context.Context) (uint64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "missing metadata")
	}
	values := md.Get(namespaceKey)
	if len(values) == 0 {
		return 0, status.Error(codes.InvalidArgument, "missing namespace")
	}
	namespace, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid namespace %q", values[0])
	}
	return namespace, nil
}
