package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "vocode.v1.Daemon"
	callMethod  = "/" + serviceName + "/Call"
)

// Handler processes one daemon request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// daemonServer is the server side of the single unary Call method.
type daemonServer interface {
	call(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*daemonServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: callHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vocode/v1/daemon.proto",
}

func callHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(daemonServer).call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: callMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(daemonServer).call(ctx, req.(*structpb.Struct))
	})
}

type daemon struct {
	ctx     context.Context
	handler Handler
}

// call decodes the request and runs the handler under a context that ends with either the
// caller or the server.
func (d *daemon) call(rpcCtx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithCancel(rpcCtx)
	defer cancel()
	stop := context.AfterFunc(d.ctx, cancel)
	defer stop()

	var req Request
	var resp Response
	if err := fromStruct(in, &req); err != nil {
		resp = Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)}
	} else {
		resp = d.handler.Handle(ctx, req)
	}
	return toStruct(resp)
}

// Serve runs the daemon service on listener until ctx is cancelled, then drains in-flight
// calls.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	return serve(ctx, listener, &daemon{ctx: ctx, handler: handler})
}

func serve(ctx context.Context, listener net.Listener, srv daemonServer) error {
	server := grpc.NewServer()
	server.RegisterService(&serviceDesc, srv)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			healthServer.Shutdown()
			server.GracefulStop()
		case <-done:
		}
	}()

	if err := server.Serve(listener); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("serve daemon: %w", err)
	}
	return nil
}
