package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// NewGrpcServerTransport creates a new gRPC server transport
func NewGrpcServerTransport() transport.IRPCServerTransport {
	return &grpcServerTransport{}
}

type grpcServerTransport struct {
	handler transport.ServerHandleFunc

	mu     sync.Mutex
	server *grpc.Server
	closed bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *grpcServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *grpcServerTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	listener, err := net.Listen("tcp", trimScheme(config.Transport.Endpoint))
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(rawCodec{}),
	}
	if config.Transport.WorkersPerConn > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(config.Transport.WorkersPerConn)))
	}
	if config.Transport.TCPKeepAliveSec > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			Time: time.Duration(config.Transport.TCPKeepAliveSec) * time.Second,
		}))
	}
	if config.TimeoutSecond > 0 {
		opts = append(opts, grpc.ConnectionTimeout(time.Duration(config.TimeoutSecond)*time.Second))
	}

	server := grpc.NewServer(opts...)
	server.RegisterService(&serviceDesc, t)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		listener.Close()
		return nil
	}
	t.server = server
	t.mu.Unlock()

	Logger.Infof("Starting grpc server on %s", listener.Addr())

	// Serve returns nil after Stop or GracefulStop
	return server.Serve(listener)
}

func (t *grpcServerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// call implements driverServer
func (t *grpcServerTransport) call(ctx context.Context, req []byte) ([]byte, error) {
	namespace, err := namespaceFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return t.handler(namespace, req), nil
}
