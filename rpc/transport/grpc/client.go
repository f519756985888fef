package grpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/resolver/manual"
)

var Logger = logger.GetLogger("transport/grpc")

// resolverScheme is only known to the ClientConn it is passed to
const resolverScheme = "dgo"

// roundRobinConfig spreads requests over every resolved endpoint
const roundRobinConfig = `{"loadBalancingConfig": [{"round_robin":{}}]}`

// NewGrpcClientTransport creates a new gRPC client transport
func NewGrpcClientTransport() transport.IRPCClientTransport {
	return &grpcClientTransport{}
}

type grpcClientTransport struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *grpcClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	addrs := make([]resolver.Address, 0, len(config.Transport.Endpoints))
	for _, endpoint := range config.Transport.Endpoints {
		addrs = append(addrs, resolver.Address{Addr: trimScheme(endpoint)})
	}

	// A manual resolver holds the static endpoint list, the round robin
	// balancer keeps one sub connection per endpoint
	r := manual.NewBuilderWithScheme(resolverScheme)
	r.InitialState(resolver.State{Addresses: addrs})

	opts := []grpc.DialOption{
		grpc.WithResolvers(r),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(roundRobinConfig),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}
	if config.Transport.TCPKeepAliveSec > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(config.Transport.TCPKeepAliveSec) * time.Second,
			PermitWithoutStream: true,
		}))
	}
	if config.Transport.WriteBufferSize > 0 {
		opts = append(opts, grpc.WithWriteBufferSize(config.Transport.WriteBufferSize))
	}
	if config.Transport.ReadBufferSize > 0 {
		opts = append(opts, grpc.WithReadBufferSize(config.Transport.ReadBufferSize))
	}

	conn, err := grpc.NewClient(r.Scheme()+":///", opts...)
	if err != nil {
		return fmt.Errorf("failed to create grpc channel: %v", err)
	}

	// leave idle mode so the first request does not pay for the dial
	conn.Connect()

	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	t.timeout = time.Duration(config.TimeoutSecond) * time.Second

	Logger.Debugf("Created grpc channel over %d endpoints", len(addrs))
	return nil
}

func (t *grpcClientTransport) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("grpc transport not initialized")
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, namespaceKey, strconv.FormatUint(namespace, 10))

	var resp []byte
	if err := t.conn.Invoke(ctx, fullMethod, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *grpcClientTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// trimScheme strips an optional grpc:// prefix, the resolver wants host:port
func trimScheme(endpoint string) string {
	if i := strings.Index(endpoint, "://"); i >= 0 {
		return endpoint[i+3:]
	}
	return endpoint
}
