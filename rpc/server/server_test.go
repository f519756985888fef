package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"github.com/ValentinKolb/dGo/rpc/transport/grpc"
	"github.com/ValentinKolb/dGo/rpc/transport/http"
	"github.com/ValentinKolb/dGo/rpc/transport/local"
	"github.com/ValentinKolb/dGo/rpc/transport/tcp"
	"github.com/ValentinKolb/dGo/rpc/transport/unix"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c transport.IRPCClientTransport, s serializer.IRPCSerializer, namespace uint64, msg *common.Message) *common.Message {
	t.Helper()

	req, err := s.Serialize(*msg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := c.Send(ctx, namespace, req)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.Deserialize(data, &resp))
	return &resp
}

func TestServerHandleFunc(t *testing.T) {
	s := serializer.NewBinarySerializer()
	srv := NewRPCServer(common.ServerConfig{Namespaces: []uint64{1, 2}}, nil, s)

	c := local.NewLocalClientTransport(srv.HandleFunc())
	require.NoError(t, c.Connect(common.ClientConfig{}))
	defer c.Close()

	resp := roundTrip(t, c, s, 1, common.NewCheckVersionRequest())
	require.Empty(t, resp.Err)
	require.Equal(t, common.BuildVersion, resp.Version.Tag)

	// namespaces have their own oracle
	first := roundTrip(t, c, s, 1, common.NewQueryRequest(&common.Request{}))
	second := roundTrip(t, c, s, 2, common.NewQueryRequest(&common.Request{}))
	require.Equal(t, first.Response.Txn.StartTs, second.Response.Txn.StartTs)

	resp = roundTrip(t, c, s, 3, common.NewCheckVersionRequest())
	require.Equal(t, common.MsgTError, resp.MsgType)
	require.Equal(t, common.StatusFailedPrecondition, resp.Code)

	// garbage is answered with an error message
	data, err := c.Send(context.Background(), 1, []byte{0xff})
	require.NoError(t, err)
	var msg common.Message
	require.NoError(t, s.Deserialize(data, &msg))
	require.Equal(t, common.StatusInvalidArgument, msg.Code)
}

func TestServerRegister(t *testing.T) {
	s := serializer.NewJSONSerializer()
	srv := NewRPCServer(common.ServerConfig{Namespaces: []uint64{1}}, nil, s)

	oracle := NewOracleAdapter("custom")
	srv.Register(1, oracle)

	adapter, ok := srv.Adapter(1)
	require.True(t, ok)
	require.Same(t, oracle, adapter)

	c := local.NewLocalClientTransport(srv.HandleFunc())
	require.NoError(t, c.Connect(common.ClientConfig{}))

	resp := roundTrip(t, c, s, 1, common.NewCheckVersionRequest())
	require.Equal(t, "custom", resp.Version.Tag)
	require.Equal(t, uint64(1), oracle.Stats().CheckVersions)
}

// freeAddr returns a local tcp address nobody listens on right now
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServerTransports(t *testing.T) {
	tests := []struct {
		name     string
		endpoint func(t *testing.T) string
		server   func() transport.IRPCServerTransport
		client   func() transport.IRPCClientTransport
	}{
		{
			name:     "tcp",
			endpoint: freeAddr,
			server:   tcp.NewTCPDefaultServerTransport,
			client:   tcp.NewTCPClientTransport,
		},
		{
			name:     "unix",
			endpoint: func(t *testing.T) string { return filepath.Join(t.TempDir(), "dgo.sock") },
			server:   unix.NewUnixDefaultServerTransport,
			client:   unix.NewUnixClientTransport,
		},
		{
			name:     "http",
			endpoint: freeAddr,
			server:   http.NewHttpServerTransport,
			client:   http.NewHttpClientTransport,
		},
		{
			name:     "grpc",
			endpoint: freeAddr,
			server:   grpc.NewGrpcServerTransport,
			client:   grpc.NewGrpcClientTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := serializer.NewBinarySerializer()
			endpoint := tt.endpoint(t)

			srv := NewRPCServer(common.ServerConfig{
				Namespaces:    []uint64{0},
				TimeoutSecond: 5,
				Transport:     common.ServerTransportConfig{Endpoint: endpoint, WorkersPerConn: 4},
			}, tt.server(), s)

			done := make(chan error, 1)
			go func() { done <- srv.Serve() }()

			c := tt.client()
			cfg := common.ClientConfig{
				TimeoutSecond: 5,
				Transport: common.ClientTransportConfig{
					Endpoints:              []string{endpoint},
					ConnectionsPerEndpoint: 2,
					TCPConf:                common.TCPConf{TCPLingerSec: -1},
				},
			}

			// the server starts listening in the background
			require.Eventually(t, func() bool {
				if err := c.Connect(cfg); err != nil {
					return false
				}
				req, _ := s.Serialize(*common.NewCheckVersionRequest())
				_, err := c.Send(context.Background(), 0, req)
				return err == nil
			}, 5*time.Second, 50*time.Millisecond)

			for i := 0; i < 10; i++ {
				resp := roundTrip(t, c, s, 0, common.NewQueryRequest(&common.Request{
					Mutations: []*common.Mutation{{SetNquads: []byte(`<0x1> <name> "x" .`)}},
					CommitNow: true,
				}))
				require.Empty(t, resp.Err)
				require.NotZero(t, resp.Response.Txn.CommitTs)
			}

			require.NoError(t, c.Close())
			require.NoError(t, srv.Close())

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	}
}
