package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

// RPCServer routes requests of every namespace to the adapter registered for it
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	namespaces *xsync.MapOf[uint64, IRPCServerAdapter]
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters.
// Every namespace of the config is served by a fresh transaction oracle
// until another adapter is registered for it.
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		namespaces: xsync.NewMapOf[uint64, IRPCServerAdapter](),
	}

	for _, ns := range config.Namespaces {
		s.namespaces.Store(ns, NewOracleAdapter(common.BuildVersion))
		Logger.Debugf("created transaction oracle for namespace %d", ns)
	}

	Logger.Debugf("Created RPC Server")
	return s
}

// Register binds an adapter to a namespace, replacing any previous one
func (s *RPCServer) Register(namespace uint64, adapter IRPCServerAdapter) {
	s.namespaces.Store(namespace, adapter)
}

// Adapter returns the adapter bound to a namespace
func (s *RPCServer) Adapter(namespace uint64) (IRPCServerAdapter, bool) {
	return s.namespaces.Load(namespace)
}

// HandleFunc returns the handler the transport calls for every request.
// It can be bound to a local client transport without starting the server.
func (s *RPCServer) HandleFunc() transport.ServerHandleFunc {
	return s.handle
}

func (s *RPCServer) handle(namespace uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	adapter, ok := s.namespaces.Load(namespace)
	if !ok {
		respMsg = common.NewErrorResponse(common.StatusFailedPrecondition, fmt.Sprintf("namespace %d not found", namespace))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(common.StatusInvalidArgument, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = adapter.Handle(&msg)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(common.StatusInternal, fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// Serve starts the RPC server and blocks until Close is called
func (s *RPCServer) Serve() error {
	s.transport.RegisterHandler(s.handle)
	Logger.Infof("%s", s.config.String())
	Logger.Infof("dGo server setup completed successfully, serving %d namespaces", s.namespaces.Size())
	return s.transport.Listen(s.config)
}

// Close stops the transport
func (s *RPCServer) Close() error {
	return s.transport.Close()
}
