// Package server implements the RPC server side of the driver protocol. A server
// routes every request to the adapter registered for its namespace.
//
// Key Components:
//
//   - IRPCServerAdapter: Handles one deserialized request and returns the response.
//
//   - RPCServer: Deserializes requests, looks up the namespace in an xsync.MapOf and
//     serializes the adapter's answer. HandleFunc exposes the request handler so the
//     server can be driven through the local transport without a socket.
//
//   - OracleAdapter: In-memory transaction oracle. It assigns start and commit
//     timestamps, derives conflict keys from the subject and predicate of every
//     mutated statement (N-Quads, NQuad lists and JSON), commits inline when asked
//     and rejects a commit whose keys were committed by another transaction after its
//     start ts. It keeps no graph data, so queries always return an empty result.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Namespaces:    []uint64{0},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:9080", WorkersPerConn: 16},
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
