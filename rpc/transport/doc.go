// Package transport defines the interfaces for moving serialized driver messages
// between a client and a server. Every implementation is a drop in replacement for
// the others; the connection pool only ever sees IRPCClientTransport.
//
// Key Components:
//
//   - IRPCClientTransport: client side channel. A connected transport balances its
//     requests across all endpoints it was configured with.
//
//   - IRPCServerTransport: server side listener that hands every request to a
//     ServerHandleFunc together with the namespace it was sent to.
//
//   - ClientFactory: creates unconnected client transports, used by the pool to
//     build a fresh channel whenever it needs a new connection.
//
// Implementations live in the sub packages base (framed net.Conn, used by tcp and
// unix), http, grpc and local (in-process, for tests and benchmarks).
package transport
