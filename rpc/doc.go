// Package rpc contains the driver and everything it runs on.
//
// The package is organized into several subpackages:
//
//   - common: Protocol messages, configuration, endpoint sets, errors and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (gRPC, TCP, Unix sockets, HTTP and an in-process transport).
//
//   - serializer: Message serialization (Binary, JSON) for converting between
//     Message objects and byte arrays.
//
//   - client: The connection pool, clients and transactions.
//
//   - server: The RPC server and the transaction oracle adapter, used for
//     development, tests and benchmarks.
package rpc
