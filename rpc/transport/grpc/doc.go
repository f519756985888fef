// Package grpc implements the transport over gRPC.
//
// The client builds one grpc.ClientConn per connected transport. A manual resolver
// feeds it every configured endpoint and the round_robin balancing policy spreads
// requests over them. There is no generated code: the service has a single unary
// method carrying already serialized messages through a raw bytes codec, and the
// namespace of a request travels in the "dgo-namespace" metadata entry.
//
// Deadlines come from the context of the caller, narrowed by the configured
// request timeout.
package grpc
