// Package base provides the framed, multiplexed transport shared by the tcp and
// unix packages. It is independent of the network protocol; a connector supplies
// dialing, listening and socket options.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations.
//
//   - clientTransport: Holds ConnectionsPerEndpoint connections to every endpoint
//     and picks one per request round robin, so one connected transport behaves as a
//     single load balanced channel. Responses are matched to requests by request id
//     through an xsync.MapOf, so many requests can be in flight on one connection.
//     A broken connection fails its pending requests and is redialed in the background.
//
//   - serverTransport: Accepts connections and runs up to WorkersPerConn handlers
//     per connection. Request buffers come from a sync.Pool.
//
// Frame Format:
//
//	8 bytes namespace | 8 bytes request id | 4 bytes length | payload (all big endian)
//
// Thread Safety:
//
//	All public methods are thread-safe. Send honours the context of the caller and
//	the configured request timeout, whichever ends first.
package base
