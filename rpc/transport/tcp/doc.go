// Package tcp implements the TCP socket transport. It only supplies the connectors
// for the base package, which does the framing, request routing and round robin
// balancing over all endpoints.
//
// Socket options (no delay, keep alive, linger, buffer sizes) are taken from the
// TCPConf and SocketConf parts of the client and server config and applied to every
// dialed and accepted connection. The default server buffer size is 512 KB.
package tcp
