// Package http implements the transport over plain HTTP. Every request is a POST of
// the serialized message to /{namespace} on one of the endpoints, picked round robin.
//
// Endpoints may be given with or without scheme; http:// is assumed when missing.
// The HTTP client keeps idle keep-alive connections per host, so a connected
// transport reuses sockets across requests. The server wraps its handler in a
// logging middleware when running at debug level.
package http
