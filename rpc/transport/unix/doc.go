// Package unix implements the transport over Unix domain sockets for a driver and
// server running on the same machine. Like tcp it only supplies connectors for the
// base package and inherits framing, request routing and balancing from there.
//
// Endpoints are absolute socket paths. The server removes a stale socket file
// before listening. The default server buffer size is 64 KB.
package unix
