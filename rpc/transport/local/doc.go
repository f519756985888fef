// Package local implements an in-process client transport. It is bound directly to
// a server handler (see server.RPCServer.HandleFunc), so requests still go through
// serialization but never touch a socket. Tests and the perf command use it to
// run the driver against the in-memory oracle.
package local
