package transport

import (
	"context"

	"github.com/ValentinKolb/dGo/rpc/common"
)

//go:generate mockgen -destination=mock/mock_transport.go -package=mock github.com/ValentinKolb/dGo/rpc/transport IRPCClientTransport

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes the namespace of the request and the raw request and returns the raw response
type ServerHandleFunc func(namespace uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until the transport is closed
	Listen(config common.ServerConfig) error
	// Close stops listening. A blocked Listen returns nil afterwards.
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// One connected transport is one load balanced channel over every configured endpoint.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// It returns early with ctx.Err() if the context is done first.
	Send(ctx context.Context, namespace uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}

// ClientFactory creates a new, unconnected client transport
type ClientFactory func() IRPCClientTransport
