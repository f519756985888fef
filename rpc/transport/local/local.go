package local

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/transport"
)

// NewLocalClientTransport creates a client transport that hands every request
// straight to handler in the calling goroutine. Endpoints are ignored.
func NewLocalClientTransport(handler transport.ServerHandleFunc) transport.IRPCClientTransport {
	return &localClientTransport{handler: handler}
}

// NewLocalClientFactory returns a factory of local transports sharing one handler
func NewLocalClientFactory(handler transport.ServerHandleFunc) transport.ClientFactory {
	return func() transport.IRPCClientTransport {
		return NewLocalClientTransport(handler)
	}
}

type localClientTransport struct {
	handler   transport.ServerHandleFunc
	connected atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *localClientTransport) Connect(_ common.ClientConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler bound to local transport")
	}
	t.connected.Store(true)
	return nil
}

func (t *localClientTransport) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	if !t.connected.Load() {
		return nil, fmt.Errorf("local transport not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the handler may keep the request, so it gets its own copy
	buf := make([]byte, len(req))
	copy(buf, req)

	return t.handler(namespace, buf), nil
}

func (t *localClientTransport) Close() error {
	t.connected.Store(false)
	return nil
}
