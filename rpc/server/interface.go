package server

import (
	"github.com/ValentinKolb/dGo/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// It is responsible for handling requests and responses of one namespace.
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response.
	// If an error occurs, it should be set in the response.
	Handle(req *common.Message) (resp *common.Message)
}
