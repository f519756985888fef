package client

import (
	"sync"
	"testing"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/server"
	"github.com/ValentinKolb/dGo/rpc/transport/local"
	"github.com/stretchr/testify/require"
)

// newTestPool creates a pool whose connections talk to adapter in-process
func newTestPool(t *testing.T, adapter server.IRPCServerAdapter, size int) *Pool {
	t.Helper()

	s := serializer.NewBinarySerializer()
	srv := server.NewRPCServer(common.ServerConfig{}, nil, s)
	srv.Register(0, adapter)

	pool, err := NewPool(
		common.NewLiteralEndpoints("local://oracle"),
		common.ClientConfig{PoolSize: size},
		local.NewLocalClientFactory(srv.HandleFunc()),
		s,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

// scriptedAdapter answers queries with a fixed list of transaction contexts and
// records everything it receives
type scriptedAdapter struct {
	mu        sync.Mutex
	replies   []*common.TxnContext
	requests  []*common.Request
	finalized []*common.TxnContext
	checks    int
}

func (a *scriptedAdapter) Handle(req *common.Message) *common.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch req.MsgType {
	case common.MsgTQuery:
		a.requests = append(a.requests, req.Request)
		var txn *common.TxnContext
		if len(a.replies) > 0 {
			txn, a.replies = a.replies[0], a.replies[1:]
		}
		return common.NewQueryResponse(&common.Response{Json: []byte("{}"), Txn: txn}, nil)
	case common.MsgTCommitOrAbort:
		a.finalized = append(a.finalized, req.Txn)
		return common.NewCommitOrAbortResponse(&common.TxnContext{StartTs: req.Txn.StartTs, CommitTs: 100, Aborted: req.Txn.Aborted}, nil)
	case common.MsgTCheckVersion:
		a.checks++
		return common.NewCheckVersionResponse("scripted", nil)
	default:
		return common.NewErrorResponse(common.StatusUnimplemented, "not scripted")
	}
}

func (a *scriptedAdapter) sent() []*common.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*common.Request(nil), a.requests...)
}

func (a *scriptedAdapter) finals() []*common.TxnContext {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*common.TxnContext(nil), a.finalized...)
}

func nquads(s string) *common.Mutation {
	mu := common.NewMutation()
	mu.SetSetNquads(s)
	return mu
}
