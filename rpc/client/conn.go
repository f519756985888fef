package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/serializer"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// Conn is one managed connection: a connected, load balanced transport together
// with the serializer and the namespace every request is sent to.
// A Conn is safe for concurrent use, but the pool hands it to one owner at a time.
type Conn struct {
	id         uint64
	namespace  uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	closed     atomic.Bool
}

// ID identifies the connection within its manager
func (c *Conn) ID() uint64 {
	return c.id
}

// --------------------------------------------------------------------------
// RPC Stubs
// --------------------------------------------------------------------------

// Query sends a query, mutation or upsert request
func (c *Conn) Query(ctx context.Context, req *common.Request) (*common.Response, error) {
	resp, err := c.invoke(ctx, common.NewQueryRequest(req))
	if err != nil {
		return nil, err
	}
	if resp.Response == nil {
		return &common.Response{}, nil
	}
	return resp.Response, nil
}

// CheckVersion issues the lightweight liveness check
func (c *Conn) CheckVersion(ctx context.Context) (*common.Version, error) {
	resp, err := c.invoke(ctx, common.NewCheckVersionRequest())
	if err != nil {
		return nil, err
	}
	if resp.Version == nil {
		return &common.Version{}, nil
	}
	return resp.Version, nil
}

// CommitOrAbort finalizes a transaction. txn.Aborted selects abort over commit.
func (c *Conn) CommitOrAbort(ctx context.Context, txn *common.TxnContext) (*common.TxnContext, error) {
	resp, err := c.invoke(ctx, common.NewCommitOrAbortRequest(txn))
	if err != nil {
		return nil, err
	}
	if resp.Txn == nil {
		return &common.TxnContext{}, nil
	}
	return resp.Txn, nil
}

// Alter applies a schema change or drop operation
func (c *Conn) Alter(ctx context.Context, op *common.Operation) (*common.Payload, error) {
	resp, err := c.invoke(ctx, common.NewAlterRequest(op))
	if err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		return &common.Payload{}, nil
	}
	return resp.Payload, nil
}

// close closes the underlying transport once
func (c *Conn) close() {
	if c.closed.Swap(true) {
		return
	}
	if err := c.transport.Close(); err != nil {
		Logger.Debugf("closing connection %d failed: %v", c.id, err)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke serializes req, sends it and checks the response.
// Send failures are Transport errors, rejections by the server are Status errors.
func (c *Conn) invoke(ctx context.Context, req *common.Message) (*common.Message, error) {
	if c.closed.Load() {
		return nil, common.NewError(common.ErrKindTransport, fmt.Sprintf("connection %d is closed", c.id))
	}

	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, common.WrapError(common.ErrKindInvalidArgument, err, "failed to serialize request")
	}

	respBytes, err := c.transport.Send(ctx, c.namespace, reqBytes)
	if err != nil {
		return nil, common.WrapError(common.ErrKindTransport, err, fmt.Sprintf("%s rpc failed", req.MsgType))
	}

	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, common.WrapError(common.ErrKindTransport, err, "failed to deserialize response")
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		code := resp.Code
		if code == common.StatusOK {
			code = common.StatusUnknown
		}
		return nil, common.WrapError(common.ErrKindStatus, &common.StatusError{Code: code, Msg: resp.Err},
			fmt.Sprintf("%s rejected", req.MsgType))
	}

	if resp.MsgType != req.MsgType {
		return nil, common.NewError(common.ErrKindTransport,
			fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}
