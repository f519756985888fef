package client

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/ValentinKolb/dGo/rpc/common"
)

// Client runs single round trip operations. Every request commits immediately,
// so no transaction state is kept between calls.
//
// A Client holds its pooled connection until Close is called. A Client that is
// garbage collected without Close returns its connection as well, but callers
// should not rely on that. A Client is not safe for concurrent use.
type Client struct {
	pool       *Pool
	conn       *Conn
	readOnly   bool
	bestEffort bool
	closed     atomic.Bool
}

func newClient(pool *Pool, conn *Conn, readOnly, bestEffort bool) *Client {
	c := &Client{
		pool:       pool,
		conn:       conn,
		readOnly:   readOnly,
		bestEffort: bestEffort,
	}
	runtime.SetFinalizer(c, (*Client).release)
	return c
}

// ReadOnly reports whether queries of this client are serviced read-only
func (c *Client) ReadOnly() bool {
	return c.readOnly
}

// BestEffort reports whether queries of this client may read stale data
func (c *Client) BestEffort() bool {
	return c.bestEffort
}

// Query runs a query
func (c *Client) Query(ctx context.Context, query string) (*common.Response, error) {
	return c.do(ctx, &common.Request{Query: query})
}

// QueryWithVars runs a query with variables
func (c *Client) QueryWithVars(ctx context.Context, query string, vars map[string]string) (*common.Response, error) {
	return c.do(ctx, &common.Request{Query: query, Vars: vars})
}

// Mutate applies mutations and commits them
func (c *Client) Mutate(ctx context.Context, mus ...*common.Mutation) (*common.Response, error) {
	return c.do(ctx, &common.Request{Mutations: mus})
}

// Upsert runs a query and applies mutations conditioned on it, then commits
func (c *Client) Upsert(ctx context.Context, query string, mus ...*common.Mutation) (*common.Response, error) {
	return c.do(ctx, &common.Request{Query: query, Mutations: mus})
}

// UpsertWithVars is Upsert with query variables
func (c *Client) UpsertWithVars(ctx context.Context, query string, vars map[string]string, mus ...*common.Mutation) (*common.Response, error) {
	return c.do(ctx, &common.Request{Query: query, Vars: vars, Mutations: mus})
}

// Alter applies a schema change or drop operation
func (c *Client) Alter(ctx context.Context, op *common.Operation) (*common.Payload, error) {
	if c.closed.Load() {
		return nil, common.ErrClientClosed
	}
	if op == nil {
		return nil, common.NewError(common.ErrKindInvalidArgument, "operation is nil")
	}
	defer runtime.KeepAlive(c)
	return c.conn.Alter(ctx, op)
}

// CheckVersion returns the version tag of the server
func (c *Client) CheckVersion(ctx context.Context) (*common.Version, error) {
	if c.closed.Load() {
		return nil, common.ErrClientClosed
	}
	defer runtime.KeepAlive(c)
	return c.conn.CheckVersion(ctx)
}

// Close returns the connection to the pool. Further calls fail with ErrClientClosed.
func (c *Client) Close() {
	c.release()
	runtime.SetFinalizer(c, nil)
}

func (c *Client) String() string {
	return fmt.Sprintf("Client{conn: %d, readOnly: %t, bestEffort: %t}", c.conn.id, c.readOnly, c.bestEffort)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// do sends one self committing request with the fixed flags of the client.
// c is kept reachable until the reply arrives, otherwise its finalizer could
// return the connection while the request is in flight.
func (c *Client) do(ctx context.Context, req *common.Request) (*common.Response, error) {
	if c.closed.Load() {
		return nil, common.ErrClientClosed
	}
	defer runtime.KeepAlive(c)
	req.CommitNow = true
	req.ReadOnly = c.readOnly
	req.BestEffort = c.bestEffort
	return c.conn.Query(ctx, req)
}

// release gives the connection back to the pool once
func (c *Client) release() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.release(c.conn)
}
