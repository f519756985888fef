package client

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
)

// dropAbortTimeout bounds the background abort of an abandoned transaction
const dropAbortTimeout = 30 * time.Second

// Txn is a transaction spanning several round trips on one pooled connection.
//
// The server assigns the start ts on the first response; conflict keys and
// predicates of every response are collected and sent back with the single
// CommitOrAbort call. A Txn must be finished with Commit or Discard; a
// transaction that mutated data and is garbage collected unfinished is aborted
// in the background.
//
// A Txn is not safe for concurrent use: requests must be issued one after another.
type Txn struct {
	pool   *Pool
	conn   *Conn // nil once returned to the pool
	txnCtx common.TxnContext
	keys   map[string]struct{}
	preds  map[string]struct{}

	finished bool
	mutated  bool

	// handled guards the drop path, it is set before any finalizer side effect
	handled atomic.Bool
}

func newTxn(pool *Pool, conn *Conn) *Txn {
	t := &Txn{
		pool:  pool,
		conn:  conn,
		keys:  make(map[string]struct{}),
		preds: make(map[string]struct{}),
	}
	runtime.SetFinalizer(t, (*Txn).abandon)
	metricTxnStarted.Inc()
	return t
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// StartTs returns the start ts assigned by the server, 0 before the first response
func (t *Txn) StartTs() uint64 {
	return t.txnCtx.StartTs
}

// Finished reports whether the transaction was committed or aborted
func (t *Txn) Finished() bool {
	return t.finished
}

// Context returns a copy of the transaction context with the keys and predicates
// collected so far
func (t *Txn) Context() common.TxnContext {
	ctx := t.txnCtx
	ctx.Keys = mergeSorted(ctx.Keys, t.keys)
	ctx.Preds = mergeSorted(ctx.Preds, t.preds)
	return ctx
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// Query runs a query inside the transaction
func (t *Txn) Query(ctx context.Context, query string) (*common.Response, error) {
	return t.Do(ctx, &common.Request{Query: query})
}

// QueryWithVars runs a query with variables inside the transaction
func (t *Txn) QueryWithVars(ctx context.Context, query string, vars map[string]string) (*common.Response, error) {
	return t.Do(ctx, &common.Request{Query: query, Vars: vars})
}

// Mutate applies mutations inside the transaction. They become visible to others
// on Commit, or right away if one of them sets CommitNow.
func (t *Txn) Mutate(ctx context.Context, mus ...*common.Mutation) (*common.Response, error) {
	return t.Do(ctx, &common.Request{Mutations: mus})
}

// Upsert runs a query and applies mutations conditioned on it
func (t *Txn) Upsert(ctx context.Context, query string, mus ...*common.Mutation) (*common.Response, error) {
	return t.Do(ctx, &common.Request{Query: query, Mutations: mus})
}

// UpsertWithVars is Upsert with query variables
func (t *Txn) UpsertWithVars(ctx context.Context, query string, vars map[string]string, mus ...*common.Mutation) (*common.Response, error) {
	return t.Do(ctx, &common.Request{Query: query, Vars: vars, Mutations: mus})
}

// Do sends req as part of the transaction. A shallow copy of req is stamped
// with the start ts and hash of the transaction, req itself is not modified.
// If req or one of its mutations sets CommitNow the transaction is finished
// afterwards and its connection is returned to the pool.
func (t *Txn) Do(ctx context.Context, req *common.Request) (*common.Response, error) {
	if t.finished {
		return nil, common.ErrTxnFinished
	}
	if req == nil {
		return nil, common.NewError(common.ErrKindInvalidArgument, "request is nil")
	}
	defer runtime.KeepAlive(t)

	sent := *req
	req = &sent
	if len(req.Mutations) > 0 {
		t.mutated = true
		for _, mu := range req.Mutations {
			if mu != nil && mu.CommitNow {
				req.CommitNow = true
			}
		}
	}

	req.StartTs = t.txnCtx.StartTs
	// the hash is only valid for one round trip
	req.Hash, t.txnCtx.Hash = t.txnCtx.Hash, ""

	// a failed request leaves the transaction open, Discard or the drop path abort it
	resp, err := t.conn.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.CommitNow {
		t.finished = true
		t.release()
		metricTxnCommitted.Inc()
	}

	if resp.Txn != nil {
		if err := t.mergeContext(resp.Txn); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// --------------------------------------------------------------------------
// Finalize
// --------------------------------------------------------------------------

// Commit commits the transaction. It fails if the transaction is already finished.
// A transaction that never mutated commits without contacting the server.
func (t *Txn) Commit(ctx context.Context) error {
	if t.finished {
		return common.ErrTxnFinished
	}
	if err := t.commitOrAbort(ctx); err != nil {
		return err
	}
	metricTxnCommitted.Inc()
	return nil
}

// Discard aborts the transaction. It is a no-op on a finished transaction and
// does not contact the server if nothing was mutated, so it is safe to defer.
func (t *Txn) Discard(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.txnCtx.Aborted = true
	if err := t.commitOrAbort(ctx); err != nil {
		return err
	}
	metricTxnDiscarded.Inc()
	return nil
}

// commitOrAbort finalizes the transaction at most once.
// finished is set before the RPC, so a failed finalize is never sent again.
func (t *Txn) commitOrAbort(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.finished = true
	defer t.release()

	if !t.mutated {
		return nil
	}

	t.txnCtx.Keys = mergeSorted(t.txnCtx.Keys, t.keys)
	t.txnCtx.Preds = mergeSorted(t.txnCtx.Preds, t.preds)
	t.keys, t.preds = nil, nil

	final := t.txnCtx
	_, err := t.conn.CommitOrAbort(ctx, &final)
	return err
}

// mergeContext folds a context returned by the server into the transaction.
// The start ts is set once; a different echoed value is a protocol violation.
func (t *Txn) mergeContext(src *common.TxnContext) error {
	t.txnCtx.Hash = src.Hash

	if t.txnCtx.StartTs == 0 {
		t.txnCtx.StartTs = src.StartTs
	}
	if t.txnCtx.StartTs != src.StartTs {
		return &common.Error{
			Kind: common.ErrKindTransaction,
			Msg:  common.ErrStartTsMismatch.Msg,
			Err:  fmt.Errorf("local start ts %d, server sent %d", t.txnCtx.StartTs, src.StartTs),
		}
	}

	// finished transactions do not collect anymore, the sets were flushed
	if t.keys == nil {
		return nil
	}
	for _, key := range src.Keys {
		t.keys[key] = struct{}{}
	}
	for _, pred := range src.Preds {
		t.preds[pred] = struct{}{}
	}
	return nil
}

// --------------------------------------------------------------------------
// Drop Path
// --------------------------------------------------------------------------

// abandon runs when an unreachable Txn is garbage collected. A mutated, unfinished
// transaction moves its state into a detached Txn that is discarded in the
// background; otherwise the connection goes straight back to the pool.
func (t *Txn) abandon() {
	if !t.handled.CompareAndSwap(false, true) {
		return
	}
	if t.finished {
		return
	}
	if !t.mutated {
		t.finished = true
		t.release()
		return
	}

	detached := &Txn{
		pool:    t.pool,
		conn:    t.conn,
		txnCtx:  t.txnCtx,
		keys:    t.keys,
		preds:   t.preds,
		mutated: true,
	}
	detached.handled.Store(true)

	t.conn, t.keys, t.preds = nil, nil, nil
	t.txnCtx = common.TxnContext{}
	t.finished = true

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dropAbortTimeout)
		defer cancel()

		if err := detached.Discard(ctx); err != nil {
			Logger.Debugf("background abort of transaction %d failed: %v", detached.txnCtx.StartTs, err)
		}
		metricTxnDropAborted.Inc()
	}()
}

// release returns the connection to the pool once
func (t *Txn) release() {
	if t.conn == nil {
		return
	}
	t.pool.release(t.conn)
	t.conn = nil
	runtime.SetFinalizer(t, nil)
}

// mergeSorted returns the sorted union of list and set
func mergeSorted(list []string, set map[string]struct{}) []string {
	if len(set) == 0 && len(list) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(list)+len(set))
	out := make([]string, 0, len(list)+len(set))
	for _, s := range list {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for s := range set {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
