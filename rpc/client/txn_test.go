package client

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/server"
	"github.com/stretchr/testify/require"
)

func newOraclePool(t *testing.T, size int) (*Pool, *server.OracleAdapter) {
	t.Helper()
	oracle := server.NewOracleAdapter("v-test")
	return newTestPool(t, oracle, size), oracle
}

func TestTxnFinishedRejectsRequests(t *testing.T) {
	finishers := map[string]func(ctx context.Context, txn *Txn) error{
		"commit":  func(ctx context.Context, txn *Txn) error { return txn.Commit(ctx) },
		"discard": func(ctx context.Context, txn *Txn) error { return txn.Discard(ctx) },
	}

	for name, finish := range finishers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			pool, _ := newOraclePool(t, 1)

			txn, err := pool.NewTxn(ctx)
			require.NoError(t, err)
			_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
			require.NoError(t, err)

			require.NoError(t, finish(ctx, txn))
			require.True(t, txn.Finished())

			_, err = txn.Query(ctx, "{ q(func: uid(0x1)) { name } }")
			require.ErrorIs(t, err, common.ErrTxnFinished)
			_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "bob" .`))
			require.ErrorIs(t, err, common.ErrTxnFinished)
			_, err = txn.Do(ctx, &common.Request{})
			require.ErrorIs(t, err, common.ErrTxnFinished)

			require.ErrorIs(t, txn.Commit(ctx), common.ErrTxnFinished)
			require.NoError(t, txn.Discard(ctx))

			require.Equal(t, 0, pool.Status().InUse)
		})
	}
}

func TestTxnMergeContext(t *testing.T) {
	ctx := context.Background()
	pool, _ := newOraclePool(t, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)
	defer txn.Discard(ctx)

	first := &common.TxnContext{StartTs: 5, Keys: []string{"b", "a"}, Preds: []string{"name"}, Hash: "h1"}
	second := &common.TxnContext{StartTs: 5, Keys: []string{"c"}, Preds: []string{"age", "name"}, Hash: "h2"}

	require.NoError(t, txn.mergeContext(first))
	once := txn.Context()
	require.NoError(t, txn.mergeContext(first))
	require.Equal(t, once, txn.Context())
	require.Equal(t, []string{"a", "b"}, once.Keys)
	require.Equal(t, "h1", once.Hash)

	require.NoError(t, txn.mergeContext(second))
	got := txn.Context()
	require.Equal(t, uint64(5), got.StartTs)
	require.Equal(t, []string{"a", "b", "c"}, got.Keys)
	require.Equal(t, []string{"age", "name"}, got.Preds)
	require.Equal(t, "h2", got.Hash)

	// the merge order does not matter
	reversed := &Txn{keys: make(map[string]struct{}), preds: make(map[string]struct{})}
	require.NoError(t, reversed.mergeContext(second))
	require.NoError(t, reversed.mergeContext(first))
	require.Equal(t, got.Keys, reversed.Context().Keys)
	require.Equal(t, got.Preds, reversed.Context().Preds)

	err = txn.mergeContext(&common.TxnContext{StartTs: 6, Keys: []string{"d"}})
	require.ErrorIs(t, err, common.ErrStartTsMismatch)
	require.True(t, common.IsKind(err, common.ErrKindTransaction))
	require.Equal(t, uint64(5), txn.StartTs())
	require.NotContains(t, txn.Context().Keys, "d")
}

func TestTxnReadOnlyCommitSkipsServer(t *testing.T) {
	ctx := context.Background()
	pool, oracle := newOraclePool(t, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)

	_, err = txn.Query(ctx, "{ q(func: has(name)) { uid } }")
	require.NoError(t, err)
	startTs := txn.StartTs()
	require.NotZero(t, startTs)

	_, err = txn.QueryWithVars(ctx, "query q($n: string) { q(func: eq(name, $n)) { uid } }", map[string]string{"$n": "alice"})
	require.NoError(t, err)
	require.Equal(t, startTs, txn.StartTs())

	require.NoError(t, txn.Commit(ctx))
	require.Zero(t, oracle.Stats().Finalizes)
	require.Equal(t, uint64(2), oracle.Stats().Queries)
	require.Equal(t, 0, pool.Status().InUse)

	// discarding a fresh transaction does not contact the server either
	txn, err = pool.NewTxn(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Discard(ctx))
	require.Zero(t, oracle.Stats().Finalizes)
}

func TestTxnInlineCommit(t *testing.T) {
	ctx := context.Background()
	pool, oracle := newOraclePool(t, 1)

	t.Run("request flag", func(t *testing.T) {
		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)

		resp, err := txn.Do(ctx, &common.Request{
			CommitNow: true,
			Mutations: []*common.Mutation{nquads(`<0x1> <name> "alice" .`)},
		})
		require.NoError(t, err)
		require.NotZero(t, resp.Txn.CommitTs)
		require.True(t, txn.Finished())
		require.Equal(t, 0, pool.Status().InUse)

		_, err = txn.Query(ctx, "{}")
		require.ErrorIs(t, err, common.ErrTxnFinished)
		require.NoError(t, txn.Discard(ctx))
	})

	t.Run("mutation flag", func(t *testing.T) {
		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)

		mu := nquads(`<0x2> <name> "bob" .`)
		mu.CommitNow = true
		_, err = txn.Upsert(ctx, "{ u as var(func: eq(name, \"bob\")) }", mu)
		require.NoError(t, err)
		require.True(t, txn.Finished())
	})

	require.Equal(t, uint64(2), oracle.Stats().Commits)
	require.Zero(t, oracle.Stats().Finalizes)
}

func TestTxnCommitCollectsContext(t *testing.T) {
	ctx := context.Background()
	adapter := &scriptedAdapter{replies: []*common.TxnContext{
		{StartTs: 7, Keys: []string{"a"}, Preds: []string{"name"}, Hash: "h1"},
		{StartTs: 7, Keys: []string{"b"}, Preds: []string{"name"}, Hash: "h2"},
	}}
	pool := newTestPool(t, adapter, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)

	_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
	require.NoError(t, err)
	_, err = txn.Mutate(ctx, nquads(`<0x2> <name> "bob" .`))
	require.NoError(t, err)
	require.NoError(t, txn.Commit(ctx))

	sent := adapter.sent()
	require.Len(t, sent, 2)
	require.Zero(t, sent[0].StartTs)
	require.Empty(t, sent[0].Hash)
	require.Equal(t, uint64(7), sent[1].StartTs)
	require.Equal(t, "h1", sent[1].Hash)
	require.False(t, sent[0].CommitNow)

	finals := adapter.finals()
	require.Len(t, finals, 1)
	require.Equal(t, uint64(7), finals[0].StartTs)
	require.Equal(t, []string{"a", "b"}, finals[0].Keys)
	require.Equal(t, []string{"name"}, finals[0].Preds)
	require.False(t, finals[0].Aborted)
}

func TestTxnDoLeavesRequestUntouched(t *testing.T) {
	ctx := context.Background()
	adapter := &scriptedAdapter{replies: []*common.TxnContext{{StartTs: 7, Hash: "h1"}}}
	pool := newTestPool(t, adapter, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)
	_, err = txn.Query(ctx, "{}")
	require.NoError(t, err)

	mu := nquads(`<0x1> <name> "alice" .`)
	mu.CommitNow = true
	req := &common.Request{Mutations: []*common.Mutation{mu}}
	_, err = txn.Do(ctx, req)
	require.NoError(t, err)
	require.True(t, txn.Finished())

	require.False(t, req.CommitNow)
	require.Zero(t, req.StartTs)
	require.Empty(t, req.Hash)

	sent := adapter.sent()
	require.Len(t, sent, 2)
	require.True(t, sent[1].CommitNow)
	require.Equal(t, uint64(7), sent[1].StartTs)
	require.Equal(t, "h1", sent[1].Hash)
}

func TestTxnStartTsMismatch(t *testing.T) {
	ctx := context.Background()
	adapter := &scriptedAdapter{replies: []*common.TxnContext{
		{StartTs: 5, Keys: []string{"a"}},
		{StartTs: 6, Keys: []string{"b"}},
	}}
	pool := newTestPool(t, adapter, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)

	_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
	require.NoError(t, err)

	_, err = txn.Mutate(ctx, nquads(`<0x2> <name> "bob" .`))
	require.ErrorIs(t, err, common.ErrStartTsMismatch)
	require.Equal(t, uint64(5), txn.StartTs())
	require.False(t, txn.Finished())

	require.NoError(t, txn.Discard(ctx))
	finals := adapter.finals()
	require.Len(t, finals, 1)
	require.Equal(t, uint64(5), finals[0].StartTs)
	require.True(t, finals[0].Aborted)
	require.Equal(t, []string{"a"}, finals[0].Keys)
}

func TestTxnConflict(t *testing.T) {
	ctx := context.Background()
	pool, oracle := newOraclePool(t, 2)

	first, err := pool.NewTxn(ctx)
	require.NoError(t, err)
	second, err := pool.NewTxn(ctx)
	require.NoError(t, err)

	_, err = first.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
	require.NoError(t, err)
	_, err = second.Mutate(ctx, nquads(`<0x1> <name> "bob" .`))
	require.NoError(t, err)

	// second started later, so first committing afterwards conflicts
	require.NoError(t, second.Commit(ctx))
	err = first.Commit(ctx)
	require.True(t, common.IsAborted(err))
	require.True(t, common.IsKind(err, common.ErrKindStatus))
	require.True(t, first.Finished())
	require.ErrorIs(t, first.Commit(ctx), common.ErrTxnFinished)

	require.Equal(t, uint64(1), oracle.Stats().Conflicts)
	require.Equal(t, uint64(2), oracle.Stats().Finalizes)
	require.Equal(t, 0, pool.Status().InUse)
}

func TestTxnRequestErrorKeepsTxnOpen(t *testing.T) {
	ctx := context.Background()
	pool, oracle := newOraclePool(t, 1)

	txn, err := pool.NewTxn(ctx)
	require.NoError(t, err)

	_, err = txn.Do(ctx, nil)
	require.True(t, common.IsKind(err, common.ErrKindInvalidArgument))

	_, err = txn.Do(ctx, &common.Request{BestEffort: true})
	var se *common.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, common.StatusInvalidArgument, se.Code)
	require.False(t, txn.Finished())

	_, err = txn.Query(ctx, "{}")
	require.NoError(t, err)
	require.NoError(t, txn.Discard(ctx))
	require.Zero(t, oracle.Stats().Finalizes)
}

func TestTxnAbandon(t *testing.T) {
	ctx := context.Background()

	t.Run("mutated", func(t *testing.T) {
		pool, oracle := newOraclePool(t, 1)

		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)
		_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
		require.NoError(t, err)

		txn.abandon()
		txn.abandon()
		require.True(t, txn.Finished())

		require.Eventually(t, func() bool {
			return oracle.Stats().Aborts == 1 && pool.Status().InUse == 0
		}, 5*time.Second, 10*time.Millisecond)
		require.Equal(t, uint64(1), oracle.Stats().Finalizes)
	})

	t.Run("not mutated", func(t *testing.T) {
		pool, oracle := newOraclePool(t, 1)

		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)
		_, err = txn.Query(ctx, "{}")
		require.NoError(t, err)

		txn.abandon()
		require.Equal(t, 0, pool.Status().InUse)
		require.Zero(t, oracle.Stats().Finalizes)
	})

	t.Run("finished", func(t *testing.T) {
		pool, oracle := newOraclePool(t, 1)

		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)
		_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
		require.NoError(t, err)
		require.NoError(t, txn.Commit(ctx))

		txn.abandon()
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, uint64(1), oracle.Stats().Finalizes)
		require.Zero(t, oracle.Stats().Aborts)
	})

	t.Run("does not wait for the abort", func(t *testing.T) {
		adapter := &gatedAdapter{
			OracleAdapter: server.NewOracleAdapter("v-test"),
			entered:       make(chan struct{}, 1),
			gate:          make(chan struct{}),
		}
		pool := newTestPool(t, adapter, 1)

		txn, err := pool.NewTxn(ctx)
		require.NoError(t, err)
		_, err = txn.Mutate(ctx, nquads(`<0x1> <name> "alice" .`))
		require.NoError(t, err)

		returned := make(chan struct{})
		go func() {
			txn.abandon()
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(5 * time.Second):
			t.Fatal("abandon waited for the server")
		}

		select {
		case <-adapter.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("abort never reached the server")
		}
		require.Zero(t, adapter.Stats().Aborts)
		require.Equal(t, 1, pool.Status().InUse)

		close(adapter.gate)
		require.Eventually(t, func() bool {
			return adapter.Stats().Aborts == 1 && pool.Status().InUse == 0
		}, 5*time.Second, 10*time.Millisecond)
		require.Equal(t, uint64(1), adapter.Stats().Finalizes)
	})

	t.Run("garbage collected", func(t *testing.T) {
		pool, oracle := newOraclePool(t, 1)
		mutateAndDrop(t, pool)

		require.Eventually(t, func() bool {
			runtime.GC()
			return oracle.Stats().Aborts == 1 && pool.Status().InUse == 0
		}, 5*time.Second, 20*time.Millisecond)
	})
}

// gatedAdapter holds every finalize request until gate is closed
type gatedAdapter struct {
	*server.OracleAdapter
	entered chan struct{}
	gate    chan struct{}
}

func (a *gatedAdapter) Handle(req *common.Message) *common.Message {
	if req.MsgType == common.MsgTCommitOrAbort {
		a.entered <- struct{}{}
		<-a.gate
	}
	return a.OracleAdapter.Handle(req)
}

//go:noinline
func mutateAndDrop(t *testing.T, pool *Pool) {
	txn, err := pool.NewTxn(context.Background())
	require.NoError(t, err)
	_, err = txn.Mutate(context.Background(), nquads(`<0x1> <name> "alice" .`))
	require.NoError(t, err)
}

func TestMergeSorted(t *testing.T) {
	require.Nil(t, mergeSorted(nil, nil))
	require.Equal(t, []string{"a", "b", "c"}, mergeSorted([]string{"c", "a"}, map[string]struct{}{"b": {}, "a": {}}))
}
