// Package client implements the driver core: a bounded pool of load balanced
// connections, single round trip clients and multi round trip transactions.
//
// Key Components:
//
//   - ConnectionManager: Creates connections over an EndpointSet with a transport
//     factory and health checks idle connections (CheckVersion) before reuse.
//
//   - Pool: At most PoolSize connections. Get, GetReadOnly and GetBestEffort return
//     a Client, NewTxn returns a Txn. Callers block while the pool is exhausted, up to
//     the deadline of their context.
//
//   - Client: Every request commits immediately (CommitNow). The read-only and best
//     effort flags are fixed when the client is obtained.
//
//   - Txn: Collects the start ts, conflict keys and predicates of every response and
//     finalizes once with CommitOrAbort. A transaction that never mutated finishes
//     without contacting the server. A mutated transaction that is garbage collected
//     unfinished is aborted in the background.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 5,
//		PoolSize:      8,
//		Transport:     common.ClientTransportConfig{RetryCount: 3, ConnectionsPerEndpoint: 1},
//	}
//
//	endpoints, err := common.NewOwnedEndpoints([]string{"alpha-1:9080", "alpha-2:9080"})
//	if err != nil {
//		return err
//	}
//
//	pool, err := client.NewPool(endpoints, config, grpc.NewGrpcClientTransport, serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	txn, err := pool.NewTxn(ctx)
//	if err != nil {
//		return err
//	}
//	defer txn.Discard(ctx)
//
//	if _, err := txn.Mutate(ctx, mu); err != nil {
//		return err
//	}
//	if err := txn.Commit(ctx); common.IsAborted(err) {
//		// conflict with a concurrent transaction, retry
//	}
//
// Errors are *common.Error values; use common.IsKind to tell transport, status,
// pool, transaction and invalid argument failures apart.
//
// Metrics of the pool and of transactions are registered with
// github.com/VictoriaMetrics/metrics and can be exposed with metrics.WritePrometheus.
package client
