package client

import (
	"github.com/VictoriaMetrics/metrics"
)

// Driver metrics, exposed through metrics.WritePrometheus
var (
	metricConnsCreated        = metrics.GetOrCreateCounter(`dgo_pool_connections_created_total`)
	metricConnsRecycled       = metrics.GetOrCreateCounter(`dgo_pool_connections_recycled_total`)
	metricConnsClosed         = metrics.GetOrCreateCounter(`dgo_pool_connections_closed_total`)
	metricHealthCheckFailures = metrics.GetOrCreateCounter(`dgo_pool_health_check_failures_total`)
	metricWaitTimeouts        = metrics.GetOrCreateCounter(`dgo_pool_wait_timeouts_total`)

	metricTxnStarted     = metrics.GetOrCreateCounter(`dgo_txn_total{state="started"}`)
	metricTxnCommitted   = metrics.GetOrCreateCounter(`dgo_txn_total{state="committed"}`)
	metricTxnDiscarded   = metrics.GetOrCreateCounter(`dgo_txn_total{state="discarded"}`)
	metricTxnDropAborted = metrics.GetOrCreateCounter(`dgo_txn_total{state="drop_aborted"}`)
)
