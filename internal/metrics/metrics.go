package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync and restoration counters, partitioned by entity kind where a kind is
// known at the call site.

var (
	// Syncer
	SyncRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "syncer",
		Name:      "requests_total",
		Help:      "Total sync operations by kind and outcome",
	}, []string{"kind", "outcome"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trustvault",
		Subsystem: "syncer",
		Name:      "duration_seconds",
		Help:      "Sync operation duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"kind"})

	// Restoration
	RestoreRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "restore",
		Name:      "runs_total",
		Help:      "Total restoration passes started",
	})

	RestoreEntitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "restore",
		Name:      "entities_total",
		Help:      "Entities processed during restoration, by result",
	}, []string{"kind", "result"})

	RestoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "restore",
		Name:      "errors_total",
		Help:      "Per-entity restoration failures",
	})

	RestoreRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trustvault",
		Subsystem: "restore",
		Name:      "run_duration_seconds",
		Help:      "Full restoration pass duration",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	})

	// Ledger RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total ledger RPC calls by method and status",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "RPC calls delayed by the client-side rate limiter",
	})

	RPCCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trustvault",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Ledger RPC round-trip duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	// Store
	StoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trustvault",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Off-chain store operations by op and outcome",
	}, []string{"op", "outcome"})
)
