// Package metrics defines the Prometheus metrics exported by the node.
// All metrics share the "ledgernode" namespace and register with the
// default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledgernode"

var (
	// BlocksAccepted counts blocks added to some branch.
	BlocksAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "blocks_accepted_total",
		Help:      "Number of blocks accepted by the ledger",
	})

	// BlocksRejected counts rejected blocks by reason.
	BlocksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "blocks_rejected_total",
		Help:      "Number of blocks rejected by the ledger",
	}, []string{"reason"})

	// Forks counts branches created by blocks extending a non-tip block.
	Forks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "forks_total",
		Help:      "Number of branches created by forks",
	})

	// BranchesPruned counts branches discarded for falling behind.
	BranchesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "branches_pruned_total",
		Help:      "Number of branches discarded for falling behind the cut-off age",
	})

	// Branches is the number of retained branches.
	Branches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "branches",
		Help:      "Number of retained branches",
	})

	// CanonicalHeight is the height of the canonical tip.
	CanonicalHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "canonical_height",
		Help:      "Height of the canonical branch tip",
	})

	// TxsAdmitted counts transactions admitted by batch validation.
	TxsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "txs_admitted_total",
		Help:      "Number of transactions admitted by batch validation",
	})

	// TxsRejected counts transactions rejected by batch validation, by reason.
	TxsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "txs_rejected_total",
		Help:      "Number of transactions rejected by batch validation",
	}, []string{"reason"})

	// BatchDuration observes the time spent validating one batch.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "validator",
		Name:      "batch_duration_seconds",
		Help:      "Time spent validating a transaction batch",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// MempoolSize is the number of pending transactions.
	MempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "mempool",
		Name:      "size",
		Help:      "Number of transactions in the mempool",
	})

	// BlocksAssembled counts blocks produced by the local assembler.
	BlocksAssembled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assembler",
		Name:      "blocks_total",
		Help:      "Number of blocks assembled locally",
	})

	// RPCRequests counts JSON-RPC calls by method and outcome.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Number of JSON-RPC requests",
	}, []string{"method", "status"})
)
