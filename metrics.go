package kv

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics holds the Prometheus collectors for a single node.
// Every node carries its own registry so that several nodes can run
// in one process without colliding.
type serverMetrics struct {
	registry *prometheus.Registry

	// Total records pushed to peers, by peer address.
	pushes *prometheus.CounterVec

	// Total pushes that failed or timed out, by peer address. A failed
	// push is counted and never retried.
	pushFailures *prometheus.CounterVec

	// Total replicated records received from peers that were installed.
	applied prometheus.Counter

	// Total replicated records received from peers that lost the
	// last-writer-wins comparison and were discarded.
	discarded prometheus.Counter

	// The current value of the node's Lamport clock.
	lamportTime prometheus.GaugeFunc

	// The number of keys in the node's store.
	keys prometheus.GaugeFunc
}

// newServerMetrics creates and registers the collectors for the node
// with the provided ID. The clock and key gauges read through to the
// provided store.
func newServerMetrics(id string, store *Store) *serverMetrics {
	constLabels := prometheus.Labels{"node": id}

	m := &serverMetrics{registry: prometheus.NewRegistry()}
	m.pushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kv_replication_pushes_total",
		Help:        "Total number of records pushed to peers.",
		ConstLabels: constLabels,
	}, []string{"peer"})
	m.pushFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kv_replication_push_failures_total",
		Help:        "Total number of pushes to peers that failed or timed out.",
		ConstLabels: constLabels,
	}, []string{"peer"})
	m.applied = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "kv_replication_applied_total",
		Help:        "Total number of replicated records received and installed.",
		ConstLabels: constLabels,
	})
	m.discarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "kv_replication_discarded_total",
		Help:        "Total number of replicated records discarded as stale.",
		ConstLabels: constLabels,
	})
	m.lamportTime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "kv_lamport_time",
		Help:        "Current value of the node's Lamport clock.",
		ConstLabels: constLabels,
	}, func() float64 {
		return float64(store.clock.Time())
	})
	m.keys = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "kv_store_keys",
		Help:        "Number of keys in the node's store.",
		ConstLabels: constLabels,
	}, func() float64 {
		return float64(store.Len())
	})

	m.registry.MustRegister(
		m.pushes,
		m.pushFailures,
		m.applied,
		m.discarded,
		m.lamportTime,
		m.keys,
	)

	return m
}

// handler returns an HTTP handler serving the node's collectors in
// the Prometheus exposition format.
func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
