// Package metrics exposes Prometheus instrumentation for searches and the
// analysis server.
//
// All methods accept a nil *Metrics and do nothing, so callers that run
// without instrumentation (the CLI, most tests) need no special casing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/barrybecker4/applets-sub001/internal/search"
)

const namespace = "gamesearch"

// Metrics holds every collector the server registers.
type Metrics struct {
	// Searches counts finished searches.
	// Labels: strategy, outcome (complete, interrupted, error)
	Searches *prometheus.CounterVec

	// MovesConsidered counts candidate moves taken from move lists.
	// Labels: strategy
	MovesConsidered *prometheus.CounterVec

	// SearchDuration measures wall time per top-level search.
	// Labels: strategy
	SearchDuration *prometheus.HistogramVec

	// CacheLookups counts score cache probes.
	// Labels: result (hit, miss)
	CacheLookups *prometheus.CounterVec

	// Anomalies counts recorded search anomalies.
	// Labels: kind
	Anomalies *prometheus.CounterVec

	ActiveAnalyses   prometheus.Gauge
	WebsocketClients prometheus.Gauge
}

// New creates the collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "searches_total",
			Help:      "Finished searches by strategy and outcome",
		}, []string{"strategy", "outcome"}),

		MovesConsidered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "moves_considered_total",
			Help:      "Candidate moves examined by strategy",
		}, []string{"strategy"}),

		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Wall time of a top-level search",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"strategy"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Score cache lookups by result",
		}, []string{"result"}),

		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "anomalies_total",
			Help:      "Recoverable search anomalies by kind",
		}, []string{"kind"}),

		ActiveAnalyses: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "active",
			Help:      "Analyses currently running or paused",
		}),

		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
	}
}

// Outcome labels for Searches.
const (
	OutcomeComplete    = "complete"
	OutcomeInterrupted = "interrupted"
	OutcomeError       = "error"
)

// ObserveSearch records one top-level search.
func (m *Metrics) ObserveSearch(kind search.Kind, res search.Result, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeComplete
	switch {
	case err != nil:
		outcome = OutcomeError
	case res.Interrupted:
		outcome = OutcomeInterrupted
	}
	m.Searches.WithLabelValues(string(kind), outcome).Inc()
	m.MovesConsidered.WithLabelValues(string(kind)).Add(float64(res.MovesConsidered))
	m.SearchDuration.WithLabelValues(string(kind)).Observe(res.Elapsed.Seconds())
}

// ObserveCache adds lookup deltas, typically the change in a cache's
// counters across one search.
func (m *Metrics) ObserveCache(hits, misses int64) {
	if m == nil {
		return
	}
	if hits > 0 {
		m.CacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		m.CacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
}

// AnomalySink returns a callback for search.Diagnostics.OnAnomaly.
func (m *Metrics) AnomalySink() func(search.Anomaly) {
	return func(a search.Anomaly) {
		if m == nil {
			return
		}
		m.Anomalies.WithLabelValues(string(a.Kind)).Inc()
	}
}

func (m *Metrics) AnalysisStarted() {
	if m != nil {
		m.ActiveAnalyses.Inc()
	}
}

func (m *Metrics) AnalysisFinished() {
	if m != nil {
		m.ActiveAnalyses.Dec()
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.WebsocketClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.WebsocketClients.Dec()
	}
}
