// Package metrics exposes the process's Prometheus registry and the fixed
// set of counters/gauges/histograms the pipeline's components update.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric the pipeline updates, registered against its
// own registry so /metrics never leaks Go runtime defaults accidentally
// collected by the global registry.
type Metrics struct {
	reg *prometheus.Registry

	ProbesTotal       *prometheus.CounterVec
	ProbeDuration     *prometheus.HistogramVec
	EnrichmentLookups *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	GraphEdgesTotal   prometheus.Counter
}

// New builds and registers the full metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netwatch",
			Subsystem: "worker",
			Name:      "probes_total",
			Help:      "Probe subprocess runs by tool and outcome.",
		}, []string{"tool", "success"}),
		ProbeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netwatch",
			Subsystem: "worker",
			Name:      "probe_duration_seconds",
			Help:      "Probe subprocess wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		EnrichmentLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netwatch",
			Subsystem: "enrich",
			Name:      "lookups_total",
			Help:      "Enrichment source lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netwatch",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current pending task count.",
		}),
		GraphEdgesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netwatch",
			Subsystem: "graph",
			Name:      "edges_upserted_total",
			Help:      "AS edge upserts performed by the graph projector.",
		}),
	}

	reg.MustRegister(m.ProbesTotal, m.ProbeDuration, m.EnrichmentLookups, m.QueueDepth, m.GraphEdgesTotal)
	return m
}

// Handler serves the registry's /metrics page.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
