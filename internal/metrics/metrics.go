package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logdiagram"

// Metrics are the pipeline counters. Each instance owns its registry so
// tests and multiple servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	LinesRead       prometheus.Counter
	EntriesParsed   prometheus.Counter
	Diagrams        *prometheus.CounterVec
	LegacyFallbacks prometheus.Counter
	Regenerations   prometheus.Counter
	DroppedResults  prometheus.Counter
}

// New creates and registers the counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Raw log lines handed to the parser.",
		}),
		EntriesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_parsed_total",
			Help:      "Log entries produced by the primary parser.",
		}),
		Diagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagrams_generated_total",
			Help:      "Diagrams generated, by type.",
		}, []string{"type"}),
		LegacyFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_fallbacks_total",
			Help:      "Generations that fell back to the legacy builder.",
		}),
		Regenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_regenerations_total",
			Help:      "Diagram rebuilds triggered by tailed files.",
		}),
		DroppedResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_dropped_results_total",
			Help:      "Live results dropped for slow subscribers.",
		}),
	}

	reg.MustRegister(
		m.LinesRead,
		m.EntriesParsed,
		m.Diagrams,
		m.LegacyFallbacks,
		m.Regenerations,
		m.DroppedResults,
	)
	return m
}


// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
