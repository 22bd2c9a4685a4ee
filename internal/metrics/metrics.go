// Package metrics exposes the Prometheus instrumentation backing the
// GET /metrics endpoint (spec.md §6 EXPANDED): search latency, documents
// indexed per role, and thesaurus rebuild counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the server records, all registered against
// a single prometheus.Registerer so callers can mount one /metrics handler.
type Registry struct {
	SearchDuration    *prometheus.HistogramVec
	DocumentsIndexed  *prometheus.CounterVec
	ThesaurusRebuilds *prometheus.CounterVec
	GraphNodes        *prometheus.GaugeVec
}

// New creates and registers a Registry against reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rolegraph",
			Name:      "search_duration_seconds",
			Help:      "Time spent executing a search request, by role.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role"}),
		DocumentsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolegraph",
			Name:      "documents_indexed_total",
			Help:      "Documents inserted into a role's graph.",
		}, []string{"role"}),
		ThesaurusRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rolegraph",
			Name:      "thesaurus_rebuilds_total",
			Help:      "Thesaurus rebuild-and-swap operations, by role and outcome.",
		}, []string{"role", "outcome"}),
		GraphNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rolegraph",
			Name:      "graph_nodes",
			Help:      "Current number of concept nodes in a role's graph.",
		}, []string{"role"}),
	}

	reg.MustRegister(r.SearchDuration, r.DocumentsIndexed, r.ThesaurusRebuilds, r.GraphNodes)
	return r
}
