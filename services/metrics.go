package services

import "github.com/prometheus/client_golang/prometheus"

// Metrics bündelt die Prometheus-Zähler der Services.
type Metrics struct {
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CacheEvicted        prometheus.Counter
	PapersInserted      prometheus.Counter
	ConnectionsRecorded *prometheus.CounterVec
	ProviderCalls       *prometheus.CounterVec
	CompletionCalls     *prometheus.CounterVec
}

// NewMetrics erstellt die Zähler und registriert sie bei reg.
// In main.go ist reg der Default-Registerer, in Tests eine frische Registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_atlas_search_cache_hits_total",
			Help: "Number of searches served from the result cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_atlas_search_cache_misses_total",
			Help: "Number of searches that had to call the provider.",
		}),
		CacheEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_atlas_search_cache_evicted_total",
			Help: "Number of expired cache rows deleted lazily or by sweep.",
		}),
		PapersInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_atlas_papers_inserted_total",
			Help: "Number of papers stored for the first time.",
		}),
		ConnectionsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_atlas_connections_recorded_total",
			Help: "Number of recorded connections by type.",
		}, []string{"type"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_atlas_provider_calls_total",
			Help: "Calls to the bibliographic provider by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		CompletionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_atlas_completion_calls_total",
			Help: "Calls to the completion endpoint by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvicted,
		m.PapersInserted,
		m.ConnectionsRecorded,
		m.ProviderCalls,
		m.CompletionCalls,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
