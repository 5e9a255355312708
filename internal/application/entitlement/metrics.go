package entitlement

import "github.com/prometheus/client_golang/prometheus"

var (
	resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "resolutions_total",
		Help:      "Total policy resolutions by outcome.",
	}, []string{"outcome"}) // "resolved", "not_subscribed", "store_error"

	cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "cache_lookups_total",
		Help:      "Total resolution cache lookups by result.",
	}, []string{"result"}) // "hit", "miss", "error"

	malformedDocumentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "malformed_documents_total",
		Help:      "Total features documents that failed to parse cleanly, by source.",
	}, []string{"source"}) // "plan", "override"

	resolutionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "resolution_latency_seconds",
		Help:      "Latency of uncached policy resolutions in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	denialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "denials_total",
		Help:      "Total guard denials by kind.",
	}, []string{"kind"}) // "feature", "page", "permission", "limit", "unauthenticated", "internal"

	fieldsStrippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasklane",
		Subsystem: "entitlement",
		Name:      "fields_stripped_total",
		Help:      "Total response fields removed by visibility policy, by entity.",
	}, []string{"entity"})
)

func init() {
	prometheus.MustRegister(
		resolutionsTotal,
		cacheLookupsTotal,
		malformedDocumentsTotal,
		resolutionLatency,
		denialsTotal,
		fieldsStrippedTotal,
	)
}

// RecordDenial counts a guard denial. Kind is a DenialKind or a synthetic
// kind such as "internal" or "rate".
func RecordDenial(kind string) {
	denialsTotal.WithLabelValues(kind).Inc()
}
