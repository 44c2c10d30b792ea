package enhance

import "github.com/prometheus/client_golang/prometheus"

var (
	enhanceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enhancerd",
			Subsystem: "enhance",
			Name:      "requests_total",
			Help:      "Total enhancement requests by provenance (model, rule-engine, identity)",
		},
		[]string{"provenance"},
	)

	enhanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "enhancerd",
			Subsystem: "enhance",
			Name:      "duration_seconds",
			Help:      "Duration of enhancement calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(enhanceRequestsTotal, enhanceDuration)
}
