package acquire

import "github.com/prometheus/client_golang/prometheus"

var (
	acquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "enhancerd",
			Subsystem: "acquire",
			Name:      "acquisitions_total",
			Help:      "Total acquisition attempts by outcome",
		},
		[]string{"outcome"},
	)

	placeholdersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "enhancerd",
			Subsystem: "acquire",
			Name:      "placeholders_synthesized_total",
			Help:      "Total placeholder artifacts written after exhausting network sources",
		},
	)
)

func init() {
	prometheus.MustRegister(acquisitionsTotal, placeholdersTotal)
}
