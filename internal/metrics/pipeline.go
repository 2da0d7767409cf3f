package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation pipeline metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tablematch",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Recommendation pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // encode / cluster / rank / rank_fresh
	)

	PlacesRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablematch",
			Name:      "places_requests_total",
			Help:      "Total requests to the places provider",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PlacesRequestsTotal)
}
