package recommend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"remedy/internal/evidence"
)

var (
	// RecommendationsTotal counts resolutions by outcome.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remedy_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionDuration tracks end-to-end latency including storage lookups.
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remedy_resolution_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	// ObservationsPerRequest tracks how many observations users select.
	ObservationsPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remedy_observations_per_request",
			Help:    "Number of observations selected per recommendation request",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	// ObservationsWithoutRule counts selected observations that had no rule.
	ObservationsWithoutRule = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remedy_observations_without_rule_total",
			Help: "Total number of selected observations that matched no rule",
		},
	)
)

// RecordResolution records the metrics of one recommendation.
func RecordResolution(outcome evidence.Outcome, selected, missing int, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(outcome.String()).Inc()
	ResolutionDuration.Observe(duration.Seconds())
	ObservationsPerRequest.Observe(float64(selected))
	if missing > 0 {
		ObservationsWithoutRule.Add(float64(missing))
	}
}
