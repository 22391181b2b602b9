package visibility

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	visibilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_checks_total",
			Help: "Total number of visibility decisions",
		},
		[]string{"result"},
	)

	visibilityDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_denials_total",
			Help: "Denied visibility decisions by reason",
		},
		[]string{"reason"},
	)

	visibilityCheckErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_check_errors_total",
			Help: "Visibility checks that failed closed on a lookup error",
		},
		[]string{"stage"},
	)

	audienceBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audience_build_duration_seconds",
			Help:    "Time spent computing audience membership",
			Buckets: prometheus.DefBuckets,
		},
	)

	audienceSizes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audience_size",
			Help:    "Distribution of built audience sizes",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func RecordDecision(d Decision) {
	if d.CanView {
		visibilityChecksTotal.WithLabelValues("allowed").Inc()
		return
	}
	visibilityChecksTotal.WithLabelValues("denied").Inc()
	visibilityDenialsTotal.WithLabelValues(d.Reason).Inc()
}

func RecordCheckError(stage string) {
	visibilityCheckErrors.WithLabelValues(stage).Inc()
}

func ObserveAudienceBuild(duration time.Duration, size int) {
	audienceBuildDuration.Observe(duration.Seconds())
	audienceSizes.Observe(float64(size))
}
