package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_scores",
			Help:    "Distribution of overall compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	rankingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_rankings_total",
			Help: "Total number of ranking passes",
		},
	)

	rankedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranked_candidates",
			Help:    "Number of candidates returned per ranking pass",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	candidatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_skipped_total",
			Help: "Candidates dropped from a ranking pass after a fetch failure",
		},
	)
)

func RecordCompatibilityScore(score float64) {
	compatibilityScores.Observe(score)
}

func RecordRanking(resultCount int) {
	rankingsTotal.Inc()
	rankedCandidates.Observe(float64(resultCount))
}

func RecordCandidateSkipped() {
	candidatesSkipped.Inc()
}
