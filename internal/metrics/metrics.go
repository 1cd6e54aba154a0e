package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PODTokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_pod_tokens_issued_total",
			Help: "Total number of proof-of-delivery tokens issued",
		},
	)

	TrackTokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_track_tokens_issued_total",
			Help: "Total number of customer tracking tokens issued",
		},
	)

	PODConfirmationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_pod_confirmations_total",
			Help: "Total number of successful proof-of-delivery confirmations",
		},
	)

	AssignmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Total number of order-driver assignments",
		},
	)

	UnassignmentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_unassignments_total",
			Help: "Total number of order-driver unassignments",
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	FeedCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_feed_cache_hits_total",
			Help: "Total number of map feed cache hits",
		},
	)

	FeedCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_feed_cache_misses_total",
			Help: "Total number of map feed cache misses",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(PODTokensIssuedTotal)
	prometheus.MustRegister(TrackTokensIssuedTotal)
	prometheus.MustRegister(PODConfirmationsTotal)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(UnassignmentsTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(FeedCacheHitsTotal)
	prometheus.MustRegister(FeedCacheMissesTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}
