package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chirp", Name: "rate_limit_decisions_total", Help: "Post rate limit decisions by limiter and result."},
		[]string{"limiter", "result"},
	)
	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "chirp", Name: "posts_created_total", Help: "Number of posts stored."},
	)
	EnrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "chirp", Name: "enrichment_failures_total", Help: "Failed post enrichments by reason."},
		[]string{"reason"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitDecisions)
	reg.MustRegister(PostsCreated)
	reg.MustRegister(EnrichmentFailures)
}
