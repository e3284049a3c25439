package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(rateLimitRejections, cacheRequests)
}

var (
	rateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Job creation requests denied by the admission gate.",
		},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Snapshot cache requests by entity and result.",
		},
		[]string{"entity", "result"}, // result: 'hit' | 'miss'
	)
)

func IncRateLimitRejection() { rateLimitRejections.Inc() }

func IncCacheRequest(entity, result string) {
	cacheRequests.WithLabelValues(norm(entity), norm(result)).Inc()
}
