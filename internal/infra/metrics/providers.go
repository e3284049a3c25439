package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(providerAttemptsTotal, providerTokensTotal, providerCostMicro, providerLatencyMs, fallbackExhaustedTotal)
}

var (
	providerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_attempts_total",
			Help: "Provider invocations inside fallback sequences, labeled by outcome class.",
		},
		[]string{"provider", "class"}, // class: 'success', 'transient', 'permanent', 'rate_limited'
	)

	providerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_tokens_total",
			Help: "Sum of billed tokens per provider, failed attempts included.",
		},
		[]string{"provider"},
	)

	providerCostMicro = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_cost_micro",
			Help: "Total micro-credits spent per provider.",
		},
		[]string{"provider"},
	)

	providerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider", "success"},
	)

	fallbackExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_fallback_exhausted_total",
			Help: "Fallback sequences that ran out of candidates without a success.",
		},
	)
)

func ObserveProviderAttempt(provider, class string, tokens int, costMicro int64, latencyMs int, success bool) {
	providerAttemptsTotal.WithLabelValues(norm(provider), norm(class)).Inc()
	providerTokensTotal.WithLabelValues(norm(provider)).Add(float64(tokens))
	providerCostMicro.WithLabelValues(norm(provider)).Add(float64(costMicro))
	providerLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncFallbackExhausted() { fallbackExhaustedTotal.Inc() }
