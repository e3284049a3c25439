package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsProcessedTotal, jobsInFlight, jobsCleanedTotal, phaseTransitionsTotal)
}

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_processed_total",
			Help: "Total generation jobs driven to a terminal phase, labeled by status.",
		},
		[]string{"status"}, // 'ready', 'failed', 'cancelled'
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_jobs_in_flight",
			Help: "Jobs currently owned by a pipeline worker.",
		},
	)

	jobsCleanedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_jobs_cleaned_total",
			Help: "Terminal jobs removed by the retention sweep.",
		},
	)

	phaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_phase_transitions_total",
			Help: "Persisted phase transitions, labeled by target phase.",
		},
		[]string{"phase"},
	)
)

func IncJobProcessed(status string) { jobsProcessedTotal.WithLabelValues(norm(status)).Inc() }
func JobStarted()                   { jobsInFlight.Inc() }
func JobFinished()                  { jobsInFlight.Dec() }
func AddJobsCleaned(n int)          { jobsCleanedTotal.Add(float64(n)) }
func IncPhaseTransition(phase string) {
	phaseTransitionsTotal.WithLabelValues(norm(phase)).Inc()
}
