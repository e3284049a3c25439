package model

import "time"

// ErrorClass categorizes a provider failure for retry decisions.
type ErrorClass string

const (
	ErrorClassTransient   ErrorClass = "transient"
	ErrorClassPermanent   ErrorClass = "permanent"
	ErrorClassRateLimited ErrorClass = "rate_limited"
)

// ProviderAttempt records the outcome of one provider invocation within a
// fallback sequence. Attempts are aggregated into the job result; failed
// attempts may still carry billable tokens.
type ProviderAttempt struct {
	Provider   string
	Success    bool
	ErrorClass ErrorClass
	Error      string
	Tokens     int
	CostMicros int64
	Latency    time.Duration
}

// SumUsage returns total tokens and cost over every attempt, including
// failed ones that consumed billable tokens before failing. This is the
// fixed billing convention for fallback sequences.
func SumUsage(attempts []ProviderAttempt) (tokens int, costMicros int64) {
	for _, a := range attempts {
		tokens += a.Tokens
		costMicros += a.CostMicros
	}
	return tokens, costMicros
}
