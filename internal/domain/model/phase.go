package model

import "ai-content-orchestrator/internal/domain"

// Phase is the fine-grained pipeline position of a generation job.
// Phases advance strictly forward; "error" is reachable from any
// non-terminal phase and, like "completed", is terminal.
type Phase string

const (
	PhaseQueued      Phase = "queued"
	PhaseAnalyzing   Phase = "analyzing"
	PhaseStructuring Phase = "structuring"
	PhaseWriting     Phase = "writing"
	PhaseOptimizing  Phase = "optimizing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseCompleted   Phase = "completed"
	PhaseError       Phase = "error"
)

// phaseOrder is the single legal forward sequence.
var phaseOrder = []Phase{
	PhaseQueued,
	PhaseAnalyzing,
	PhaseStructuring,
	PhaseWriting,
	PhaseOptimizing,
	PhaseFinalizing,
	PhaseCompleted,
}

// phaseFloor maps each phase to its progress floor. Percentage must never
// fall below the floor of the current phase.
var phaseFloor = map[Phase]int{
	PhaseQueued:      0,
	PhaseAnalyzing:   15,
	PhaseStructuring: 30,
	PhaseWriting:     60,
	PhaseOptimizing:  80,
	PhaseFinalizing:  95,
	PhaseCompleted:   100,
	PhaseError:       0,
}

var phaseStep = map[Phase]string{
	PhaseQueued:      "Waiting in queue",
	PhaseAnalyzing:   "Analyzing topic and keywords",
	PhaseStructuring: "Building article outline",
	PhaseWriting:     "Writing article content",
	PhaseOptimizing:  "Optimizing for search",
	PhaseFinalizing:  "Saving article",
	PhaseCompleted:   "Article ready",
	PhaseError:       "Generation failed",
}

// Floor returns the progress floor for p (0 for unknown phases).
func (p Phase) Floor() int { return phaseFloor[p] }

// Step returns the human-readable description for p.
func (p Phase) Step() string { return phaseStep[p] }

// Terminal reports whether p accepts no further transitions.
func (p Phase) Terminal() bool { return p == PhaseCompleted || p == PhaseError }

// Index returns the position of p in the forward sequence, or -1 for
// "error" and unknown values.
func (p Phase) Index() int {
	for i, ph := range phaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// NextPhase returns the phase that follows p in the forward sequence.
func NextPhase(p Phase) (Phase, error) {
	i := p.Index()
	if i < 0 || p.Terminal() {
		return "", domain.ErrInvalidTransition
	}
	return phaseOrder[i+1], nil
}

// CanTransition reports whether moving from -> to is legal: exactly one
// step forward, a documented single-phase skip, or a jump to error from
// any non-terminal phase.
func CanTransition(from, to Phase, skip bool) bool {
	if from.Terminal() {
		return false
	}
	if to == PhaseError {
		return true
	}
	fi, ti := from.Index(), to.Index()
	if fi < 0 || ti < 0 {
		return false
	}
	if ti == fi+1 {
		return true
	}
	// A phase whose work is a no-op for this request may be skipped,
	// but only one at a time and only when explicitly requested.
	return skip && ti == fi+2
}
