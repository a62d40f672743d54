package core

import "fmt"

// LifecycleState tracks a plugin through one run. The collection phase ends
// in COLLECTED, SKIPPED, or EXECUTION_FAILURE; analysis then lands on one of
// the terminal statuses. A plugin that fails collection never enters
// ANALYZING.
type LifecycleState string

const (
	// StateNotRun is the initial state before any phase starts. It is also
	// a terminal state when analysis is skipped entirely.
	StateNotRun LifecycleState = "NOT_RUN"

	// StateCollecting means the collector is executing commands.
	StateCollecting LifecycleState = "COLLECTING"

	// StateCollected means data was obtained or pre-supplied.
	StateCollected LifecycleState = "COLLECTED"

	// StateSkipped means the target's OS family or interaction level did
	// not satisfy the collector's requirements; no command was issued.
	StateSkipped LifecycleState = "SKIPPED"

	// StateAnalyzing means the analyzer is evaluating collected data.
	StateAnalyzing LifecycleState = "ANALYZING"

	// StateOK, StateWarning, StateError are terminal analysis outcomes
	// derived from the maximum event priority observed.
	StateOK      LifecycleState = "OK"
	StateWarning LifecycleState = "WARNING"
	StateError   LifecycleState = "ERROR"

	// StateExecutionFailure is terminal for either phase: the collector or
	// analyzer itself failed to run.
	StateExecutionFailure LifecycleState = "EXECUTION_FAILURE"
)

// lifecycleTransitions defines the allowed state machine edges.
var lifecycleTransitions = map[LifecycleState][]LifecycleState{
	StateNotRun:     {StateCollecting, StateAnalyzing},
	StateCollecting: {StateCollected, StateSkipped, StateExecutionFailure},
	StateCollected:  {StateAnalyzing, StateNotRun},
	StateSkipped:    {StateAnalyzing, StateNotRun},
	StateAnalyzing:  {StateOK, StateWarning, StateError, StateNotRun, StateExecutionFailure},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s LifecycleState) CanTransitionTo(next LifecycleState) bool {
	for _, allowed := range lifecycleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next state. An illegal edge is a
// programming error in the plugin driver, not a target-system condition.
func (s LifecycleState) Transition(next LifecycleState) (LifecycleState, error) {
	if !s.CanTransitionTo(next) {
		return s, ErrState(CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", s, next))
	}
	return next, nil
}

// IsTerminal reports whether the state ends the lifecycle.
func (s LifecycleState) IsTerminal() bool {
	switch s {
	case StateOK, StateWarning, StateError, StateExecutionFailure:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s LifecycleState) String() string {
	return string(s)
}

// ValidLifecycleState checks if a state value is known.
func ValidLifecycleState(s LifecycleState) bool {
	switch s {
	case StateNotRun, StateCollecting, StateCollected, StateSkipped,
		StateAnalyzing, StateOK, StateWarning, StateError, StateExecutionFailure:
		return true
	default:
		return false
	}
}

// StateForStatus maps a terminal ExecutionStatus onto the lifecycle state it
// corresponds to.
func StateForStatus(status ExecutionStatus) LifecycleState {
	switch status {
	case StatusOK:
		return StateOK
	case StatusWarning:
		return StateWarning
	case StatusError:
		return StateError
	case StatusExecutionFailure:
		return StateExecutionFailure
	default:
		return StateNotRun
	}
}
