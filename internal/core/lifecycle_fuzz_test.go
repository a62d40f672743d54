//go:build go1.18

package core

import "testing"

// FuzzLifecycleTransitions drives the state machine with arbitrary edge
// sequences and checks its invariants.
func FuzzLifecycleTransitions(f *testing.F) {
	// Seed with common plugin runs.
	// 0=COLLECTING, 1=COLLECTED, 2=SKIPPED, 3=ANALYZING, 4=OK, 5=WARNING,
	// 6=ERROR, 7=NOT_RUN, 8=EXECUTION_FAILURE
	f.Add([]byte{0, 1, 3, 4})    // collect, analyze, ok
	f.Add([]byte{0, 2, 3, 6})    // skipped collection, analysis finds errors
	f.Add([]byte{0, 8})          // collection failure
	f.Add([]byte{3, 5})          // analyze-only with warnings
	f.Add([]byte{0, 1, 7})       // collect-only
	f.Add([]byte{4, 0})          // garbage after terminal
	f.Add([]byte{0, 0, 1, 1, 3}) // repeated edges

	targets := []LifecycleState{
		StateCollecting, StateCollected, StateSkipped, StateAnalyzing,
		StateOK, StateWarning, StateError, StateNotRun, StateExecutionFailure,
	}

	f.Fuzz(func(t *testing.T, sequence []byte) {
		state := StateNotRun
		for _, op := range sequence {
			target := targets[int(op)%len(targets)]
			wasTerminal := state.IsTerminal()

			next, err := state.Transition(target)

			if err != nil {
				if next != state {
					t.Fatalf("rejected transition must not move state: %s -> %s", state, next)
				}
				continue
			}
			if wasTerminal {
				t.Fatalf("terminal state %s accepted a transition to %s", state, target)
			}
			if !ValidLifecycleState(next) {
				t.Fatalf("transition produced unknown state %s", next)
			}
			state = next
		}
	})
}
