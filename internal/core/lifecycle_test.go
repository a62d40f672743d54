package core

import (
	"errors"
	"testing"
)

func TestLifecycle_LegalEdges(t *testing.T) {
	edges := []struct {
		from LifecycleState
		to   LifecycleState
	}{
		{StateNotRun, StateCollecting},
		{StateNotRun, StateAnalyzing},
		{StateCollecting, StateCollected},
		{StateCollecting, StateSkipped},
		{StateCollecting, StateExecutionFailure},
		{StateCollected, StateAnalyzing},
		{StateCollected, StateNotRun},
		{StateSkipped, StateAnalyzing},
		{StateSkipped, StateNotRun},
		{StateAnalyzing, StateOK},
		{StateAnalyzing, StateWarning},
		{StateAnalyzing, StateError},
		{StateAnalyzing, StateNotRun},
		{StateAnalyzing, StateExecutionFailure},
	}
	for _, edge := range edges {
		next, err := edge.from.Transition(edge.to)
		if err != nil {
			t.Fatalf("expected %s -> %s to be legal: %v", edge.from, edge.to, err)
		}
		if next != edge.to {
			t.Fatalf("expected transition to land on %s, got %s", edge.to, next)
		}
	}
}

func TestLifecycle_IllegalEdges(t *testing.T) {
	edges := []struct {
		from LifecycleState
		to   LifecycleState
	}{
		{StateNotRun, StateCollected},
		{StateNotRun, LifecycleState("BOGUS")},
		{StateCollecting, StateAnalyzing},
		{StateCollected, StateOK},
		{StateOK, StateCollecting},
		{StateError, StateAnalyzing},
		{StateExecutionFailure, StateCollecting},
	}
	for _, edge := range edges {
		next, err := edge.from.Transition(edge.to)
		if err == nil {
			t.Fatalf("expected %s -> %s to be rejected", edge.from, edge.to)
		}
		if next != edge.from {
			t.Fatalf("expected state to stay %s on rejected edge, got %s", edge.from, next)
		}
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != CodeInvalidTransition {
			t.Fatalf("expected invalid transition error, got %v", err)
		}
	}
}

func TestLifecycle_Terminal(t *testing.T) {
	terminal := []LifecycleState{StateOK, StateWarning, StateError, StateExecutionFailure}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
		if len(lifecycleTransitions[s]) != 0 {
			t.Fatalf("expected no outgoing edges from terminal state %s", s)
		}
	}
	for _, s := range []LifecycleState{StateNotRun, StateCollecting, StateCollected, StateSkipped, StateAnalyzing} {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestLifecycle_Validation(t *testing.T) {
	for _, s := range []LifecycleState{
		StateNotRun, StateCollecting, StateCollected, StateSkipped,
		StateAnalyzing, StateOK, StateWarning, StateError, StateExecutionFailure,
	} {
		if !ValidLifecycleState(s) {
			t.Fatalf("expected state %s to be valid", s)
		}
	}
	if ValidLifecycleState("invalid") {
		t.Fatalf("expected invalid state to be rejected")
	}
}

func TestStateForStatus(t *testing.T) {
	cases := []struct {
		status ExecutionStatus
		state  LifecycleState
	}{
		{StatusOK, StateOK},
		{StatusWarning, StateWarning},
		{StatusError, StateError},
		{StatusExecutionFailure, StateExecutionFailure},
		{StatusNotRun, StateNotRun},
		{StatusUnset, StateNotRun},
	}
	for _, tc := range cases {
		if got := StateForStatus(tc.status); got != tc.state {
			t.Fatalf("expected state %s for status %s, got %s", tc.state, tc.status, got)
		}
	}
}
