package core

import "testing"

func TestExecutionStatus_Order(t *testing.T) {
	ordered := AllStatuses()
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Fatalf("expected %s < %s", ordered[i-1], ordered[i])
		}
	}
	if StatusError <= StatusWarning {
		t.Fatalf("expected error to outrank warning")
	}
	if StatusExecutionFailure <= StatusError {
		t.Fatalf("expected execution failure to outrank error")
	}
}

func TestExecutionStatus_Parse(t *testing.T) {
	for _, status := range AllStatuses() {
		parsed, err := ParseStatus(status.String())
		if err != nil {
			t.Fatalf("unexpected error parsing %s: %v", status, err)
		}
		if parsed != status {
			t.Fatalf("expected %s, got %s", status, parsed)
		}
	}
	if _, err := ParseStatus("BOGUS"); err == nil {
		t.Fatalf("expected error parsing invalid status")
	}
}

func TestExecutionStatus_Validation(t *testing.T) {
	for _, status := range AllStatuses() {
		if !ValidStatus(status) {
			t.Fatalf("expected status %s to be valid", status)
		}
	}
	if ValidStatus(ExecutionStatus(7)) {
		t.Fatalf("expected unknown status value to be rejected")
	}
}

func TestExecutionStatus_TextRoundTrip(t *testing.T) {
	text, err := StatusWarning.MarshalText()
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	if string(text) != "WARNING" {
		t.Fatalf("expected WARNING, got %s", text)
	}

	var status ExecutionStatus
	if err := status.UnmarshalText(text); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if status != StatusWarning {
		t.Fatalf("expected warning after round trip, got %s", status)
	}
	if err := status.UnmarshalText([]byte("nope")); err == nil {
		t.Fatalf("expected error unmarshaling invalid status")
	}
}

func TestMaxStatus(t *testing.T) {
	if MaxStatus(StatusOK, StatusError) != StatusError {
		t.Fatalf("expected error to win over ok")
	}
	if MaxStatus(StatusExecutionFailure, StatusWarning) != StatusExecutionFailure {
		t.Fatalf("expected execution failure to win over warning")
	}
	if MaxStatus(StatusUnset, StatusUnset) != StatusUnset {
		t.Fatalf("expected unset when both unset")
	}
}

func TestExecutionStatus_ExitCode(t *testing.T) {
	cases := []struct {
		status ExecutionStatus
		code   int
	}{
		{StatusUnset, 0},
		{StatusNotRun, 0},
		{StatusOK, 0},
		{StatusWarning, 0},
		{StatusError, 1},
		{StatusExecutionFailure, 2},
	}
	for _, tc := range cases {
		if got := tc.status.ExitCode(); got != tc.code {
			t.Fatalf("expected exit code %d for %s, got %d", tc.code, tc.status, got)
		}
	}
}

func TestExecutionStatus_IsTerminalFailure(t *testing.T) {
	if !StatusExecutionFailure.IsTerminalFailure() {
		t.Fatalf("expected execution failure to be terminal")
	}
	if StatusError.IsTerminalFailure() {
		t.Fatalf("analysis error is not a terminal failure")
	}
}
