package core

import "fmt"

// ExecutionStatus is the ordered severity scale for task and plugin outcomes.
// Higher values dominate when statuses are combined, so the worst outcome of
// a run is always max(statuses).
type ExecutionStatus int

const (
	// StatusUnset means no status has been assigned yet.
	StatusUnset ExecutionStatus = 0

	// StatusNotRun means the task was intentionally skipped: unsupported
	// platform, missing expectations, or disabled by configuration. Not a
	// failure.
	StatusNotRun ExecutionStatus = 10

	// StatusOK means the task completed and found nothing wrong.
	StatusOK ExecutionStatus = 20

	// StatusWarning means the task completed and the highest finding
	// priority was a warning.
	StatusWarning ExecutionStatus = 30

	// StatusError means the task completed and detected at least one
	// error-level finding.
	StatusError ExecutionStatus = 40

	// StatusExecutionFailure means the task itself could not run to
	// completion: transport failure, timeout, bad input. Distinct from
	// StatusError, which is a successful run that found problems.
	StatusExecutionFailure ExecutionStatus = 50
)

// AllStatuses returns every status in ascending severity order.
func AllStatuses() []ExecutionStatus {
	return []ExecutionStatus{
		StatusUnset,
		StatusNotRun,
		StatusOK,
		StatusWarning,
		StatusError,
		StatusExecutionFailure,
	}
}

// String returns the canonical name of the status.
func (s ExecutionStatus) String() string {
	switch s {
	case StatusUnset:
		return "UNSET"
	case StatusNotRun:
		return "NOT_RUN"
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusError:
		return "ERROR"
	case StatusExecutionFailure:
		return "EXECUTION_FAILURE"
	default:
		return fmt.Sprintf("ExecutionStatus(%d)", int(s))
	}
}

// ValidStatus checks whether the value is a known status.
func ValidStatus(s ExecutionStatus) bool {
	switch s {
	case StatusUnset, StatusNotRun, StatusOK, StatusWarning, StatusError, StatusExecutionFailure:
		return true
	default:
		return false
	}
}

// ParseStatus converts a status name to an ExecutionStatus with validation.
func ParseStatus(s string) (ExecutionStatus, error) {
	switch s {
	case "UNSET":
		return StatusUnset, nil
	case "NOT_RUN":
		return StatusNotRun, nil
	case "OK":
		return StatusOK, nil
	case "WARNING":
		return StatusWarning, nil
	case "ERROR":
		return StatusError, nil
	case "EXECUTION_FAILURE":
		return StatusExecutionFailure, nil
	default:
		return StatusUnset, fmt.Errorf("invalid execution status: %s", s)
	}
}

// MarshalText implements encoding.TextMarshaler so statuses serialize by name.
func (s ExecutionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ExecutionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminalFailure reports whether the status means the task never produced
// usable output.
func (s ExecutionStatus) IsTerminalFailure() bool {
	return s == StatusExecutionFailure
}

// MaxStatus returns the more severe of two statuses.
func MaxStatus(a, b ExecutionStatus) ExecutionStatus {
	if a > b {
		return a
	}
	return b
}

// ExitCode maps a status to a process exit code so a CLI can derive its exit
// from the worst status across all results.
func (s ExecutionStatus) ExitCode() int {
	switch {
	case s >= StatusExecutionFailure:
		return 2
	case s >= StatusError:
		return 1
	default:
		return 0
	}
}
