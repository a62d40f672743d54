package core

import (
	"fmt"
	"time"
)

// TaskType distinguishes the phases a plugin drives plus the connection
// setup task that precedes them.
type TaskType string

const (
	TaskTypeCollector  TaskType = "COLLECTOR"
	TaskTypeAnalyzer   TaskType = "ANALYZER"
	TaskTypeConnection TaskType = "CONNECTION_MANAGER"
)

// TaskResult is the outcome record of one collection or analysis phase.
// Events and artifacts are append-only while the task runs; Finalize freezes
// the status and message.
type TaskResult struct {
	Task      string          `json:"task" yaml:"task"`
	TaskType  TaskType        `json:"task_type" yaml:"task_type"`
	Parent    string          `json:"parent,omitempty" yaml:"parent,omitempty"`
	Status    ExecutionStatus `json:"status" yaml:"status"`
	Message   string          `json:"message,omitempty" yaml:"message,omitempty"`
	Events    []Event         `json:"events,omitempty" yaml:"events,omitempty"`
	Artifacts []Artifact      `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time       `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
}

// NewTaskResult creates a result for a task in its initial state.
func NewTaskResult(task string, taskType TaskType, parent string) *TaskResult {
	return &TaskResult{
		Task:      task,
		TaskType:  taskType,
		Parent:    parent,
		Status:    StatusUnset,
		StartedAt: time.Now().UTC(),
	}
}

// AddEvent appends a finding to the result.
func (r *TaskResult) AddEvent(event Event) {
	if event.Source == "" {
		event.Source = r.Task
	}
	r.Events = append(r.Events, event)
}

// AddArtifact appends raw evidence to the result.
func (r *TaskResult) AddArtifact(artifact Artifact) {
	r.Artifacts = append(r.Artifacts, artifact)
}

// MaxPriority returns the highest event priority recorded so far.
func (r *TaskResult) MaxPriority() EventPriority {
	return MaxEventPriority(r.Events)
}

// Finalize derives the status from recorded events when no status was set
// explicitly, stamps the end time, and composes the canonical message.
// Safe to call once per task; later event appends are not reflected.
func (r *TaskResult) Finalize() {
	if r.Status == StatusUnset {
		switch r.MaxPriority() {
		case PriorityCritical, PriorityError:
			r.Status = StatusError
		case PriorityWarning:
			r.Status = StatusWarning
		default:
			r.Status = StatusOK
		}
	}

	if r.Message == "" {
		r.Message = r.statusMessage()
	}
	if counts := r.countSuffix(); counts != "" {
		r.Message += counts
	}
	r.EndedAt = time.Now().UTC()
}

func (r *TaskResult) statusMessage() string {
	switch r.Status {
	case StatusOK:
		return "task completed successfully"
	case StatusWarning:
		return "task completed with warnings"
	case StatusNotRun:
		return "task skipped"
	case StatusExecutionFailure:
		return "task failed to run"
	case StatusError:
		return "task detected errors"
	default:
		return ""
	}
}

func (r *TaskResult) countSuffix() string {
	warnings := CountByPriority(r.Events, PriorityWarning)
	errorsCount := CountByPriority(r.Events, PriorityError) + CountByPriority(r.Events, PriorityCritical)

	switch {
	case warnings > 0 && errorsCount > 0:
		return fmt.Sprintf(" (%d warnings, %d errors)", warnings, errorsCount)
	case warnings > 0:
		return fmt.Sprintf(" (%d warnings)", warnings)
	case errorsCount > 0:
		return fmt.Sprintf(" (%d errors)", errorsCount)
	default:
		return ""
	}
}

// Duration returns how long the task ran.
func (r *TaskResult) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.EndedAt.Sub(r.StartedAt)
}
