package plugin

import (
	"context"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
)

// Task is the execution context handed to a Collector or Analyzer for one
// phase: the target identity, the shared transport, a scoped logger, and the
// TaskResult the phase accumulates events and artifacts on.
type Task struct {
	System *core.SystemInfo
	Shell  conn.Shell
	Log    *logging.Logger
	Result *core.TaskResult

	commandCount int
}

// newTask builds a task for one phase of the named plugin.
func newTask(name string, taskType core.TaskType, parent string, deps Deps) *Task {
	return &Task{
		System: deps.System,
		Shell:  deps.Shell,
		Log:    deps.logger().WithTask(name),
		Result: core.NewTaskResult(name, taskType, parent),
	}
}

// CommandOption adjusts how RunCommand records a command.
type CommandOption func(*commandOptions)

type commandOptions struct {
	skipArtifact bool
}

// WithoutArtifact suppresses the command transcript artifact, for commands
// whose output is large and persisted separately.
func WithoutArtifact() CommandOption {
	return func(o *commandOptions) { o.skipArtifact = true }
}

// RunCommand executes one command on the target and records its transcript
// as an artifact on the task result. Transport and timeout errors are
// returned for the lifecycle driver to convert; a non-zero exit is data.
func (t *Task) RunCommand(ctx context.Context, cmd conn.Command, opts ...CommandOption) (*conn.CommandResult, error) {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}

	if t.Shell == nil {
		return nil, core.ErrConnection(t.System.Name, "no transport available")
	}

	t.commandCount++
	res, err := t.Shell.Execute(ctx, cmd)
	if err != nil {
		return res, err
	}
	if !o.skipArtifact {
		t.Result.AddArtifact(core.CommandArtifact{
			Command:  res.Command,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		})
	}
	return res, nil
}

// CommandCount reports how many commands the task has issued.
func (t *Task) CommandCount() int {
	return t.commandCount
}

// LogEvent appends a finding to the task result and logs it.
func (t *Task) LogEvent(category core.EventCategory, priority core.EventPriority, description string, data map[string]any) {
	event := core.NewEvent(category, priority, description)
	if data != nil {
		event = event.WithData(data)
	}
	t.Result.AddEvent(event)

	switch {
	case priority >= core.PriorityError:
		t.Log.Error(description, "category", category, "priority", priority)
	case priority == core.PriorityWarning:
		t.Log.Warn(description, "category", category, "priority", priority)
	default:
		t.Log.Debug(description, "category", category, "priority", priority)
	}
}

// Fail records a command whose exit code made its output unusable and
// returns the matching collection error.
func (t *Task) Fail(res *conn.CommandResult, description string) error {
	t.LogEvent(core.CategoryOS, core.PriorityError, description, map[string]any{
		"command":   res.Command,
		"exit_code": res.ExitCode,
		"stderr":    res.Stderr,
	})
	return core.ErrCollection(core.CodeCommandFailed, description)
}
