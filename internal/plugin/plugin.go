// Package plugin implements the probe execution engine: the Collector and
// Analyzer contracts, the DataPlugin lifecycle that composes them, the
// regex rule engine for log classification, the registry that resolves
// plugin names to factories, and the executor that drives an ordered queue
// of plugin configurations against one target system.
package plugin

import (
	"context"
	"time"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
)

// Plugin is one runnable probe. Run drives collection and analysis per the
// given config and returns the frozen outcome. Run must never panic or
// return an error: every failure is converted into the result's status.
type Plugin interface {
	Name() string
	Run(ctx context.Context, cfg core.PluginConfig) core.PluginResult
}

// Factory builds a plugin bound to the shared run dependencies.
type Factory func(deps Deps) Plugin

// Deps carries the per-run collaborators a plugin is constructed with. The
// same SystemInfo and Shell are shared by every plugin in one executor run.
type Deps struct {
	System  *core.SystemInfo
	Shell   conn.Shell
	Logger  *logging.Logger
	Metrics *metrics.Metrics

	// Enqueue appends a follow-up config to the running queue. Nil when the
	// plugin runs outside an executor.
	Enqueue func(cfg core.PluginConfig)
}

// logger returns the configured logger or a no-op one.
func (d Deps) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}

// Collector gathers one structured fact set from the target by executing
// commands through the task. The returned record is the plugin's collected
// data; nil with a nil error means the collector set the task status itself.
type Collector interface {
	// Name labels the collection task result.
	Name() string

	// SupportedOSFamilies lists the OS families the collector can probe.
	// The engine skips collection when the target's family is not listed.
	SupportedOSFamilies() []core.OSFamily

	// RequiredLevel is the minimum interaction level the session must
	// grant. The engine refuses to invoke the collector below it.
	RequiredLevel() core.InteractionLevel

	// Collect executes commands and parses their output into the data
	// record. Errors from the platform category mean "not applicable".
	Collect(ctx context.Context, task *Task, args map[string]any) (any, error)
}

// Analyzer evaluates a collected record against caller expectations,
// appending events to the task and setting its status. An error return is
// reserved for invalid arguments or an invalid data record.
type Analyzer interface {
	// Name labels the analysis task result.
	Name() string

	// Analyze inspects data and records findings on the task.
	Analyze(ctx context.Context, task *Task, data any, args map[string]any) error
}

// ArgAccepter is implemented by plugins that can enumerate the argument
// keys their phases accept. The executor narrows shared defaults to those
// keys before merging, so a global meant for one plugin never trips
// another plugin's closed-schema validation.
type ArgAccepter interface {
	AcceptedArgs() (collector, analyzer []string)
}

// ArgValidator is implemented by analyzers whose argument schema can be
// checked up front. The plugin validates before any command is issued so
// malformed expectations never cause partial collection side effects.
type ArgValidator interface {
	ValidateArgs(args map[string]any) error
}

// ResultHook observes each PluginResult right after its plugin finishes,
// before the result is handed to collators. Hooks may record artifact paths
// on the result; they must not alter its events or statuses.
type ResultHook interface {
	OnResult(ctx context.Context, result *core.PluginResult) error
}

// Collator consumes the full ordered result set once per executor run.
// Implementations must treat the report as read-only.
type Collator interface {
	Collate(ctx context.Context, report *RunReport) error
}

// RunReport is the aggregate outcome of one executor run.
type RunReport struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	System     core.SystemInfo     `json:"system" yaml:"system"`
	Connection *core.TaskResult    `json:"connection,omitempty" yaml:"connection,omitempty"`
	Results    []core.PluginResult `json:"results" yaml:"results"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	EndedAt    time.Time           `json:"ended_at" yaml:"ended_at"`
}

// WorstStatus returns the most severe status across the report, including
// the connection task.
func (r *RunReport) WorstStatus() core.ExecutionStatus {
	worst := core.WorstStatus(r.Results)
	if r.Connection != nil {
		worst = core.MaxStatus(worst, r.Connection.Status)
	}
	return worst
}
