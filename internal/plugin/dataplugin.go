package plugin

import (
	"context"
	"fmt"

	"github.com/nodescout/nodescout/internal/core"
)

// DataPlugin composes one Collector and an optional Analyzer behind the
// plugin lifecycle: NOT_RUN -> COLLECTING -> {COLLECTED|SKIPPED|
// EXECUTION_FAILURE} -> ANALYZING -> terminal status. Every failure inside
// either phase is converted into the result at the plugin boundary; Run
// never panics and never returns an error.
type DataPlugin struct {
	name      string
	collector Collector
	analyzer  Analyzer
	decode    func(raw map[string]any) (any, error)
	deps      Deps

	collectorKeys []string
	analyzerKeys  []string

	state core.LifecycleState
}

// Option configures a DataPlugin.
type Option func(*DataPlugin)

// WithCollector binds the collection phase.
func WithCollector(c Collector) Option {
	return func(p *DataPlugin) { p.collector = c }
}

// WithAnalyzer binds the analysis phase.
func WithAnalyzer(a Analyzer) Option {
	return func(p *DataPlugin) { p.analyzer = a }
}

// WithDataDecoder installs the conversion from a raw pre-supplied data
// mapping into the plugin's typed record, enabling analyze-only runs.
func WithDataDecoder(decode func(raw map[string]any) (any, error)) Option {
	return func(p *DataPlugin) { p.decode = decode }
}

// WithCollectorArgs declares the collector's typed args record so the
// executor overlays only the shared defaults the collector accepts.
func WithCollectorArgs(prototype any) Option {
	return func(p *DataPlugin) { p.collectorKeys = ArgKeys(prototype) }
}

// WithAnalyzerArgs declares the analyzer's typed args record so the
// executor overlays only the shared defaults the analyzer accepts.
func WithAnalyzerArgs(prototype any) Option {
	return func(p *DataPlugin) { p.analyzerKeys = ArgKeys(prototype) }
}

// NewDataPlugin builds a plugin with the given phases.
func NewDataPlugin(name string, deps Deps, opts ...Option) *DataPlugin {
	p := &DataPlugin{
		name:  name,
		deps:  deps,
		state: core.StateNotRun,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the registered plugin name.
func (p *DataPlugin) Name() string {
	return p.name
}

// State reports the lifecycle state reached by the last Run.
func (p *DataPlugin) State() core.LifecycleState {
	return p.state
}

// AcceptedArgs implements ArgAccepter from the declared args records.
func (p *DataPlugin) AcceptedArgs() (collector, analyzer []string) {
	return p.collectorKeys, p.analyzerKeys
}

// transition moves the lifecycle forward. An illegal edge is a bug in this
// driver; it is logged and forced so a run still terminates.
func (p *DataPlugin) transition(next core.LifecycleState) {
	if _, err := p.state.Transition(next); err != nil {
		p.deps.logger().Error("illegal lifecycle transition", "plugin", p.name, "error", err)
	}
	p.state = next
}

// Run drives both phases per the config and returns the frozen result.
func (p *DataPlugin) Run(ctx context.Context, cfg core.PluginConfig) core.PluginResult {
	log := p.deps.logger().WithPlugin(p.name)
	result := core.PluginResult{Source: p.name}
	p.state = core.StateNotRun

	var data any

	// Malformed analyzer args fail the whole run before any command is
	// issued, so bad expectations never cause partial collection.
	if cfg.AnalyzeEnabled() && p.analyzer != nil {
		if v, ok := p.analyzer.(ArgValidator); ok {
			if err := v.ValidateArgs(cfg.AnalyzerArgs); err != nil {
				log.Error("invalid analyzer args", "error", err)
				result.AnalysisResult = p.failedTask(p.analyzer.Name(), core.TaskTypeAnalyzer,
					"invalid analyzer args", err)
				p.state = core.StateExecutionFailure
				result.State = p.state
				return result
			}
		}
	}

	if raw := cfg.Data; raw != nil {
		decoded, err := p.decodeData(raw)
		if err != nil {
			log.Error("invalid pre-supplied data", "error", err)
			result.CollectionResult = p.failedTask(p.name+"_data", core.TaskTypeCollector,
				"invalid data input", err)
			p.state = core.StateExecutionFailure
			result.State = p.state
			return result
		}
		data = decoded
	}

	if cfg.CollectEnabled() && p.collector != nil {
		collected, taskResult := p.collect(ctx, cfg)
		result.CollectionResult = taskResult
		if collected != nil {
			data = collected
		}
		if p.state == core.StateExecutionFailure {
			// Collection failure is terminal; analysis is not attempted.
			result.State = p.state
			result.Data = data
			return result
		}
	} else if data != nil {
		p.state = core.StateCollected
	}

	if cfg.AnalyzeEnabled() && p.analyzer != nil {
		result.AnalysisResult = p.analyze(ctx, cfg, data)
	}

	result.State = p.state
	result.Data = data
	return result
}

// collect runs the collection phase: gate checks first, then the collector
// itself under a panic guard.
func (p *DataPlugin) collect(ctx context.Context, cfg core.PluginConfig) (data any, taskResult *core.TaskResult) {
	p.transition(core.StateCollecting)
	task := newTask(p.collector.Name(), core.TaskTypeCollector, p.name, p.deps)
	taskResult = task.Result

	if reason := p.gate(cfg); reason != "" {
		task.Log.Info("collection skipped", "reason", reason)
		taskResult.Status = core.StatusNotRun
		taskResult.Message = reason
		taskResult.Finalize()
		p.transition(core.StateSkipped)
		return nil, taskResult
	}

	defer func() {
		if r := recover(); r != nil {
			task.LogEvent(core.CategoryRuntime, core.PriorityCritical,
				fmt.Sprintf("collector panic: %v", r), nil)
			taskResult.Status = core.StatusExecutionFailure
			taskResult.Finalize()
			p.state = core.StateExecutionFailure
			data = nil
		}
	}()

	task.Log.Info("running data collector")
	collected, err := p.collector.Collect(ctx, task, cfg.CollectorArgs)

	switch {
	case err != nil && core.IsSkip(err):
		taskResult.Status = core.StatusNotRun
		taskResult.Message = err.Error()
		taskResult.Finalize()
		p.transition(core.StateSkipped)
		return nil, taskResult
	case err != nil:
		task.LogEvent(core.CategoryRuntime, core.PriorityCritical, err.Error(), nil)
		taskResult.Status = core.StatusExecutionFailure
		taskResult.Finalize()
		p.transition(core.StateExecutionFailure)
		return nil, taskResult
	case collected == nil && taskResult.Status == core.StatusUnset:
		// A collector that produced nothing without explaining itself
		// failed to run.
		taskResult.Status = core.StatusExecutionFailure
		taskResult.Finalize()
		p.transition(core.StateExecutionFailure)
		return nil, taskResult
	}

	taskResult.Finalize()
	if collected == nil {
		p.transition(core.StateSkipped)
		return nil, taskResult
	}
	p.transition(core.StateCollected)
	return collected, taskResult
}

// gate returns a skip reason when the target does not satisfy the
// collector's declared requirements. Checked before any command is issued.
func (p *DataPlugin) gate(cfg core.PluginConfig) string {
	supported := false
	for _, family := range p.collector.SupportedOSFamilies() {
		if family == p.deps.System.OSFamily {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Sprintf("%s OS family is not supported", p.deps.System.OSFamily)
	}

	level := cfg.EffectiveLevel(p.deps.System.InteractionLevel)
	if required := p.collector.RequiredLevel(); required > level {
		return fmt.Sprintf("collector requires %s interaction level, session allows %s",
			required, level)
	}
	return ""
}

// analyze runs the analysis phase under a panic guard. The terminal status
// derives from the maximum event priority unless the analyzer set one.
func (p *DataPlugin) analyze(ctx context.Context, cfg core.PluginConfig, data any) *core.TaskResult {
	task := newTask(p.analyzer.Name(), core.TaskTypeAnalyzer, p.name, p.deps)
	taskResult := task.Result

	if data == nil {
		taskResult.Status = core.StatusNotRun
		taskResult.Message = fmt.Sprintf("no data available to analyze for %s", p.name)
		taskResult.Finalize()
		// A skipped collection keeps the plugin skipped; the empty
		// analysis only settles the state when nothing was gated.
		if p.state != core.StateSkipped {
			p.state = core.StateNotRun
		}
		return taskResult
	}

	p.transition(core.StateAnalyzing)

	defer func() {
		if r := recover(); r != nil {
			task.LogEvent(core.CategoryRuntime, core.PriorityCritical,
				fmt.Sprintf("analyzer panic: %v", r), nil)
			taskResult.Status = core.StatusExecutionFailure
			taskResult.Finalize()
			p.state = core.StateExecutionFailure
		}
	}()

	task.Log.Info("running data analyzer")
	if err := p.analyzer.Analyze(ctx, task, data, cfg.AnalyzerArgs); err != nil {
		task.LogEvent(core.CategoryRuntime, core.PriorityCritical, err.Error(), nil)
		taskResult.Status = core.StatusExecutionFailure
		taskResult.Finalize()
		p.transition(core.StateExecutionFailure)
		return taskResult
	}

	taskResult.Finalize()
	p.transition(core.StateForStatus(taskResult.Status))
	return taskResult
}

// decodeData converts a raw pre-supplied mapping into the typed record.
func (p *DataPlugin) decodeData(raw map[string]any) (any, error) {
	if p.decode == nil {
		return nil, core.ErrInvalidArgs(core.CodeUnknownArgs,
			fmt.Sprintf("%s does not accept pre-supplied data", p.name))
	}
	return p.decode(raw)
}

// failedTask builds a finalized EXECUTION_FAILURE task result carrying the
// error as a critical event.
func (p *DataPlugin) failedTask(task string, taskType core.TaskType, message string, err error) *core.TaskResult {
	result := core.NewTaskResult(task, taskType, p.name)
	result.AddEvent(core.NewEvent(core.CategoryRuntime, core.PriorityCritical, err.Error()))
	result.Status = core.StatusExecutionFailure
	result.Message = message
	result.Finalize()
	return result
}
