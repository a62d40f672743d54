package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
)

// Executor runs an ordered queue of plugin configurations against one
// target system. Plugins execute strictly one after another; a failing
// plugin never aborts the queue, and results come back in input order.
type Executor struct {
	registry *Registry
	system   *core.SystemInfo
	connCfg  conn.Config
	logger   *logging.Logger
	metrics  *metrics.Metrics

	globals   map[string]any
	queue     []core.PluginConfig
	hooks     []ResultHook
	collators []Collator

	manager   *conn.Manager
	connected bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithGlobals sets the shared argument defaults applied to every plugin's
// collector and analyzer args. Keys a plugin sets explicitly win.
func WithGlobals(globals map[string]any) ExecutorOption {
	return func(e *Executor) { e.globals = globals }
}

// WithConnection sets the transport configuration for the target.
func WithConnection(cfg conn.Config) ExecutorOption {
	return func(e *Executor) { e.connCfg = cfg }
}

// WithHooks installs per-result hooks, run right after each plugin.
func WithHooks(hooks ...ResultHook) ExecutorOption {
	return func(e *Executor) { e.hooks = append(e.hooks, hooks...) }
}

// WithCollators installs collators, each invoked once over the full run.
func WithCollators(collators ...Collator) ExecutorOption {
	return func(e *Executor) { e.collators = append(e.collators, collators...) }
}

// WithMetrics sets the metrics sink shared with the connection layer.
func WithMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor builds an executor for one target system.
func NewExecutor(registry *Registry, system *core.SystemInfo, configs []core.PluginConfig, logger *logging.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		registry: registry,
		system:   system,
		logger:   logger.WithComponent("executor"),
		queue:    append([]core.PluginConfig(nil), configs...),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	return e
}

// Enqueue appends a follow-up config to the running queue. Plugins receive
// this through their Deps so a probe can schedule a deeper probe based on
// what it found.
func (e *Executor) Enqueue(cfg core.PluginConfig) {
	e.queue = append(e.queue, cfg)
}

// RunQueue executes the queue in order and returns one result per config,
// then hands the aggregate report to each collator. The transport is
// established lazily before the first plugin that collects and torn down
// when the run finishes.
func (e *Executor) RunQueue(ctx context.Context) *RunReport {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	e.logger.Info("starting plugin queue",
		"run_id", report.RunID,
		"system", e.system.Name,
		"queued", len(e.queue),
	)

	defer func() {
		if e.manager != nil {
			e.logger.Info("closing connection")
			if err := e.manager.Close(); err != nil {
				e.logger.Warn("connection teardown failed", "error", err)
			}
		}
	}()

	// The queue may grow while running, so iterate by index.
	for i := 0; i < len(e.queue); i++ {
		result := e.runOne(ctx, e.queue[i].Clone(), report)
		for _, hook := range e.hooks {
			if err := hook.OnResult(ctx, &result); err != nil {
				e.logger.Warn("result hook failed", "plugin", result.Source, "error", err)
			}
		}
		report.Results = append(report.Results, result)
	}

	report.System = *e.system
	report.EndedAt = time.Now().UTC()
	e.logger.Info("plugin queue finished",
		"results", len(report.Results),
		"worst_status", report.WorstStatus(),
	)

	for _, collator := range e.collators {
		if err := collator.Collate(ctx, report); err != nil {
			e.logger.Warn("collator failed", "error", err)
		}
	}
	return report
}

// runOne resolves, constructs, and runs a single plugin. Everything that
// can go wrong is folded into the returned result so the queue keeps
// moving.
func (e *Executor) runOne(ctx context.Context, cfg core.PluginConfig, report *RunReport) (result core.PluginResult) {
	factory, err := e.registry.Get(cfg.Name)
	if err != nil {
		e.logger.Error("unable to find registered plugin", "plugin", cfg.Name)
		return e.failureRow(cfg.Name, "plugin not registered", err)
	}

	deps := Deps{
		System:  e.system,
		Logger:  e.logger,
		Metrics: e.metrics,
		Enqueue: e.Enqueue,
	}
	if cfg.CollectEnabled() {
		deps.Shell = e.shell(ctx, report)
	}

	// A well-behaved plugin converts its own failures; this guard keeps a
	// misbehaving one from taking the queue down with it.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("plugin panicked", "plugin", cfg.Name, "panic", fmt.Sprint(r))
			result = e.failureRow(cfg.Name, "plugin panicked",
				core.ErrInternal(fmt.Sprintf("panic: %v", r)))
		}
	}()

	plg := factory(deps)
	e.overlayGlobals(&cfg, plg)

	e.logger.Info("running plugin", "plugin", cfg.Name)
	return plg.Run(ctx, cfg)
}

// overlayGlobals merges the shared defaults into the config's arg maps.
// Plugins that enumerate their accepted keys only receive the globals they
// understand; per-plugin keys always win.
func (e *Executor) overlayGlobals(cfg *core.PluginConfig, plg Plugin) {
	if len(e.globals) == 0 {
		return
	}
	collectorGlobals, analyzerGlobals := e.globals, e.globals
	if acc, ok := plg.(ArgAccepter); ok {
		collectorKeys, analyzerKeys := acc.AcceptedArgs()
		collectorGlobals = filterArgs(e.globals, collectorKeys)
		analyzerGlobals = filterArgs(e.globals, analyzerKeys)
	}
	cfg.CollectorArgs = core.MergeArgs(collectorGlobals, cfg.CollectorArgs)
	cfg.AnalyzerArgs = core.MergeArgs(analyzerGlobals, cfg.AnalyzerArgs)
}

// filterArgs keeps only the listed keys.
func filterArgs(args map[string]any, keys []string) map[string]any {
	if len(args) == 0 || len(keys) == 0 {
		return nil
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := args[key]; ok {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// shell returns the shared transport, connecting on first use. A failed
// connection is attempted once per run; subsequent plugins see a nil shell
// and report the failure through their collectors.
func (e *Executor) shell(ctx context.Context, report *RunReport) conn.Shell {
	if !e.connected {
		e.connected = true
		e.manager = conn.NewManager(e.system, e.connCfg, e.logger, e.metrics)
		report.Connection = e.manager.Connect(ctx)
	}
	if report.Connection != nil && report.Connection.Status == core.StatusExecutionFailure {
		return nil
	}
	return e.manager
}

// failureRow builds a result row for a plugin that could not run at all, so
// it never silently disappears from the aggregate output.
func (e *Executor) failureRow(name, message string, cause error) core.PluginResult {
	task := core.NewTaskResult(name, core.TaskTypeCollector, name)
	task.AddEvent(core.NewEvent(core.CategoryRuntime, core.PriorityCritical, cause.Error()))
	task.Status = core.StatusExecutionFailure
	task.Message = message
	task.Finalize()
	return core.PluginResult{
		Source:           name,
		State:            core.StateExecutionFailure,
		CollectionResult: task,
	}
}
