// Package process snapshots running processes and checks that an expected
// set of processes is present.
package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "process"

// Description summarizes the plugin for registry listings.
const Description = "snapshot running processes and check expected ones are present"

const (
	cmdLinux   = "ps -eo comm="
	cmdWindows = "tasklist /FO CSV /NH"
)

// Data is the collected process snapshot. Processes maps a process name to
// the number of instances running.
type Data struct {
	Processes map[string]int `mapstructure:"processes" json:"processes" yaml:"processes" validate:"required"`
	Total     int            `mapstructure:"total" json:"total" yaml:"total"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector snapshots the process table.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the process collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "process_collector"}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	cmd := cmdLinux
	if task.System.OSFamily == core.OSFamilyWindows {
		cmd = cmdWindows
	}
	res, err := task.RunCommand(ctx, conn.Command{Cmd: cmd})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, task.Fail(res, "error reading process table")
	}

	data := &Data{Processes: make(map[string]int)}
	for _, line := range strings.Split(res.Stdout, "\n") {
		name := parseLine(line, task.System.OSFamily)
		if name == "" {
			continue
		}
		data.Processes[name]++
		data.Total++
	}
	if data.Total == 0 {
		task.Result.Message = "process data not found"
		task.Result.Status = core.StatusError
		return nil, nil
	}

	task.Result.Message = fmt.Sprintf("%d processes collected", data.Total)
	task.Result.Status = core.StatusOK
	return data, nil
}

func parseLine(line string, family core.OSFamily) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if family != core.OSFamilyWindows {
		return line
	}
	// tasklist CSV rows look like "name.exe","1234",...
	name, _, ok := strings.Cut(line, ",")
	if !ok {
		return ""
	}
	return strings.Trim(name, `"`)
}

// AnalyzerArgs are the caller expectations.
type AnalyzerArgs struct {
	// ExpProcesses lists process names that must be running.
	ExpProcesses []string `mapstructure:"exp_processes"`
}

// Analyzer checks that every expected process has at least one instance.
type Analyzer struct{}

// NewAnalyzer builds the process analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "process_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	return plugin.DecodeArgs(rawArgs, &args)
}

// Analyze implements plugin.Analyzer.
func (a *Analyzer) Analyze(_ context.Context, task *plugin.Task, data any, rawArgs map[string]any) error {
	record, ok := data.(*Data)
	if !ok {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, "analyzer passed invalid data type")
	}
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}

	if len(args.ExpProcesses) == 0 {
		task.Result.Message = "expected processes not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	var missing []string
	for _, name := range args.ExpProcesses {
		if record.Processes[name] == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		task.Result.Message = "expected processes not running!"
		task.Result.Status = core.StatusError
		task.LogEvent(core.CategoryOS, core.PriorityCritical,
			fmt.Sprintf("%s %s", task.Result.Message, strings.Join(missing, ", ")),
			map[string]any{"missing": missing, "exp_processes": args.ExpProcesses})
		return nil
	}

	task.Result.Message = fmt.Sprintf("%d expected processes running", len(args.ExpProcesses))
	task.Result.Status = core.StatusOK
	return nil
}

// New builds the process plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
