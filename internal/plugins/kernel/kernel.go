// Package kernel reads the target's kernel version and checks it against
// expected versions.
package kernel

import (
	"context"
	"regexp"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "kernel"

// Description summarizes the plugin for registry listings.
const Description = "read the kernel version and compare against expected"

// Probe commands per OS family.
const (
	cmdLinux   = "uname -r"
	cmdWindows = "wmic os get Version /Value"
)

// Data is the collected record.
type Data struct {
	KernelVersion string `mapstructure:"kernel_version" json:"kernel_version" yaml:"kernel_version"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector reads the kernel version.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the kernel collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "kernel_collector"}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	var version string
	if task.System.OSFamily == core.OSFamilyWindows {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdWindows})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, task.Fail(res, "error checking kernel version")
		}
		for _, line := range strings.Split(res.Stdout, "\n") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(line), "Version="); ok {
				version = v
				break
			}
		}
	} else {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdLinux})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, task.Fail(res, "error checking kernel version")
		}
		version = strings.TrimSpace(res.Stdout)
	}

	if version == "" {
		task.Result.Message = "kernel version not found"
		return nil, core.ErrCollection(core.CodeParseFailed, "kernel version not found")
	}

	task.LogEvent(core.CategoryOS, core.PriorityInfo, "kernel version read",
		map[string]any{"kernel_version": version})
	task.Result.Message = "Kernel: " + version
	task.Result.Status = core.StatusOK
	return &Data{KernelVersion: version}, nil
}

// AnalyzerArgs are the caller expectations. ExpKernel accepts a single
// string or a list; the reading passes when it matches any element.
type AnalyzerArgs struct {
	ExpKernel  []string `mapstructure:"exp_kernel"`
	RegexMatch bool     `mapstructure:"regex_match"`
}

// Analyzer compares the observed kernel version against expectations.
type Analyzer struct{}

// NewAnalyzer builds the kernel analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "kernel_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}
	if args.RegexMatch {
		for _, expected := range args.ExpKernel {
			if _, err := regexp.Compile(expected); err != nil {
				return core.ErrInvalidArgs(core.CodeUnknownArgs, "invalid kernel regex: "+expected)
			}
		}
	}
	return nil
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

	if len(args.ExpKernel) == 0 {
		task.Result.Message = "expected kernel not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	for _, expected := range args.ExpKernel {
		matched := false
		if args.RegexMatch {
			re, err := regexp.Compile(expected)
			if err != nil {
				task.LogEvent(core.CategoryRuntime, core.PriorityError, "kernel regex is invalid",
					map[string]any{"regex": expected})
				continue
			}
			matched = re.MatchString(record.KernelVersion)
		} else {
			matched = record.KernelVersion == expected
		}
		if matched {
			task.Result.Message = "kernel matches expected"
			task.Result.Status = core.StatusOK
			return nil
		}
	}

	task.Result.Message = "kernel mismatch!"
	task.Result.Status = core.StatusError
	task.LogEvent(core.CategoryOS, core.PriorityCritical, task.Result.Message,
		map[string]any{"expected": args.ExpKernel, "actual": record.KernelVersion})
	return nil
}

// New builds the kernel plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
