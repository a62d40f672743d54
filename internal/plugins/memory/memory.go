// Package memory reads free and total memory and checks that usage stays
// under an allowed fraction of a configured threshold.
package memory

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "memory"

// Description summarizes the plugin for registry listings.
const Description = "read memory usage and check it stays under the allowed limit"

const (
	cmdLinux   = "free -b"
	cmdWindows = "wmic OS get FreePhysicalMemory /Value & wmic ComputerSystem get TotalPhysicalMemory /Value"
)

// Default expectations when the caller provides none.
const (
	DefaultThreshold = "30Gi"
	DefaultRatio     = 0.66
)

// Data is the collected record. Sizes are decimal byte counts rendered as
// strings so pre-supplied records round-trip through YAML unchanged.
type Data struct {
	MemFree  string `mapstructure:"mem_free" json:"mem_free" yaml:"mem_free" validate:"required"`
	MemTotal string `mapstructure:"mem_total" json:"mem_total" yaml:"mem_total" validate:"required"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

var (
	linuxPattern = regexp.MustCompile(`Mem:\s+(\d+)\s+\d+\s+(\d+)`)
	freePattern  = regexp.MustCompile(`FreePhysicalMemory=(\d+)`)
	totalPattern = regexp.MustCompile(`TotalPhysicalMemory=(\d+)`)
)

// Collector reads memory usage.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the memory collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "memory_collector"}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	var memFree, memTotal string
	if task.System.OSFamily == core.OSFamilyWindows {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdWindows})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, task.Fail(res, "error checking available and total memory")
		}
		if m := freePattern.FindStringSubmatch(res.Stdout); m != nil {
			memFree = m[1]
		}
		if m := totalPattern.FindStringSubmatch(res.Stdout); m != nil {
			memTotal = m[1]
		}
	} else {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdLinux})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, task.Fail(res, "error checking available and total memory")
		}
		if m := linuxPattern.FindStringSubmatch(res.Stdout); m != nil {
			memTotal, memFree = m[1], m[2]
		}
	}

	if memFree == "" || memTotal == "" {
		task.Result.Message = "memory usage data not available"
		return nil, core.ErrCollection(core.CodeParseFailed, "memory usage data not available")
	}

	data := &Data{MemFree: memFree, MemTotal: memTotal}
	task.LogEvent(core.CategoryMemory, core.PriorityInfo, "free and total memory read",
		map[string]any{"mem_free": memFree, "mem_total": memTotal})
	task.Result.Message = fmt.Sprintf("Memory: %s free of %s", memFree, memTotal)
	task.Result.Status = core.StatusOK
	return data, nil
}

// AnalyzerArgs are the caller expectations: usage must stay under
// Ratio * min(MemoryThreshold, total memory).
type AnalyzerArgs struct {
	MemoryThreshold string  `mapstructure:"memory_threshold"`
	Ratio           float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

// Analyzer checks used memory against the allowed limit.
type Analyzer struct{}

// NewAnalyzer builds the memory analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "memory_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}
	if args.MemoryThreshold != "" {
		if _, err := plugin.ParseByteSize(args.MemoryThreshold); err != nil {
			return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error())
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
	if args.MemoryThreshold == "" {
		args.MemoryThreshold = DefaultThreshold
	}
	if args.Ratio == 0 {
		args.Ratio = DefaultRatio
	}

	free, err := plugin.ParseByteSize(record.MemFree)
	if err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error())
	}
	total, err := plugin.ParseByteSize(record.MemTotal)
	if err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error())
	}
	threshold, err := plugin.ParseByteSize(args.MemoryThreshold)
	if err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error())
	}

	used := total - free
	base := threshold
	if total <= threshold {
		base = total
	}
	maxAllowed := int64(float64(base) * args.Ratio)

	if used < maxAllowed {
		task.Result.Message = "memory usage is within maximum allowed used memory"
		task.Result.Status = core.StatusOK
		return nil
	}

	task.Result.Message = "memory usage is more than the maximum allowed used memory!"
	task.Result.Status = core.StatusError
	task.LogEvent(core.CategoryMemory, core.PriorityCritical,
		fmt.Sprintf("%s, used: %s, allowed: %s", task.Result.Message,
			plugin.FormatByteSize(used), plugin.FormatByteSize(maxAllowed)),
		map[string]any{"used": used, "allowed": maxAllowed, "total": total})
	return nil
}

// New builds the memory plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
