// Package bios reads the target's BIOS version and checks it against
// expected values.
package bios

import (
	"context"
	"regexp"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "bios"

// Description summarizes the plugin for registry listings.
const Description = "read the BIOS version and compare against expected"

const (
	cmdLinux   = "dmidecode -s bios-version"
	cmdWindows = "wmic bios get SMBIOSBIOSVersion /Value"
)

// Data is the collected record.
type Data struct {
	BiosVersion string `mapstructure:"bios_version" json:"bios_version" yaml:"bios_version"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector reads the BIOS version. dmidecode needs sudo on Linux.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the BIOS collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "bios_collector"}}
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
			return nil, task.Fail(res, "error checking BIOS version")
		}
		for _, line := range strings.Split(res.Stdout, "\n") {
			if v, ok := strings.CutPrefix(strings.TrimSpace(line), "SMBIOSBIOSVersion="); ok {
				version = v
				break
			}
		}
	} else {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdLinux, Sudo: true})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, task.Fail(res, "error checking BIOS version")
		}
		version = strings.TrimSpace(res.Stdout)
	}

	if version == "" {
		task.LogEvent(core.CategoryBIOS, core.PriorityCritical, "BIOS version not found", nil)
		task.Result.Message = "BIOS version not found"
		task.Result.Status = core.StatusError
		return nil, core.ErrCollection(core.CodeParseFailed, "BIOS version not found")
	}

	task.LogEvent(core.CategoryBIOS, core.PriorityInfo, "BIOS version read",
		map[string]any{"bios_version": version})
	task.Result.Message = "BIOS: " + version
	task.Result.Status = core.StatusOK
	return &Data{BiosVersion: version}, nil
}

// AnalyzerArgs are the caller expectations.
type AnalyzerArgs struct {
	ExpBios    []string `mapstructure:"exp_bios"`
	RegexMatch bool     `mapstructure:"regex_match"`
}

// Analyzer compares the observed BIOS version against expectations.
type Analyzer struct{}

// NewAnalyzer builds the BIOS analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "bios_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}
	if args.RegexMatch {
		for _, expected := range args.ExpBios {
			if _, err := regexp.Compile(expected); err != nil {
				return core.ErrInvalidArgs(core.CodeUnknownArgs, "invalid BIOS regex: "+expected)
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

	if len(args.ExpBios) == 0 {
		task.Result.Message = "expected BIOS version not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	for _, expected := range args.ExpBios {
		matched := false
		if args.RegexMatch {
			re, err := regexp.Compile(expected)
			if err != nil {
				task.LogEvent(core.CategoryRuntime, core.PriorityError, "BIOS regex is invalid",
					map[string]any{"regex": expected})
				continue
			}
			matched = re.MatchString(record.BiosVersion)
		} else {
			matched = record.BiosVersion == expected
		}
		if matched {
			task.Result.Message = "BIOS version matches expected"
			task.Result.Status = core.StatusOK
			return nil
		}
	}

	task.Result.Message = "BIOS version mismatch!"
	task.Result.Status = core.StatusError
	task.LogEvent(core.CategoryBIOS, core.PriorityCritical, task.Result.Message,
		map[string]any{"expected": args.ExpBios, "actual": record.BiosVersion})
	return nil
}

// New builds the BIOS plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
