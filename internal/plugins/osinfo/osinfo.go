// Package osinfo reads the target's operating system name and version and
// checks them against expected values.
package osinfo

import (
	"context"
	"regexp"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "os"

// Description summarizes the plugin for registry listings.
const Description = "read the OS name and version and compare against expected"

// Probe commands. The POSIX name probe falls back through lsb_release,
// /etc/*release, and uname so it works on minimal images.
const (
	cmdNameLinux      = `sh -c '( lsb_release -ds || (cat /etc/*release | grep PRETTY_NAME) || uname -om ) 2>/dev/null | head -n1'`
	cmdVersionLinux   = "cat /etc/*release | grep VERSION_ID"
	cmdNameWindows    = "wmic os get Caption /Value"
	cmdVersionWindows = "wmic os get Version /Value"
)

// Data is the collected record.
type Data struct {
	OSName    string `mapstructure:"os_name" json:"os_name" yaml:"os_name"`
	OSVersion string `mapstructure:"os_version" json:"os_version" yaml:"os_version"`
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
	captionPattern = regexp.MustCompile(`Caption=([\w\s]+)`)
	versionPattern = regexp.MustCompile(`Version=([\w\s.]+)`)
)

// Collector reads OS details.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the OS collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "os_collector"}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	name, err := c.collectName(ctx, task)
	if err != nil {
		return nil, err
	}
	if name == "" {
		task.LogEvent(core.CategoryOS, core.PriorityCritical, "OS name not found", nil)
		task.Result.Message = "OS name not found"
		return nil, core.ErrCollection(core.CodeParseFailed, "OS name not found")
	}

	version := c.collectVersion(ctx, task)
	data := &Data{OSName: name, OSVersion: version}
	task.LogEvent(core.CategoryOS, core.PriorityInfo, "OS name data collected",
		map[string]any{"os_name": name, "os_version": version})
	task.Result.Message = "OS: " + name
	task.Result.Status = core.StatusOK
	return data, nil
}

func (c *Collector) collectName(ctx context.Context, task *plugin.Task) (string, error) {
	if task.System.OSFamily == core.OSFamilyWindows {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdNameWindows})
		if err != nil {
			return "", err
		}
		if res.ExitCode != 0 {
			return "", nil
		}
		if m := captionPattern.FindStringSubmatch(res.Stdout); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
		return "", nil
	}

	res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdNameLinux, Sudo: true})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		task.LogEvent(core.CategoryOS, core.PriorityError, "OS name not found",
			map[string]any{"command": res.Command, "exit_code": res.ExitCode})
		return "", nil
	}
	name := strings.TrimSpace(res.Stdout)
	if v, ok := strings.CutPrefix(name, "PRETTY_NAME="); ok {
		name = strings.Trim(v, `" `)
	}
	return name, nil
}

func (c *Collector) collectVersion(ctx context.Context, task *plugin.Task) string {
	if task.System.OSFamily == core.OSFamilyWindows {
		res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdVersionWindows})
		if err != nil || res.ExitCode != 0 {
			task.LogEvent(core.CategoryOS, core.PriorityError, "OS version not found", nil)
			return ""
		}
		if m := versionPattern.FindStringSubmatch(res.Stdout); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdVersionLinux})
	if err != nil || res.ExitCode != 0 {
		task.LogEvent(core.CategoryOS, core.PriorityError, "OS version not found", nil)
		return ""
	}
	version := strings.TrimSpace(res.Stdout)
	version = strings.TrimPrefix(version, "VERSION_ID=")
	return strings.Trim(version, `" `)
}

// AnalyzerArgs are the caller expectations. ExactMatch selects equality
// against the observed name; otherwise each expectation passes as a
// substring. Nil ExactMatch means exact.
type AnalyzerArgs struct {
	ExpOS      []string `mapstructure:"exp_os"`
	ExactMatch *bool    `mapstructure:"exact_match"`
}

func (a AnalyzerArgs) exact() bool {
	return a.ExactMatch == nil || *a.ExactMatch
}

// Analyzer compares the observed OS name against expectations.
type Analyzer struct{}

// NewAnalyzer builds the OS analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "os_analyzer"
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

	if len(args.ExpOS) == 0 {
		task.Result.Message = "expected OS name not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	for _, expected := range args.ExpOS {
		if (args.exact() && expected == record.OSName) ||
			(!args.exact() && strings.Contains(record.OSName, expected)) {
			task.Result.Message = "OS name matches expected"
			task.Result.Status = core.StatusOK
			return nil
		}
	}

	task.Result.Message = "OS name mismatch!"
	task.Result.Status = core.StatusError
	task.LogEvent(core.CategoryOS, core.PriorityCritical, task.Result.Message,
		map[string]any{"expected": args.ExpOS, "actual": record.OSName})
	return nil
}

// New builds the OS plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
