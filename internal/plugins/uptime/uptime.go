// Package uptime reads how long the target has been up and checks it
// against a minimum expectation, catching unexpected reboots.
package uptime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "uptime"

// Description summarizes the plugin for registry listings.
const Description = "read system uptime and check a minimum expectation"

const (
	cmdUptime = "cat /proc/uptime"
	cmdSince  = "uptime -s"
)

// Data is the collected record.
type Data struct {
	UptimeSeconds float64 `mapstructure:"uptime_seconds" json:"uptime_seconds" yaml:"uptime_seconds"`
	Since         string  `mapstructure:"since,omitempty" json:"since,omitempty" yaml:"since,omitempty"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector reads uptime from /proc. Linux only.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the uptime collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{
		TaskName: "uptime_collector",
		Families: plugin.LinuxOnly,
	}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	res, err := task.RunCommand(ctx, conn.Command{Cmd: cmdUptime})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, task.Fail(res, "error reading uptime")
	}

	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return nil, core.ErrCollection(core.CodeParseFailed, "unexpected /proc/uptime output")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, core.ErrCollection(core.CodeParseFailed, "unexpected /proc/uptime output")
	}

	data := &Data{UptimeSeconds: seconds}
	// Boot time is informational; failure to read it is not a collection
	// failure.
	if since, err := task.RunCommand(ctx, conn.Command{Cmd: cmdSince}); err == nil && since.ExitCode == 0 {
		data.Since = strings.TrimSpace(since.Stdout)
	}

	task.Result.Message = fmt.Sprintf("uptime: %s", (time.Duration(seconds) * time.Second).String())
	task.Result.Status = core.StatusOK
	return data, nil
}

// AnalyzerArgs are the caller expectations.
type AnalyzerArgs struct {
	// MinUptime is a duration string ("30m", "2h"). An uptime below it is
	// an error, usually meaning the system rebooted unexpectedly.
	MinUptime time.Duration `mapstructure:"min_uptime"`
}

// Analyzer checks the observed uptime against the minimum expectation.
type Analyzer struct{}

// NewAnalyzer builds the uptime analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "uptime_analyzer"
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

	if args.MinUptime <= 0 {
		task.Result.Message = "minimum uptime not provided"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	uptime := time.Duration(record.UptimeSeconds * float64(time.Second))
	if uptime >= args.MinUptime {
		task.Result.Message = "uptime meets the minimum expectation"
		task.Result.Status = core.StatusOK
		return nil
	}

	task.Result.Message = "uptime below the minimum expectation!"
	task.Result.Status = core.StatusError
	task.LogEvent(core.CategoryOS, core.PriorityCritical,
		fmt.Sprintf("%s expected at least %s, got %s", task.Result.Message, args.MinUptime, uptime),
		map[string]any{"min_uptime": args.MinUptime.String(), "uptime": uptime.String(), "since": record.Since})
	return nil
}

// New builds the uptime plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
