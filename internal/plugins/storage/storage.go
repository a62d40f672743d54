// Package storage collects per-device disk usage and checks it against a
// maximum used-percent threshold.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Name is the registered plugin name.
const Name = "storage"

// Description summarizes the plugin for registry listings.
const Description = "read disk usage and check a maximum used-percent threshold"

const (
	cmdLinux   = `sh -c 'df -lH -B1 | grep -v boot'`
	cmdWindows = `wmic LogicalDisk Where DriveType="3" Get DeviceId,Size,FreeSpace`
)

// DeviceUsage is the usage snapshot of a single storage device.
type DeviceUsage struct {
	Total   uint64  `mapstructure:"total" json:"total" yaml:"total"`
	Used    uint64  `mapstructure:"used" json:"used" yaml:"used"`
	Free    uint64  `mapstructure:"free" json:"free" yaml:"free"`
	Percent float64 `mapstructure:"percent" json:"percent" yaml:"percent"`
}

// Data maps device names to their usage snapshots.
type Data struct {
	Devices map[string]DeviceUsage `mapstructure:"storage_data" json:"storage_data" yaml:"storage_data" validate:"required"`
}

// DecodeData converts a raw pre-supplied mapping into a Data record.
func DecodeData(raw map[string]any) (any, error) {
	var data Data
	if err := plugin.DecodeArgs(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Collector reads disk usage from df or wmic.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the storage collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{TaskName: "storage_collector"}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, _ map[string]any) (any, error) {
	devices := make(map[string]DeviceUsage)
	var res *conn.CommandResult
	var err error
	switch task.System.OSFamily {
	case core.OSFamilyWindows:
		res, err = task.RunCommand(ctx, conn.Command{Cmd: cmdWindows})
		if err != nil {
			return nil, err
		}
		if res.ExitCode == 0 {
			parseWmic(res.Stdout, devices)
		}
	default:
		res, err = task.RunCommand(ctx, conn.Command{Cmd: cmdLinux, Sudo: true})
		if err != nil {
			return nil, err
		}
		if res.ExitCode == 0 {
			parseDF(res.Stdout, devices)
		}
	}
	if res.ExitCode != 0 {
		task.LogEvent(core.CategoryOS, core.PriorityError, "error checking available storage", map[string]any{
			"command":   res.Command,
			"exit_code": res.ExitCode,
			"stderr":    res.Stderr,
		})
	}

	if len(devices) == 0 {
		task.Result.Message = "storage info not found"
		return nil, core.ErrCollection(core.CodeParseFailed, "storage info not found")
	}
	task.LogEvent(core.CategoryStorage, core.PriorityInfo, "available storage read", map[string]any{"devices": devices})
	task.Result.Message = fmt.Sprintf("%d storage devices collected", len(devices))
	task.Result.Status = core.StatusOK
	return &Data{Devices: devices}, nil
}

// parseDF parses "df -lH -B1" output. The first line is the header.
// Pseudo filesystems are not real devices and are skipped.
func parseDF(stdout string, devices map[string]DeviceUsage) {
	lines := strings.Split(stdout, "\n")
	if len(lines) < 2 {
		return
	}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		name := fields[0]
		if name == "tmpfs" || name == "overlay" || name == "devtmpfs" {
			continue
		}
		total, err1 := strconv.ParseUint(fields[1], 10, 64)
		used, err2 := strconv.ParseUint(fields[2], 10, 64)
		free, err3 := strconv.ParseUint(fields[3], 10, 64)
		percent, err4 := strconv.ParseFloat(strings.TrimSuffix(fields[4], "%"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		devices[name] = DeviceUsage{Total: total, Used: used, Free: free, Percent: percent}
	}
}

// parseWmic parses "wmic LogicalDisk Get DeviceId,Size,FreeSpace" output.
// Columns come back alphabetically: DeviceId, FreeSpace, Size.
func parseWmic(stdout string, devices map[string]DeviceUsage) {
	lines := strings.Split(stdout, "\n")
	if len(lines) < 2 {
		return
	}
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		free, err1 := strconv.ParseUint(fields[1], 10, 64)
		total, err2 := strconv.ParseUint(fields[2], 10, 64)
		if err1 != nil || err2 != nil || total == 0 {
			continue
		}
		used := total - free
		devices[fields[0]] = DeviceUsage{
			Total:   total,
			Used:    used,
			Free:    free,
			Percent: float64(used) / float64(total) * 100,
		}
	}
}

// AnalyzerArgs are the caller expectations.
type AnalyzerArgs struct {
	// MaxUsedPercent is the highest acceptable used percentage on any
	// device. Devices above it are reported as critical events.
	MaxUsedPercent float64 `mapstructure:"max_used_percent" validate:"omitempty,gt=0,lte=100"`

	// MinRequiredFree optionally requires at least one device to have this
	// much free space, e.g. "50G" or "2Ti".
	MinRequiredFree string `mapstructure:"min_required_free_space"`
}

// DefaultMaxUsedPercent applies when no threshold is configured.
const DefaultMaxUsedPercent = 90.0

// Analyzer checks every device against the used-percent threshold and,
// optionally, that at least one device has the required free space.
type Analyzer struct{}

// NewAnalyzer builds the storage analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Name implements plugin.Analyzer.
func (a *Analyzer) Name() string {
	return "storage_analyzer"
}

// ValidateArgs implements plugin.ArgValidator.
func (a *Analyzer) ValidateArgs(rawArgs map[string]any) error {
	var args AnalyzerArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return err
	}
	if args.MinRequiredFree != "" {
		if _, err := plugin.ParseByteSize(args.MinRequiredFree); err != nil {
			return core.ErrInvalidArgs(core.CodeUnknownArgs, fmt.Sprintf("invalid min_required_free_space: %v", err))
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
	maxUsed := args.MaxUsedPercent
	if maxUsed == 0 {
		maxUsed = DefaultMaxUsedPercent
	}

	if len(record.Devices) == 0 {
		task.Result.Message = "no storage data available"
		task.Result.Status = core.StatusNotRun
		return nil
	}

	names := make([]string, 0, len(record.Devices))
	for name := range record.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var full []string
	for _, name := range names {
		usage := record.Devices[name]
		if usage.Percent <= maxUsed {
			continue
		}
		full = append(full, name)
		task.LogEvent(core.CategoryStorage, core.PriorityCritical,
			fmt.Sprintf("'%s' is %.1f%% used, limit is %.1f%%", name, usage.Percent, maxUsed),
			map[string]any{"device": name, "percent": usage.Percent, "max_used_percent": maxUsed, "free": usage.Free})
	}

	if args.MinRequiredFree != "" {
		minFree, _ := plugin.ParseByteSize(args.MinRequiredFree)
		satisfied := false
		for _, usage := range record.Devices {
			if usage.Free > uint64(minFree) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			largest := largestDevice(record.Devices, names)
			usage := record.Devices[largest]
			task.LogEvent(core.CategoryStorage, core.PriorityCritical,
				fmt.Sprintf("no device has %s free, largest device '%s' has %s",
					args.MinRequiredFree, largest, plugin.FormatByteSize(int64(usage.Free))),
				map[string]any{"device": largest, "total": usage.Total, "free": usage.Free, "percent": usage.Percent})
			full = append(full, largest)
		}
	}

	if len(full) > 0 {
		task.Result.Message = "not enough disk storage!"
		task.Result.Status = core.StatusError
		return nil
	}
	task.Result.Message = fmt.Sprintf("%d storage devices within limits", len(record.Devices))
	task.Result.Status = core.StatusOK
	return nil
}

func largestDevice(devices map[string]DeviceUsage, names []string) string {
	var largest string
	var largestTotal uint64
	for _, name := range names {
		if devices[name].Total >= largestTotal {
			largest = name
			largestTotal = devices[name].Total
		}
	}
	return largest
}

// New builds the storage plugin.
func New(deps plugin.Deps) plugin.Plugin {
	return plugin.NewDataPlugin(Name, deps,
		plugin.WithCollector(NewCollector()),
		plugin.WithAnalyzer(NewAnalyzer()),
		plugin.WithAnalyzerArgs(AnalyzerArgs{}),
		plugin.WithDataDecoder(DecodeData),
	)
}
