package dmesg

import (
	"context"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
)

// Command reads the ring buffer with ISO timestamps and level prefixes,
// which the analyzer's time filter and unknown-error pass depend on.
const Command = "dmesg --time-format iso -x"

// CollectorArgs tunes collection.
type CollectorArgs struct {
	// SkipSudo skips collection entirely on targets where privilege
	// escalation is unavailable.
	SkipSudo bool `mapstructure:"skip_sudo"`
}

// Collector reads the dmesg log. Linux only; reading the ring buffer needs
// sudo on most distributions.
type Collector struct {
	plugin.BaseCollector
}

// NewCollector builds the dmesg collector.
func NewCollector() *Collector {
	return &Collector{BaseCollector: plugin.BaseCollector{
		TaskName: "dmesg_collector",
		Families: plugin.LinuxOnly,
	}}
}

// Collect implements plugin.Collector.
func (c *Collector) Collect(ctx context.Context, task *plugin.Task, rawArgs map[string]any) (any, error) {
	var args CollectorArgs
	if err := plugin.DecodeArgs(rawArgs, &args); err != nil {
		return nil, err
	}
	if args.SkipSudo {
		task.Result.Status = core.StatusNotRun
		task.Result.Message = "skipping sudo collector"
		return nil, nil
	}

	task.Log.Info("reading dmesg log")
	// The full log lands in its own artifact file, not the command
	// transcript list.
	res, err := task.RunCommand(ctx, conn.Command{Cmd: Command, Sudo: true}, plugin.WithoutArtifact())
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, task.Fail(res, "error reading dmesg")
	}

	task.Result.AddArtifact(core.FileArtifact{Filename: "dmesg.log", Contents: res.Stdout})
	task.Result.Message = "dmesg data collected"
	return &Data{Content: res.Stdout}, nil
}
