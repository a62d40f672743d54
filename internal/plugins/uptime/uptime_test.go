package uptime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/plugin"
	"github.com/nodescout/nodescout/internal/testutil"
)

func runLinux(t *testing.T, procUptime string, analyzerArgs map[string]any) core.PluginResult {
	t.Helper()
	shell := testutil.NewScriptedShell(
		testutil.Script{
			Contains: "/proc/uptime",
			Result:   conn.CommandResult{Stdout: procUptime, ExitCode: 0},
		},
		testutil.Script{
			Contains: "uptime -s",
			Result:   conn.CommandResult{Stdout: "2024-05-01 08:00:00\n", ExitCode: 0},
		},
	)
	system := core.NewSystemInfo("node-01")
	system.OSFamily = core.OSFamilyLinux
	return New(plugin.Deps{System: &system, Shell: shell}).Run(context.Background(),
		core.PluginConfig{Name: Name, AnalyzerArgs: analyzerArgs})
}

func TestRun_UptimeMeetsMinimum(t *testing.T) {
	result := runLinux(t, "7421.95 14200.30\n", map[string]any{"min_uptime": "30m"})

	assert.Equal(t, core.StateOK, result.State)
	data, ok := result.Data.(*Data)
	require.True(t, ok)
	assert.Equal(t, 7421.95, data.UptimeSeconds)
	assert.Equal(t, "2024-05-01 08:00:00", data.Since)
}

func TestRun_UptimeBelowMinimum(t *testing.T) {
	result := runLinux(t, "600.00 1200.00\n", map[string]any{"min_uptime": "30m"})

	assert.Equal(t, core.StateError, result.State)
	assert.Contains(t, result.AnalysisResult.Message, "uptime below the minimum expectation!")

	events := result.AnalysisResult.Events
	require.Len(t, events, 1)
	assert.Equal(t, core.PriorityCritical, events[0].Priority)
	assert.Equal(t, "30m0s", events[0].Data["min_uptime"])
}

func TestRun_NoMinimumIsNotRun(t *testing.T) {
	result := runLinux(t, "7421.95 14200.30\n", nil)

	assert.Equal(t, core.StateNotRun, result.State)
	assert.Equal(t, core.StatusNotRun, result.AnalysisResult.Status)
	assert.Equal(t, "minimum uptime not provided", result.AnalysisResult.Message)
}

func TestRun_GarbageOutputFailsCollection(t *testing.T) {
	result := runLinux(t, "not a number\n", nil)

	assert.Equal(t, core.StateExecutionFailure, result.State)
	assert.Equal(t, core.StatusExecutionFailure, result.CollectionResult.Status)
}

func TestRun_SkippedOnWindows(t *testing.T) {
	shell := testutil.NewScriptedShell()
	system := core.NewSystemInfo("node-01")
	system.OSFamily = core.OSFamilyWindows
	result := New(plugin.Deps{System: &system, Shell: shell}).Run(context.Background(),
		core.PluginConfig{Name: Name})

	assert.Equal(t, core.StateSkipped, result.State)
	assert.Zero(t, shell.CommandCount())
}
