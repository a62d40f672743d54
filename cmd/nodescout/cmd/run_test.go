package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodescout/nodescout/internal/config"
	"github.com/nodescout/nodescout/internal/core"
)

func TestBuildQueue_WholeConfiguredQueue(t *testing.T) {
	cfg := &config.Config{Plugins: []core.PluginConfig{
		{Name: "dmesg"},
		{Name: "kernel", AnalyzerArgs: map[string]any{"exp_kernel": "6.8.0"}},
	}}

	queue, err := buildQueue(cfg, nil)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "dmesg", queue[0].Name)
	assert.Equal(t, "kernel", queue[1].Name)
}

func TestBuildQueue_EmptyConfigIsAnError(t *testing.T) {
	_, err := buildQueue(&config.Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plugins configured")
}

func TestBuildQueue_NamedPluginsKeepConfiguredArgs(t *testing.T) {
	cfg := &config.Config{Plugins: []core.PluginConfig{
		{Name: "kernel", AnalyzerArgs: map[string]any{"exp_kernel": "6.8.0"}},
		{Name: "dmesg"},
	}}

	queue, err := buildQueue(cfg, []string{"kernel", "uptime"})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "kernel", queue[0].Name)
	assert.Equal(t, "6.8.0", queue[0].AnalyzerArgs["exp_kernel"])
	assert.Equal(t, core.PluginConfig{Name: "uptime"}, queue[1], "unconfigured plugin gets a bare config")
}

func TestApplyRunFlags(t *testing.T) {
	runSysName = "node-42"
	runOSFamily = "WINDOWS"
	runArtifactsDir = "/tmp/out"
	runCollators = []string{"summary"}
	t.Cleanup(func() {
		runSysName, runOSFamily, runArtifactsDir, runCollators = "", "", "", nil
	})

	cfg := &config.Config{
		System:    config.SystemConfig{Name: "from-config", Location: "LOCAL"},
		Artifacts: config.ArtifactsConfig{Dir: "./nodescout-results"},
		Collators: []string{"summary", "artifacts"},
	}
	applyRunFlags(cfg)

	assert.Equal(t, "node-42", cfg.System.Name)
	assert.Equal(t, "WINDOWS", cfg.System.OSFamily)
	assert.Equal(t, "LOCAL", cfg.System.Location, "unset flags leave config values alone")
	assert.Equal(t, "/tmp/out", cfg.Artifacts.Dir)
	assert.Equal(t, []string{"summary"}, cfg.Collators)
}
