package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodescout/nodescout/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodescout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, "LOCAL", cfg.System.Location)
	assert.Equal(t, "PASSIVE", cfg.System.InteractionLevel)
	assert.Equal(t, "ssh", cfg.Connection.Remote)
	assert.Equal(t, filepath.Join(".", "nodescout-results"), cfg.Artifacts.Dir)
	assert.Equal(t, []string{CollatorSummary, CollatorArtifacts}, cfg.Collators)
	assert.Empty(t, cfg.Plugins)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
system:
  name: node-42
  os_family: LINUX
  location: REMOTE
  interaction_level: DISRUPTIVE
connection:
  remote: ssh
  command_timeout: 45s
  ssh:
    host: node-42.example.com
    user: root
global_args:
  exp_kernel: 6.8.0-41-generic
plugins:
  - name: kernel
    analyzer_args:
      regex_match: true
  - name: uptime
    interaction_level: PASSIVE
`)

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "node-42", cfg.System.Name)
	assert.Equal(t, 45*time.Second, cfg.Connection.CommandTimeout)
	assert.Equal(t, "node-42.example.com", cfg.Connection.SSH.Host)
	assert.Equal(t, "6.8.0-41-generic", cfg.GlobalArgs["exp_kernel"])

	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, "kernel", cfg.Plugins[0].Name)
	assert.Equal(t, true, cfg.Plugins[0].AnalyzerArgs["regex_match"])
	require.NotNil(t, cfg.Plugins[1].InteractionLevel)
	assert.Equal(t, core.InteractionPassive, *cfg.Plugins[1].InteractionLevel)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "artifcats:\n  dir: /tmp/out\n")

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)

	var domainErr *core.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, core.CodeInvalidConfig, domainErr.Code)
}

func TestLoad_InvalidEnumRejected(t *testing.T) {
	path := writeConfig(t, "system:\n  os_family: SOLARIS\n")

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)
}

func TestLoad_PluginWithoutNameRejected(t *testing.T) {
	path := writeConfig(t, "plugins:\n  - analyzer_args:\n      regex_match: true\n")

	_, err := NewLoader().WithConfigFile(path).Load()
	require.Error(t, err)
}

func TestSystemInfo_MergesOverDetected(t *testing.T) {
	detected := core.NewSystemInfo("detected-host")
	detected.OSFamily = core.OSFamilyLinux
	detected.Platform = "Ubuntu 22.04"

	cfg := &Config{System: SystemConfig{
		Name:             "node-42",
		Location:         "REMOTE",
		InteractionLevel: "DISRUPTIVE",
	}}
	info, err := cfg.SystemInfo(detected)
	require.NoError(t, err)

	assert.Equal(t, "node-42", info.Name)
	assert.Equal(t, core.OSFamilyLinux, info.OSFamily, "detected family kept when unset")
	assert.Equal(t, "Ubuntu 22.04", info.Platform)
	assert.Equal(t, core.LocationRemote, info.Location)
	assert.Equal(t, core.InteractionDisruptive, info.InteractionLevel)
}

func TestSystemInfo_EmptyConfigKeepsDetected(t *testing.T) {
	detected := core.NewSystemInfo("detected-host")
	detected.OSFamily = core.OSFamilyLinux

	cfg := &Config{}
	info, err := cfg.SystemInfo(detected)
	require.NoError(t, err)
	assert.Equal(t, detected, info)
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ".nodescout.yaml")
	require.NoError(t, WriteStarter(path))

	// The starter template must load cleanly.
	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Plugins)
	assert.Equal(t, "dmesg", cfg.Plugins[0].Name)

	// Never overwrite an existing file.
	err = WriteStarter(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
