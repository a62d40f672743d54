// Package config loads and validates the run configuration: target system,
// connection settings, plugin queue, and output options.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nodescout/nodescout/internal/conn"
	"github.com/nodescout/nodescout/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig           `mapstructure:"log" json:"log" yaml:"log"`
	System     SystemConfig        `mapstructure:"system" json:"system" yaml:"system"`
	Connection conn.Config         `mapstructure:"connection" json:"connection" yaml:"connection"`
	Artifacts  ArtifactsConfig     `mapstructure:"artifacts" json:"artifacts" yaml:"artifacts"`
	Collators  []string            `mapstructure:"collators" json:"collators" yaml:"collators"`
	GlobalArgs map[string]any      `mapstructure:"global_args" json:"global_args,omitempty" yaml:"global_args,omitempty"`
	Plugins    []core.PluginConfig `mapstructure:"plugins" json:"plugins" yaml:"plugins"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"omitempty,oneof=auto text json"`
}

// SystemConfig describes the target system. An empty block means the local
// machine with detected facts.
type SystemConfig struct {
	Name             string `mapstructure:"name" json:"name" yaml:"name"`
	SKU              string `mapstructure:"sku" json:"sku,omitempty" yaml:"sku,omitempty"`
	Platform         string `mapstructure:"platform" json:"platform,omitempty" yaml:"platform,omitempty"`
	OSFamily         string `mapstructure:"os_family" json:"os_family" yaml:"os_family" validate:"omitempty,oneof=LINUX WINDOWS UNKNOWN"`
	Location         string `mapstructure:"location" json:"location" yaml:"location" validate:"omitempty,oneof=LOCAL REMOTE"`
	InteractionLevel string `mapstructure:"interaction_level" json:"interaction_level" yaml:"interaction_level" validate:"omitempty,oneof=PASSIVE INTERACTIVE DISRUPTIVE"`
}

// ArtifactsConfig configures where run artifacts land.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration invariants beyond shape: known enum
// values and a resolvable plugin queue.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.ErrInvalidArgs(core.CodeInvalidConfig, err.Error())
	}
	for i, p := range c.Plugins {
		if p.Name == "" {
			return core.ErrInvalidArgs(core.CodeInvalidConfig, fmt.Sprintf("plugins[%d]: name is required", i))
		}
	}
	return nil
}

// SystemInfo materializes the system block into a core.SystemInfo,
// falling back to the given detected info for unset fields.
func (c *Config) SystemInfo(detected core.SystemInfo) (core.SystemInfo, error) {
	info := detected
	if c.System.Name != "" {
		info.Name = c.System.Name
	}
	if c.System.SKU != "" {
		info.SKU = c.System.SKU
	}
	if c.System.Platform != "" {
		info.Platform = c.System.Platform
	}
	if c.System.OSFamily != "" {
		family, err := core.ParseOSFamily(c.System.OSFamily)
		if err != nil {
			return info, core.ErrInvalidArgs(core.CodeInvalidConfig, err.Error())
		}
		info.OSFamily = family
	}
	if c.System.Location != "" {
		location, err := core.ParseLocation(c.System.Location)
		if err != nil {
			return info, core.ErrInvalidArgs(core.CodeInvalidConfig, err.Error())
		}
		info.Location = location
	}
	if c.System.InteractionLevel != "" {
		level, err := core.ParseInteractionLevel(c.System.InteractionLevel)
		if err != nil {
			return info, core.ErrInvalidArgs(core.CodeInvalidConfig, err.Error())
		}
		info.InteractionLevel = level
	}
	return info, info.Validate()
}
