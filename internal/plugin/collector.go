package plugin

import "github.com/nodescout/nodescout/internal/core"

// AllOSFamilies is the default supported set for collectors that can probe
// any target.
var AllOSFamilies = []core.OSFamily{core.OSFamilyLinux, core.OSFamilyWindows}

// LinuxOnly is the supported set for collectors of POSIX-only facts.
var LinuxOnly = []core.OSFamily{core.OSFamilyLinux}

// BaseCollector carries the declarative requirements every collector
// states: the task name, its supported OS families, and the interaction
// level it needs. Probe collectors embed it and implement Collect.
type BaseCollector struct {
	TaskName string
	Families []core.OSFamily
	Level    core.InteractionLevel
}

// Name implements Collector.
func (b BaseCollector) Name() string {
	return b.TaskName
}

// SupportedOSFamilies implements Collector. Nil means all families.
func (b BaseCollector) SupportedOSFamilies() []core.OSFamily {
	if b.Families == nil {
		return AllOSFamilies
	}
	return b.Families
}

// RequiredLevel implements Collector. The zero value is passive.
func (b BaseCollector) RequiredLevel() core.InteractionLevel {
	return b.Level
}
