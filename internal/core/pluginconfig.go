package core

// PluginConfig is the declarative intent for one queued plugin invocation:
// which plugin to run, which phases are enabled, and the arguments for each
// phase. One PluginConfig maps to exactly one plugin instantiation per
// executor run.
type PluginConfig struct {
	// Name resolves the plugin implementation through the registry.
	Name string `mapstructure:"name" json:"name" yaml:"name" validate:"required"`

	// Collect and Analyze enable the two phases. Nil means enabled.
	Collect *bool `mapstructure:"collect" json:"collect,omitempty" yaml:"collect,omitempty"`
	Analyze *bool `mapstructure:"analyze" json:"analyze,omitempty" yaml:"analyze,omitempty"`

	// InteractionLevel replaces the session level when gating this plugin.
	InteractionLevel *InteractionLevel `mapstructure:"interaction_level" json:"interaction_level,omitempty" yaml:"interaction_level,omitempty"`

	// Data is a pre-supplied collected record. When present the collection
	// phase may be disabled and analysis runs over this record instead.
	Data map[string]any `mapstructure:"data" json:"data,omitempty" yaml:"data,omitempty"`

	CollectorArgs map[string]any `mapstructure:"collector_args" json:"collector_args,omitempty" yaml:"collector_args,omitempty"`
	AnalyzerArgs  map[string]any `mapstructure:"analyzer_args" json:"analyzer_args,omitempty" yaml:"analyzer_args,omitempty"`
}

// CollectEnabled reports whether the collection phase should run.
func (c PluginConfig) CollectEnabled() bool {
	return c.Collect == nil || *c.Collect
}

// AnalyzeEnabled reports whether the analysis phase should run.
func (c PluginConfig) AnalyzeEnabled() bool {
	return c.Analyze == nil || *c.Analyze
}

// EffectiveLevel returns the interaction level used to gate this plugin: the
// per-plugin override when set, otherwise the session level.
func (c PluginConfig) EffectiveLevel(session InteractionLevel) InteractionLevel {
	if c.InteractionLevel != nil {
		return *c.InteractionLevel
	}
	return session
}

// Clone returns a deep copy of the config. Queued configs are cloned before a
// plugin sees them so a plugin cannot mutate shared state.
func (c PluginConfig) Clone() PluginConfig {
	out := c
	if c.Collect != nil {
		v := *c.Collect
		out.Collect = &v
	}
	if c.Analyze != nil {
		v := *c.Analyze
		out.Analyze = &v
	}
	if c.InteractionLevel != nil {
		v := *c.InteractionLevel
		out.InteractionLevel = &v
	}
	out.Data = CloneArgs(c.Data)
	out.CollectorArgs = CloneArgs(c.CollectorArgs)
	out.AnalyzerArgs = CloneArgs(c.AnalyzerArgs)
	return out
}

// CloneArgs deep-copies an argument mapping, descending into nested maps and
// slices. Scalar values are copied by assignment.
func CloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneArgs(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// MergeArgs applies global defaults to a plugin's argument mapping. Keys the
// plugin specifies explicitly win over global values.
func MergeArgs(global, local map[string]any) map[string]any {
	if global == nil && local == nil {
		return nil
	}
	out := CloneArgs(global)
	if out == nil {
		out = make(map[string]any, len(local))
	}
	for k, v := range local {
		out[k] = cloneValue(v)
	}
	return out
}
