package core

import (
	"encoding/json"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func TestPluginConfig_PhaseDefaults(t *testing.T) {
	cfg := PluginConfig{Name: "kernel"}
	if !cfg.CollectEnabled() || !cfg.AnalyzeEnabled() {
		t.Fatalf("expected both phases enabled by default")
	}

	cfg.Collect = boolPtr(false)
	cfg.Analyze = boolPtr(true)
	if cfg.CollectEnabled() {
		t.Fatalf("expected collection disabled")
	}
	if !cfg.AnalyzeEnabled() {
		t.Fatalf("expected analysis enabled")
	}
}

func TestPluginConfig_EffectiveLevel(t *testing.T) {
	cfg := PluginConfig{Name: "kernel"}
	if cfg.EffectiveLevel(InteractionInteractive) != InteractionInteractive {
		t.Fatalf("expected session level without override")
	}

	override := InteractionPassive
	cfg.InteractionLevel = &override
	if cfg.EffectiveLevel(InteractionInteractive) != InteractionPassive {
		t.Fatalf("expected override level to win")
	}
}

func TestPluginConfig_CloneIsolation(t *testing.T) {
	cfg := PluginConfig{
		Name:    "dmesg",
		Collect: boolPtr(true),
		AnalyzerArgs: map[string]any{
			"exclude_category": []any{"RAS"},
			"nested":           map[string]any{"key": "value"},
		},
	}
	clone := cfg.Clone()

	clone.AnalyzerArgs["exclude_category"].([]any)[0] = "IO"
	clone.AnalyzerArgs["nested"].(map[string]any)["key"] = "changed"
	*clone.Collect = false

	if cfg.AnalyzerArgs["exclude_category"].([]any)[0] != "RAS" {
		t.Fatalf("clone mutation leaked into original slice")
	}
	if cfg.AnalyzerArgs["nested"].(map[string]any)["key"] != "value" {
		t.Fatalf("clone mutation leaked into original map")
	}
	if !*cfg.Collect {
		t.Fatalf("clone mutation leaked into original flag")
	}
}

func TestMergeArgs(t *testing.T) {
	global := map[string]any{"timeout": 30, "exp_kernel": []any{"5.15"}}
	local := map[string]any{"exp_kernel": []any{"6.1"}}

	merged := MergeArgs(global, local)
	if merged["timeout"] != 30 {
		t.Fatalf("expected global default to apply")
	}
	if merged["exp_kernel"].([]any)[0] != "6.1" {
		t.Fatalf("expected explicit plugin value to win")
	}

	if MergeArgs(nil, nil) != nil {
		t.Fatalf("expected nil when both inputs nil")
	}
	onlyLocal := MergeArgs(nil, map[string]any{"a": 1})
	if onlyLocal["a"] != 1 {
		t.Fatalf("expected local args to survive without globals")
	}
}

func TestPluginConfig_RoundTrip(t *testing.T) {
	level := InteractionDisruptive
	in := []PluginConfig{
		{
			Name:             "kernel",
			Analyze:          boolPtr(true),
			InteractionLevel: &level,
			AnalyzerArgs:     map[string]any{"exp_kernel": []any{"5.15.0-generic"}, "regex_match": false},
		},
		{
			Name:          "dmesg",
			CollectorArgs: map[string]any{"log_dmesg_data": true},
		},
	}

	encoded, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var out []PluginConfig
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if len(out) != len(in) {
		t.Fatalf("expected %d configs, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Name != in[i].Name {
			t.Fatalf("expected name %q, got %q", in[i].Name, out[i].Name)
		}
	}
	if *out[0].InteractionLevel != InteractionDisruptive {
		t.Fatalf("expected interaction level to survive round trip")
	}
	args := out[0].AnalyzerArgs
	if args["regex_match"] != false {
		t.Fatalf("expected regex_match to survive round trip")
	}
	exp, ok := args["exp_kernel"].([]any)
	if !ok || len(exp) != 1 || exp[0] != "5.15.0-generic" {
		t.Fatalf("expected exp_kernel values to survive round trip, got %v", args["exp_kernel"])
	}
}
