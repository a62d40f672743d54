package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nodescout/nodescout/internal/collate"
	"github.com/nodescout/nodescout/internal/config"
	"github.com/nodescout/nodescout/internal/core"
	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/metrics"
	"github.com/nodescout/nodescout/internal/plugin"
	"github.com/nodescout/nodescout/internal/plugins"
	"github.com/nodescout/nodescout/internal/sysinfo"
)

var (
	runSysName          string
	runSysLocation      string
	runInteractionLevel string
	runSKU              string
	runPlatform         string
	runOSFamily         string
	runArtifactsDir     string
	runCollators        []string
	runVerbose          bool
)

var runCmd = &cobra.Command{
	Use:   "run [plugin...]",
	Short: "Run the configured plugin queue against the target system",
	Long: `Run executes the plugin queue from the config file in order. Naming
plugins as arguments restricts the run to those plugins; a named plugin
absent from the config runs with default arguments.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSysName, "sys-name", "", "target system name")
	runCmd.Flags().StringVar(&runSysLocation, "sys-location", "", "target location (LOCAL, REMOTE)")
	runCmd.Flags().StringVar(&runInteractionLevel, "interaction-level", "", "allowed interaction level (PASSIVE, INTERACTIVE, DISRUPTIVE)")
	runCmd.Flags().StringVar(&runSKU, "sku", "", "target hardware SKU")
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "target platform name")
	runCmd.Flags().StringVar(&runOSFamily, "os-family", "", "target OS family (LINUX, WINDOWS, UNKNOWN)")
	runCmd.Flags().StringVar(&runArtifactsDir, "artifacts-dir", "", "directory for run artifacts")
	runCmd.Flags().StringSliceVar(&runCollators, "collators", nil, "collators to run (summary, artifacts)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print transport metrics after the run")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	log := newLogger(cfg)

	system, err := targetSystem(cmd, cfg, log)
	if err != nil {
		return err
	}

	queue, err := buildQueue(cfg, args)
	if err != nil {
		return err
	}

	registry := plugin.NewRegistry()
	plugins.RegisterBuiltins(registry)

	m := metrics.New()
	opts := []plugin.ExecutorOption{
		plugin.WithGlobals(cfg.GlobalArgs),
		plugin.WithConnection(cfg.Connection),
		plugin.WithMetrics(m),
	}

	for _, name := range cfg.Collators {
		switch name {
		case config.CollatorSummary:
			opts = append(opts, plugin.WithCollators(collate.NewSummary(cmd.OutOrStdout())))
		case config.CollatorArtifacts:
			opts = append(opts, plugin.WithCollators(collate.NewWriter(cfg.Artifacts.Dir, "", log)))
		default:
			return core.ErrNotFound("collator", name)
		}
	}

	executor := plugin.NewExecutor(registry, &system, queue, log, opts...)
	report := executor.RunQueue(cmd.Context())

	if runVerbose {
		printMetrics(cmd, m)
	}

	exitCode = report.WorstStatus().ExitCode()
	return nil
}

// applyRunFlags folds command line overrides into the loaded config.
func applyRunFlags(cfg *config.Config) {
	if runSysName != "" {
		cfg.System.Name = runSysName
	}
	if runSysLocation != "" {
		cfg.System.Location = runSysLocation
	}
	if runInteractionLevel != "" {
		cfg.System.InteractionLevel = runInteractionLevel
	}
	if runSKU != "" {
		cfg.System.SKU = runSKU
	}
	if runPlatform != "" {
		cfg.System.Platform = runPlatform
	}
	if runOSFamily != "" {
		cfg.System.OSFamily = runOSFamily
	}
	if runArtifactsDir != "" {
		cfg.Artifacts.Dir = runArtifactsDir
	}
	if runCollators != nil {
		cfg.Collators = runCollators
	}
}

// targetSystem resolves the SystemInfo for this run. Local targets default
// to detected facts; config and flags override them.
func targetSystem(cmd *cobra.Command, cfg *config.Config, log *logging.Logger) (core.SystemInfo, error) {
	detected := core.NewSystemInfo("")
	if cfg.System.Location != string(core.LocationRemote) {
		detected = sysinfo.Detect(cmd.Context(), log)
	}
	if detected.Name == "" {
		detected.Name = cfg.System.Name
	}
	return cfg.SystemInfo(detected)
}

// buildQueue selects the plugin configs to run. Without arguments the whole
// configured queue runs; with arguments only the named plugins, falling back
// to a bare config for names missing from the file.
func buildQueue(cfg *config.Config, names []string) ([]core.PluginConfig, error) {
	if len(names) == 0 {
		if len(cfg.Plugins) == 0 {
			return nil, core.ErrInvalidArgs(core.CodeInvalidConfig, "no plugins configured; pass plugin names or add a plugins block")
		}
		return cfg.Plugins, nil
	}

	configured := make(map[string]core.PluginConfig, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		configured[p.Name] = p
	}
	queue := make([]core.PluginConfig, 0, len(names))
	for _, name := range names {
		if p, ok := configured[name]; ok {
			queue = append(queue, p)
			continue
		}
		queue = append(queue, core.PluginConfig{Name: name})
	}
	return queue, nil
}

func printMetrics(cmd *cobra.Command, m *metrics.Metrics) {
	snapshot, err := m.Snapshot()
	if err != nil {
		cmd.PrintErrln("metrics snapshot failed:", err)
		return
	}
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %.0f\n", k, snapshot[k])
	}
}
