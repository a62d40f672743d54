package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodescout/nodescout/internal/plugin"
	"github.com/nodescout/nodescout/internal/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the registered probes",
	Run: func(cmd *cobra.Command, _ []string) {
		registry := plugin.NewRegistry()
		plugins.RegisterBuiltins(registry)
		for _, info := range registry.Describe() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", info.Name, info.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
