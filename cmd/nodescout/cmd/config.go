package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodescout/nodescout/internal/config"
)

var configInitPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage run configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.WriteStarter(configInitPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitPath, "output", "o", ".nodescout.yaml",
		"path for the generated config")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
