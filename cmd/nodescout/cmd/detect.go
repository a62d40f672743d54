package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nodescout/nodescout/internal/logging"
	"github.com/nodescout/nodescout/internal/sysinfo"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print detected facts about the local machine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := sysinfo.Detect(cmd.Context(), logging.NewNop())
		out, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
