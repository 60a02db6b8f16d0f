package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file operations",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := viperConfig.AllKeys()
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), key, "=", viperConfig.Get(key))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the effective configuration to a TOML file",
	Long:  `Writes ./config.toml by default. An existing file is not overwritten.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.toml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := viperConfig.SafeWriteConfigAs(path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "written", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
