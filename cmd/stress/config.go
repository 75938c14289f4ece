// ABOUTME: CLI commands for viewing and writing the config file.
// ABOUTME: init writes the defaults; show prints the effective config as YAML.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/stress/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or write the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Printf("%s %s\n\n", color.New(color.Faint).Sprint("# config:"), configFilePath())
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default configuration to the config path.

The defaults expect Samsung Health exports at data/raw/heart_rate.csv and
data/raw/stress.csv under data_dir. An existing file is kept unless
--force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFilePath()
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		color.Green("✓ Wrote %s", path)
		return nil
	},
}

func configFilePath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.GetConfigPath()
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
