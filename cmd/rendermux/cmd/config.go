package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rendermux/rendermux/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing rendermux configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration values in YAML format.

This shows all available configuration options after applying the config
file, environment variables, and defaults. Redirect this output to a file
to create a configuration template:

  rendermux config dump > config.yaml

Environment variables use the RENDERMUX_ prefix and underscores for nesting.
Example: server.port -> RENDERMUX_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	// Validate before dumping so a broken config file is caught here.
	if _, err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	yamlData, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# rendermux Configuration File")
	fmt.Println("# ============================")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   RENDERMUX_SERVER_HOST, RENDERMUX_SERVER_PORT")
	fmt.Println("#   RENDERMUX_TRANSCODE_TEMP_DIR, RENDERMUX_TRANSCODE_SEGMENT_SECONDS")
	fmt.Println("#   RENDERMUX_LOGGING_LEVEL, RENDERMUX_LOGGING_FORMAT")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
