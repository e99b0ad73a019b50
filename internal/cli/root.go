// Package cli implements focusgatectl, the inspection tool for focusgate
// hosts: it probes the OS foreground query, checks configuration and reads
// the diagnostics journal. It never talks to a running host.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"focusgate/internal/config"
)

// configPath is the --config flag shared by every command.
var configPath string

var rootCmd = &cobra.Command{
	Use:           "focusgatectl",
	Short:         "Inspect and diagnose focusgate hosts",
	Long:          "Probes the OS foreground query, validates configuration and reads the focusgate diagnostics journal.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: search standard locations)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "focusgatectl: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath returns the --config value, a discovered file, or the
// default location, in that order.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := config.FindConfigFile(); p != "" {
		return p
	}
	return config.ConfigPath()
}

// loadConfig loads the resolved config file. A missing file yields defaults.
func loadConfig() (*config.Config, string, error) {
	path := resolveConfigPath()
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}
